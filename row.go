package formcalc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/pkg/errors"
)

// RemarkSuffix marks the pseudo-field that carries the remark for a base field.
const RemarkSuffix = " (Remark)"

// CalculatedType is the FieldType of entries appended by the report engine.
const CalculatedType = "calculated"

// Entry is one field of a submission. FieldValue is always text.
type Entry struct {
	FieldLabel string `json:"fieldLabel" yaml:"fieldLabel"`
	FieldValue string `json:"fieldValue" yaml:"fieldValue"`
	Remark     string `json:"remark,omitempty" yaml:"remark,omitempty"`
	FieldType  string `json:"fieldType,omitempty" yaml:"fieldType,omitempty"`
}

// Submission is the raw record supplied by the surrounding application.
type Submission struct {
	ID             string    `json:"id"`
	SubmittedAt    time.Time `json:"submittedAt"`
	SubmissionData []*Entry  `json:"submissionData"`
}

// UnmarshalJSON accepts a numeric or string id and tolerates a missing submittedAt.
func (s *Submission) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID             json.RawMessage `json:"id"`
		SubmittedAt    string          `json:"submittedAt"`
		SubmissionData []*Entry        `json:"submissionData"`
	}

	if e := json.Unmarshal(data, &raw); e != nil {
		return e
	}

	s.SubmissionData = raw.SubmissionData
	s.ID = strings.Trim(string(raw.ID), `"`)

	if raw.SubmittedAt != "" {
		var e error
		if s.SubmittedAt, e = ParseTime(raw.SubmittedAt); e != nil {
			return errors.WithMessagef(e, "submission %s", s.ID)
		}
	}

	return nil
}

var timeFormats = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// ParseTime reads RFC 3339 times, "2006-01-02 15:04:05" and plain dates.
func ParseTime(s string) (time.Time, error) {
	for _, fmtx := range timeFormats {
		if t, e := time.Parse(fmtx, s); e == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("cannot parse time %s", s)
}

// Row is a submission prepared for evaluation: remarks are merged into their base entries.
type Row struct {
	SubmissionID string    `json:"submissionId"`
	SubmittedAt  time.Time `json:"submittedAt"`
	Data         []*Entry  `json:"data"`

	index map[string]int
}

// NewRow builds a Row. Entries labelled "<label> (Remark)" become the Remark of entry <label>.
func NewRow(id string, submittedAt time.Time, data ...*Entry) *Row {
	r := &Row{SubmissionID: id, SubmittedAt: submittedAt, index: make(map[string]int)}

	var remarks []*Entry
	for _, ent := range data {
		if ent == nil {
			continue
		}

		if strings.HasSuffix(ent.FieldLabel, RemarkSuffix) {
			remarks = append(remarks, ent)
			continue
		}

		r.Append(&Entry{FieldLabel: ent.FieldLabel, FieldValue: ent.FieldValue, Remark: ent.Remark, FieldType: ent.FieldType})
	}

	for _, rem := range remarks {
		base := strings.TrimSuffix(rem.FieldLabel, RemarkSuffix)
		if ent := r.Entry(base); ent != nil {
			ent.Remark = rem.FieldValue
			continue
		}

		r.Append(&Entry{FieldLabel: base, Remark: rem.FieldValue})
	}

	return r
}

// RowsFromSubmissions converts raw submissions to Rows, in order.
func RowsFromSubmissions(subs []*Submission) []*Row {
	rows := make([]*Row, 0, len(subs))
	for _, s := range subs {
		if s == nil {
			continue
		}

		rows = append(rows, NewRow(s.ID, s.SubmittedAt, s.SubmissionData...))
	}

	return rows
}

// Entry returns the entry with label, nil if the row has none.
func (r *Row) Entry(label string) *Entry {
	if r == nil {
		return nil
	}

	if r.index == nil {
		r.reindex()
	}

	if indx, ok := r.index[label]; ok {
		return r.Data[indx]
	}

	return nil
}

// Value returns the value of label. ok is false if the row has no such entry.
func (r *Row) Value(label string) (value string, ok bool) {
	var ent *Entry
	if ent = r.Entry(label); ent == nil {
		return "", false
	}

	return ent.FieldValue, true
}

// Append adds ent to the row. A later entry with the same label shadows the earlier one.
func (r *Row) Append(ent *Entry) {
	if r.index == nil {
		r.reindex()
	}

	r.Data = append(r.Data, ent)
	r.index[ent.FieldLabel] = len(r.Data) - 1
}

// Copy returns a row with copies of the entries, so appending to it does not touch r.
func (r *Row) Copy() *Row {
	out := &Row{SubmissionID: r.SubmissionID, SubmittedAt: r.SubmittedAt, index: make(map[string]int, len(r.Data))}
	for _, ent := range r.Data {
		cp := *ent
		out.Append(&cp)
	}

	return out
}

func (r *Row) reindex() {
	r.index = make(map[string]int, len(r.Data))
	for ind, ent := range r.Data {
		r.index[ent.FieldLabel] = ind
	}
}

// GridColumn extracts the values of column child from a grid payload, a JSON array of objects.
// Numbers come back in their shortest text form; missing cells are skipped.
func GridColumn(payload, child string) ([]string, error) {
	if TrimBlank(payload) == "" {
		return nil, nil
	}

	var (
		data any
		e    error
	)
	if data, e = oj.ParseString(payload); e != nil {
		return nil, errors.WithMessage(e, "grid payload")
	}

	var out []string
	for _, v := range jp.R().W().C(child).Get(data) {
		switch x := v.(type) {
		case nil:
			continue
		case string:
			out = append(out, x)
		case int64:
			out = append(out, strconv.FormatInt(x, 10))
		case float64:
			out = append(out, strconv.FormatFloat(x, 'f', -1, 64))
		case bool:
			out = append(out, strconv.FormatBool(x))
		default:
			out = append(out, oj.JSON(x))
		}
	}

	return out, nil
}
