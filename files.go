package formcalc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// All code interacting with files is here

const (
	Indent = "  "
)

// Files reads report definitions and submissions, and writes results as JSON.
type Files struct {
	Indent string
	Strict bool // if true, a submission with no id is an error

	file     *os.File
	fileName string
}

// FileOpt sets an option of *Files.
type FileOpt func(f *Files) error

// FileIndent sets the indent of written JSON. "" writes compact JSON.
func FileIndent(indent string) FileOpt {
	return func(f *Files) error {
		f.Indent = indent
		return nil
	}
}

// FileStrict rejects submissions without an id.
func FileStrict(strict bool) FileOpt {
	return func(f *Files) error {
		f.Strict = strict
		return nil
	}
}

func NewFiles(opts ...FileOpt) (*Files, error) {
	f := &Files{Indent: Indent}

	for _, opt := range opts {
		if e := opt(f); e != nil {
			return nil, e
		}
	}

	return f, nil
}

func (f *Files) Open(fileName string) error {
	var e error
	f.fileName = fileName
	f.file, e = os.Open(fileName)

	return e
}

func (f *Files) Create(fileName string) error {
	var e error
	f.fileName = fileName
	f.file, e = os.Create(fileName)

	return e
}

func (f *Files) FileName() string {
	return f.fileName
}

func (f *Files) Close() error {
	if f.file != nil {
		return f.file.Close()
	}

	return fmt.Errorf("no open files")
}

// ReadReport reads the report definition in the open file.
func (f *Files) ReadReport() (*Report, error) {
	if f.file == nil {
		return nil, fmt.Errorf("no open files")
	}

	data, e := io.ReadAll(f.file)
	if e != nil {
		return nil, e
	}

	r, e := ParseReport(data)

	return r, errors.WithMessagef(e, "file %s", f.fileName)
}

// ReadSubmissions reads the open file: a JSON array of submissions or one submission per line.
func (f *Files) ReadSubmissions() ([]*Submission, error) {
	if f.file == nil {
		return nil, fmt.Errorf("no open files")
	}

	return ReadSubmissions(f.file, f.Strict)
}

// ReadSubmissions decodes submissions from rdr, as a JSON array or a stream of JSON objects.
func ReadSubmissions(rdr io.Reader, strict bool) ([]*Submission, error) {
	br := bufio.NewReader(rdr)

	var (
		first byte
		e     error
	)
	for {
		if first, e = br.ReadByte(); e != nil {
			if e == io.EOF {
				return nil, nil
			}

			return nil, e
		}

		if first != ' ' && first != '\n' && first != '\r' && first != '\t' {
			break
		}
	}

	_ = br.UnreadByte()

	var subs []*Submission
	dec := json.NewDecoder(br)
	if first == '[' {
		if e = dec.Decode(&subs); e != nil {
			return nil, errors.WithMessage(e, "read submissions")
		}
	} else {
		for {
			s := &Submission{}
			if e = dec.Decode(s); e == io.EOF {
				break
			}

			if e != nil {
				return nil, errors.WithMessagef(e, "read submission %d", len(subs))
			}

			subs = append(subs, s)
		}
	}

	if strict {
		for ind, s := range subs {
			if s == nil || s.ID == "" {
				return nil, fmt.Errorf("submission %d has no id", ind)
			}
		}
	}

	return subs, nil
}

// Write writes v to the created file as JSON.
func (f *Files) Write(v any) error {
	if f.file == nil {
		return fmt.Errorf("no open files")
	}

	return WriteJSON(f.file, v, f.Indent)
}

// WriteJSON writes v to w as JSON, followed by a newline.
func WriteJSON(w io.Writer, v any, indent string) error {
	enc := json.NewEncoder(w)
	if indent != "" {
		enc.SetIndent("", indent)
	}

	return enc.Encode(v)
}
