package sql

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	fc "github.com/invertedv/formcalc"
)

// All code interacting with a database is here

var (
	//go:embed skeletons/clickhouse/submissions.txt
	chSubmissions string
	//go:embed skeletons/postgres/submissions.txt
	pgSubmissions string

	//go:embed skeletons/clickhouse/entries.txt
	chEntries string
	//go:embed skeletons/postgres/entries.txt
	pgEntries string

	//go:embed skeletons/clickhouse/create.txt
	chCreate string
	//go:embed skeletons/postgres/create.txt
	pgCreate string

	//go:embed skeletons/clickhouse/insert.txt
	chInsert string
	//go:embed skeletons/postgres/insert.txt
	pgInsert string

	//go:embed skeletons/clickhouse/dropIf.txt
	chDropIf string
	//go:embed skeletons/postgres/dropIf.txt
	pgDropIf string
)

const (
	CH = "clickhouse"
	PG = "postgres"
)

// Dialect reads submissions from a database. Two layouts are supported:
//
//   - one row per submission: id, submitted_at and submission_data, a JSON array of entries
//   - one row per entry: submission_id, submitted_at, field_label and field_value.
type Dialect struct {
	db      *sql.DB
	dialect string

	submissions string
	entries     string
	create      string
	insert      string
	dropIf      string
}

func NewDialect(dialect string, db *sql.DB) (*Dialect, error) {
	dialect = strings.ToLower(dialect)

	d := &Dialect{db: db, dialect: dialect}

	switch d.dialect {
	case CH:
		d.submissions, d.entries, d.create, d.insert, d.dropIf = chSubmissions, chEntries, chCreate, chInsert, chDropIf
	case PG:
		d.submissions, d.entries, d.create, d.insert, d.dropIf = pgSubmissions, pgEntries, pgCreate, pgInsert, pgDropIf
	default:
		return nil, fmt.Errorf("no skeletons for database %s", dialect)
	}

	return d, nil
}

// ***************** Methods *****************

func (d *Dialect) Close() error {
	return d.db.Close()
}

func (d *Dialect) DB() *sql.DB {
	return d.db
}

func (d *Dialect) DialectName() string {
	return d.dialect
}

// query fills the table and where clause into skeleton. where may be empty.
func (d *Dialect) query(skeleton, tableName, where string) (string, error) {
	if tableName == "" {
		return "", fmt.Errorf("no table name")
	}

	qry := strings.ReplaceAll(strings.TrimSpace(skeleton), "?TableName", tableName)
	if where = strings.TrimSpace(where); where != "" && !strings.HasPrefix(strings.ToUpper(where), "WHERE") {
		where = "WHERE " + where
	}

	qry = strings.ReplaceAll(qry, "?Where", where)
	if strings.Contains(qry, "?TableName") || strings.Contains(qry, "?Where") {
		return "", fmt.Errorf("query still has placeholders: %s", qry)
	}

	return qry, nil
}

// Load reads submissions stored one per row, in order of submission time.
func (d *Dialect) Load(ctx context.Context, tableName, where string) ([]*fc.Submission, error) {
	qry, e := d.query(d.submissions, tableName, where)
	if e != nil {
		return nil, e
	}

	var rows *sql.Rows
	if rows, e = d.db.QueryContext(ctx, qry); e != nil {
		return nil, errors.WithMessage(e, "load submissions")
	}
	defer func() { _ = rows.Close() }()

	var subs []*fc.Submission
	for rows.Next() {
		var (
			id, at string
			data   sql.NullString
		)

		if e := rows.Scan(&id, &at, &data); e != nil {
			return nil, e
		}

		s := &fc.Submission{ID: id}
		if s.SubmittedAt, e = fc.ParseTime(at); e != nil {
			return nil, errors.WithMessagef(e, "submission %s", id)
		}

		if data.Valid && strings.TrimSpace(data.String) != "" {
			if e := json.Unmarshal([]byte(data.String), &s.SubmissionData); e != nil {
				return nil, errors.WithMessagef(e, "submission %s", id)
			}
		}

		subs = append(subs, s)
	}

	return subs, rows.Err()
}

// LoadEntries reads submissions stored one entry per row. Entries of a submission keep their order.
func (d *Dialect) LoadEntries(ctx context.Context, tableName, where string) ([]*fc.Submission, error) {
	qry, e := d.query(d.entries, tableName, where)
	if e != nil {
		return nil, e
	}

	var rows *sql.Rows
	if rows, e = d.db.QueryContext(ctx, qry); e != nil {
		return nil, errors.WithMessage(e, "load entries")
	}
	defer func() { _ = rows.Close() }()

	var (
		subs []*fc.Submission
		byID = make(map[string]*fc.Submission)
	)

	for rows.Next() {
		var (
			id, at, label string
			value         sql.NullString
		)

		if e := rows.Scan(&id, &at, &label, &value); e != nil {
			return nil, e
		}

		s, ok := byID[id]
		if !ok {
			s = &fc.Submission{ID: id}
			if s.SubmittedAt, e = fc.ParseTime(at); e != nil {
				return nil, errors.WithMessagef(e, "submission %s", id)
			}

			byID[id] = s
			subs = append(subs, s)
		}

		s.SubmissionData = append(s.SubmissionData, &fc.Entry{FieldLabel: label, FieldValue: value.String})
	}

	return subs, rows.Err()
}

// Rows is Load followed by formcalc.RowsFromSubmissions.
func (d *Dialect) Rows(ctx context.Context, tableName, where string) ([]*fc.Row, error) {
	subs, e := d.Load(ctx, tableName, where)
	if e != nil {
		return nil, e
	}

	return fc.RowsFromSubmissions(subs), nil
}

// Create makes a table for submissions stored one per row. An existing table is dropped if
// overwrite is true.
func (d *Dialect) Create(ctx context.Context, tableName string, overwrite bool) error {
	if overwrite {
		if e := d.DropTable(ctx, tableName); e != nil {
			return e
		}
	}

	qry, e := d.query(d.create, tableName, "")
	if e != nil {
		return e
	}

	_, e = d.db.ExecContext(ctx, qry)

	return e
}

func (d *Dialect) DropTable(ctx context.Context, tableName string) error {
	qry, e := d.query(d.dropIf, tableName, "")
	if e != nil {
		return e
	}

	_, e = d.db.ExecContext(ctx, qry)

	return e
}

// Save inserts subs into a table made by Create.
func (d *Dialect) Save(ctx context.Context, tableName string, subs []*fc.Submission) error {
	qry, e := d.query(d.insert, tableName, "")
	if e != nil {
		return e
	}

	for _, s := range subs {
		data, e := json.Marshal(s.SubmissionData)
		if e != nil {
			return e
		}

		if _, e := d.db.ExecContext(ctx, qry, s.ID, s.SubmittedAt, string(data)); e != nil {
			return errors.WithMessagef(e, "save submission %s", s.ID)
		}
	}

	return nil
}
