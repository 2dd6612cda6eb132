package testing

import (
	"context"
	"os"
	"path/filepath"

	fc "github.com/invertedv/formcalc"
	s "github.com/invertedv/formcalc/sql"
)

const (
	reportFile      = "report.yaml"
	submissionsFile = "submissions.json"
	tableCH         = "default.formcalc_test"
	tablePG         = "public.formcalc_test"

	pg   = "postgres"
	ch   = "clickhouse"
	file = "file"
)

// environment variables:
//   - host database IP address
//   - user database user
//   - password database password
//   - db Postgres database name
//   - datapath: path to the data directory in this package, "data" if not set

// list of sources to test
func sources() []string {
	return []string{file, pg, ch}
}

func dataPath(name string) string {
	dir := os.Getenv("datapath")
	if dir == "" {
		dir = "data"
	}

	return filepath.Join(dir, name)
}

func loadReport() (*fc.Report, error) {
	f, e := fc.NewFiles()
	if e != nil {
		return nil, e
	}

	if e := f.Open(dataPath(reportFile)); e != nil {
		return nil, e
	}
	defer func() { _ = f.Close() }()

	return f.ReadReport()
}

func loadSubmissions() ([]*fc.Submission, error) {
	f, e := fc.NewFiles(fc.FileStrict(true))
	if e != nil {
		return nil, e
	}

	if e := f.Open(dataPath(submissionsFile)); e != nil {
		return nil, e
	}
	defer func() { _ = f.Close() }()

	return f.ReadSubmissions()
}

// dbAvailable is true if the connection environment variables are set.
func dbAvailable() bool {
	return os.Getenv("host") != "" && os.Getenv("user") != ""
}

// loadRows reads the test submissions from source. For a database the submissions are first
// saved to a scratch table, which is dropped afterward.
func loadRows(source string) ([]*fc.Row, error) {
	subs, e := loadSubmissions()
	if e != nil {
		return nil, e
	}

	if source == file {
		return fc.RowsFromSubmissions(subs), nil
	}

	table := tablePG
	if source == ch {
		table = tableCH
	}

	db, e := s.Connect(source, os.Getenv("host"), os.Getenv("user"), os.Getenv("password"), os.Getenv("db"))
	if e != nil {
		return nil, e
	}

	d, e := s.NewDialect(source, db)
	if e != nil {
		return nil, e
	}
	defer func() { _ = d.Close() }()

	ctx := context.Background()
	if e := d.Create(ctx, table, true); e != nil {
		return nil, e
	}
	defer func() { _ = d.DropTable(ctx, table) }()

	if e := d.Save(ctx, table, subs); e != nil {
		return nil, e
	}

	return d.Rows(ctx, table, "")
}
