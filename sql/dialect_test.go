package sql

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fc "github.com/invertedv/formcalc"
)

func TestDialect_query(t *testing.T) {
	ch, e := NewDialect("ClickHouse", nil)
	require.Nil(t, e)
	assert.Equal(t, CH, ch.DialectName())

	pg, e := NewDialect(PG, nil)
	require.Nil(t, e)

	tests := [][]any{
		{ch, chDropIf, "forms.subs", "", "DROP TABLE IF EXISTS forms.subs"},
		{ch, "SELECT * FROM ?TableName ?Where", "t", "id = '3'", "SELECT * FROM t WHERE id = '3'"},
		{ch, "SELECT * FROM ?TableName ?Where", "t", "where id = '3'", "SELECT * FROM t where id = '3'"},
		{pg, pgInsert, "subs", "", "INSERT INTO subs (id, submitted_at, submission_data) VALUES ($1, $2, $3)"},
	}

	for ind, tst := range tests {
		d := tst[0].(*Dialect)
		qry, e := d.query(tst[1].(string), tst[2].(string), tst[3].(string))
		assert.Nil(t, e, ind)
		assert.Equal(t, tst[4], qry, ind)
	}

	_, e = ch.query(chSubmissions, "", "")
	assert.NotNil(t, e)

	qry, e := pg.query(pgSubmissions, "subs", "")
	assert.Nil(t, e)
	assert.NotContains(t, qry, "?")

	_, e = NewDialect("oracle", nil)
	assert.NotNil(t, e)

	_, e = Connect("oracle", "", "", "", "")
	assert.NotNil(t, e)
}

// dialect4test connects using the host, user, password and db environment variables.
func dialect4test(t *testing.T, which string) *Dialect {
	host, user, password := os.Getenv("host"), os.Getenv("user"), os.Getenv("password")
	if host == "" || user == "" {
		t.Skip("no database: set host, user and password")
	}

	db, e := Connect(which, host, user, password, os.Getenv("db"))
	if e != nil {
		t.Skipf("no %s database: %v", which, e)
	}

	d, e := NewDialect(which, db)
	require.Nil(t, e)

	return d
}

func TestDialect_SaveLoad(t *testing.T) {
	subs := []*fc.Submission{
		{ID: "1", SubmittedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), SubmissionData: []*fc.Entry{
			{FieldLabel: "Region", FieldValue: "West"},
			{FieldLabel: "Sales", FieldValue: "100"},
		}},
		{ID: "2", SubmittedAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), SubmissionData: []*fc.Entry{
			{FieldLabel: "Region", FieldValue: "East"},
			{FieldLabel: "Sales", FieldValue: "250"},
		}},
	}

	for _, which := range []string{CH, PG} {
		t.Run(which, func(t *testing.T) {
			d := dialect4test(t, which)
			defer func() { _ = d.Close() }()

			const table = "formcalc_subs"
			ctx := context.Background()

			require.Nil(t, d.Create(ctx, table, true))
			defer func() { _ = d.DropTable(ctx, table) }()

			require.Nil(t, d.Save(ctx, table, subs))

			got, e := d.Load(ctx, table, "")
			require.Nil(t, e)
			require.Len(t, got, 2)
			assert.Equal(t, "2", got[1].ID)
			assert.True(t, subs[1].SubmittedAt.Equal(got[1].SubmittedAt))
			assert.Equal(t, "250", got[1].SubmissionData[1].FieldValue)

			rows, e := d.Rows(ctx, table, "id = '1'")
			require.Nil(t, e)
			require.Len(t, rows, 1)
			v, _ := rows[0].Value("Region")
			assert.Equal(t, "West", v)
		})
	}
}
