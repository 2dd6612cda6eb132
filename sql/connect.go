package sql

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/jackc/pgx/stdlib"
)

// NewConnectCH opens a connection to ClickHouse.
// host is the IP address (port 9000 is assumed).
func NewConnectCH(host, user, password, database string) (*sql.DB, error) {
	if database == "" {
		database = "default"
	}

	db := clickhouse.OpenDB(
		&clickhouse.Options{
			Addr: []string{host + ":9000"},
			Auth: clickhouse.Auth{
				Database: database,
				Username: user,
				Password: password,
			},
			DialTimeout: 300 * time.Second,
			Compression: &clickhouse.Compression{
				Method: clickhouse.CompressionLZ4,
				Level:  0,
			},
		})

	if e := db.Ping(); e != nil {
		_ = db.Close()
		return nil, e
	}

	return db, nil
}

// NewConnectPG opens a connection to Postgres on port 5432 through the pgx driver.
func NewConnectPG(host, user, password, database string) (*sql.DB, error) {
	connectionStr := fmt.Sprintf("postgres://%s:%s@%s:5432/%s", user, password, host, database)

	var (
		db *sql.DB
		e  error
	)
	if db, e = sql.Open("pgx", connectionStr); e != nil {
		return nil, e
	}

	if e := db.Ping(); e != nil {
		_ = db.Close()
		return nil, e
	}

	return db, nil
}

// Connect opens a connection for dialect, "clickhouse" or "postgres".
func Connect(dialect, host, user, password, database string) (*sql.DB, error) {
	switch dialect {
	case CH:
		return NewConnectCH(host, user, password, database)
	case PG:
		return NewConnectPG(host, user, password, database)
	}

	return nil, fmt.Errorf("unsupported database %s", dialect)
}
