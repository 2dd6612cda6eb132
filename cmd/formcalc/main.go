package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	fc "github.com/invertedv/formcalc"
	"github.com/invertedv/formcalc/mem"
	s "github.com/invertedv/formcalc/sql"
)

const version = "0.1.0"

func main() {
	reportPath := flag.String("report", "", "Path to the report definition, YAML or JSON (required)")
	subsPath := flag.String("submissions", "", "Path to submissions JSON, an array or one object per line")
	dbName := flag.String("db", "", "Read submissions from a database: clickhouse or postgres")
	table := flag.String("table", "", "Table holding the submissions (with --db)")
	where := flag.String("where", "", "Filter on the submissions table (with --db)")
	entries := flag.Bool("entries", false, "The table holds one entry per row (with --db)")
	envPath := flag.String("env", ".env", "File of environment variables host, user, password and db")
	outFile := flag.String("out", "", "Write output to file instead of stdout")
	currency := flag.String("currency", "$", "Currency symbol")
	validateOnly := flag.Bool("validate", false, "Validate the calculated fields and exit")
	pretty := flag.Bool("pretty", false, "Indent the JSON output")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `formcalc evaluates the calculated fields of a report

Usage:
  formcalc --report report.yaml --submissions subs.json
  formcalc --report report.yaml --db postgres --table submissions --where "submitted_at > '2026-01-01'"
  formcalc --report report.yaml --validate

Flags:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("formcalc %s\n", version)
		os.Exit(0)
	}

	if *reportPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --report is required")
		flag.Usage()
		os.Exit(1)
	}

	rep, e := readReport(*reportPath)
	if e != nil {
		log.Fatal(e)
	}

	problems := rep.Validate()
	if *validateOnly {
		write(*outFile, problems, *pretty)
		for _, vr := range problems {
			if !vr.IsValid {
				os.Exit(1)
			}
		}

		return
	}

	for label, vr := range problems {
		for _, msg := range vr.Errors {
			log.Printf("%s: %s", label, msg)
		}

		for _, msg := range vr.Warnings {
			log.Printf("%s: warning: %s", label, msg)
		}
	}

	var subs []*fc.Submission
	switch {
	case *dbName != "":
		if e := godotenv.Load(*envPath); e != nil {
			log.Printf("no %s file, using the environment", *envPath)
		}

		subs, e = fromDB(*dbName, *table, *where, *entries)
	case *subsPath != "":
		subs, e = readSubmissions(*subsPath)
	default:
		e = fmt.Errorf("one of --submissions or --db is required")
	}

	if e != nil {
		log.Fatal(e)
	}

	en, e := mem.NewEngine(mem.EngineCurrency(*currency), mem.EngineLogger(log.Default()))
	if e != nil {
		log.Fatal(e)
	}

	write(*outFile, en.Report(rep, fc.RowsFromSubmissions(subs)), *pretty)
}

func readReport(path string) (*fc.Report, error) {
	f, e := fc.NewFiles()
	if e != nil {
		return nil, e
	}

	if e := f.Open(path); e != nil {
		return nil, e
	}
	defer func() { _ = f.Close() }()

	return f.ReadReport()
}

func readSubmissions(path string) ([]*fc.Submission, error) {
	f, e := fc.NewFiles(fc.FileStrict(true))
	if e != nil {
		return nil, e
	}

	if e := f.Open(path); e != nil {
		return nil, e
	}
	defer func() { _ = f.Close() }()

	return f.ReadSubmissions()
}

func fromDB(dialect, table, where string, entries bool) ([]*fc.Submission, error) {
	db, e := s.Connect(dialect, os.Getenv("host"), os.Getenv("user"), os.Getenv("password"), os.Getenv("db"))
	if e != nil {
		return nil, e
	}

	d, e := s.NewDialect(dialect, db)
	if e != nil {
		return nil, e
	}
	defer func() { _ = d.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if entries {
		return d.LoadEntries(ctx, table, where)
	}

	return d.Load(ctx, table, where)
}

func write(path string, v any, pretty bool) {
	indent := ""
	if pretty {
		indent = fc.Indent
	}

	if path == "" {
		if e := fc.WriteJSON(os.Stdout, v, indent); e != nil {
			log.Fatal(e)
		}

		return
	}

	f, e := fc.NewFiles(fc.FileIndent(indent))
	if e != nil {
		log.Fatal(e)
	}

	if e := f.Create(path); e != nil {
		log.Fatal(e)
	}
	defer func() { _ = f.Close() }()

	if e := f.Write(v); e != nil {
		log.Fatal(e)
	}
}
