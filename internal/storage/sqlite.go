package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"wine-dashboard/internal/models"
)

// SQLiteSource reads and writes the RecordSet in a single SQLite table.
// The id column keeps the RecordSet order; a PostgreSQL table loaded from an
// export has the same columns.
type SQLiteSource struct {
	path  string
	table string
}

func NewSQLiteSource(path, table string) *SQLiteSource {
	return &SQLiteSource{path: path, table: table}
}

func (s *SQLiteSource) Name() string { return "sqlite:" + s.path }

func (s *SQLiteSource) open() (*sql.DB, error) {
	if err := validTable(s.table); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", s.path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func (s *SQLiteSource) Load(ctx context.Context) ([]models.Record, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s ORDER BY id`, selectColumns, s.table))
	if err != nil {
		return nil, fmt.Errorf("sqlite: query %s: %w", s.table, err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var r models.Record
		if err := rows.Scan(&r.Title, &r.Country, &r.Province, &r.Region, &r.Winery, &r.Variety, &r.Designation, &r.Points, &r.Price); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}
	return records, nil
}

// Save replaces the table contents with records in one transaction.
func (s *SQLiteSource) Save(ctx context.Context, records []models.Record) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	schema := []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.table),
		fmt.Sprintf(`CREATE TABLE %s (
			id          INTEGER PRIMARY KEY,
			title       TEXT    NOT NULL,
			country     TEXT    NOT NULL,
			province    TEXT    NOT NULL DEFAULT '',
			region      TEXT    NOT NULL DEFAULT '',
			winery      TEXT    NOT NULL,
			variety     TEXT    NOT NULL DEFAULT '',
			designation TEXT    NOT NULL DEFAULT '',
			points      INTEGER NOT NULL,
			price       REAL    NOT NULL CHECK (price > 0)
		)`, s.table),
		fmt.Sprintf(`CREATE INDEX idx_%[1]s_country ON %[1]s(country)`, s.table),
	}
	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: create %s: %w", s.table, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table, selectColumns))
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Title, r.Country, r.Province, r.Region, r.Winery, r.Variety, r.Designation, r.Points, r.Price); err != nil {
			return fmt.Errorf("sqlite: insert %q: %w", r.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}
