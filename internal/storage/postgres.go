package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wine-dashboard/internal/models"
)

// PostgresSource reads the RecordSet from a table with the same columns as
// the SQLite export, id included. Nullable text columns are read as empty
// strings.
type PostgresSource struct {
	dsn   string
	table string
}

func NewPostgresSource(dsn, table string) *PostgresSource {
	return &PostgresSource{dsn: dsn, table: table}
}

func (s *PostgresSource) Name() string { return "postgres:" + s.table }

func (s *PostgresSource) Load(ctx context.Context) ([]models.Record, error) {
	if err := validTable(s.table); err != nil {
		return nil, err
	}

	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, postgresLoadQuery(s.table))
	if err != nil {
		return nil, fmt.Errorf("postgres: query %s: %w", s.table, err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Record, error) {
		var r models.Record
		err := row.Scan(&r.Title, &r.Country, &r.Province, &r.Region, &r.Winery, &r.Variety, &r.Designation, &r.Points, &r.Price)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan: %w", err)
	}
	return records, nil
}

// postgresLoadQuery orders by the export's id column. It sticks to SQL that
// SQLite also accepts so it can be checked against an export.
func postgresLoadQuery(table string) string {
	return fmt.Sprintf(`
		SELECT title, country,
		       COALESCE(province, ''), COALESCE(region, ''),
		       winery, COALESCE(variety, ''), COALESCE(designation, ''),
		       points, CAST(price AS double precision)
		FROM %s
		ORDER BY id`, table)
}
