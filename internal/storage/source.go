package storage

import (
	"context"
	"fmt"
	"log/slog"

	"wine-dashboard/internal/config"
	"wine-dashboard/internal/ingest"
	"wine-dashboard/internal/models"
)

// Source supplies the cleaned RecordSet for a session.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]models.Record, error)
}

// Open returns the source selected by DATA_SOURCE.
func Open(cfg config.DataConfig, logger *slog.Logger) (Source, error) {
	switch cfg.Source {
	case config.SourceCSV:
		return NewCSVSource(ingest.NewLoader(cfg.CSVFile, cfg.CacheDir, logger)), nil
	case config.SourceSQLite:
		return NewSQLiteSource(cfg.SQLiteFile, cfg.Table), nil
	case config.SourcePostgres:
		return NewPostgresSource(cfg.PostgresDSN, cfg.Table), nil
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.Source)
	}
}

type CSVSource struct {
	loader *ingest.Loader
}

func NewCSVSource(loader *ingest.Loader) *CSVSource {
	return &CSVSource{loader: loader}
}

func (s *CSVSource) Name() string { return "csv:" + s.loader.CSVPath }

func (s *CSVSource) Load(ctx context.Context) ([]models.Record, error) {
	records, _, err := s.loader.Load(ctx)
	return records, err
}

const selectColumns = `title, country, province, region, winery, variety, designation, points, price`

func validTable(name string) error {
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	for _, r := range name {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return fmt.Errorf("invalid table name %q", name)
		}
	}
	return nil
}
