package ingest

import (
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wine-dashboard/internal/models"
)

const cacheVersion = "v1"

type cachedSet struct {
	Records      []models.Record
	Report       Report
	LastModified time.Time
}

// Loader reads the dataset and keeps a gob copy of the cleaned records in
// CacheDir. The cache is used while it is newer than the CSV file.
type Loader struct {
	CSVPath  string
	CacheDir string
	Logger   *slog.Logger
}

func NewLoader(csvPath, cacheDir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{CSVPath: csvPath, CacheDir: cacheDir, Logger: logger}
}

func (l *Loader) Load(ctx context.Context) ([]models.Record, Report, error) {
	if cached, err := l.loadFromCache(); err == nil {
		fileInfo, err := os.Stat(l.CSVPath)
		if err == nil && fileInfo.ModTime().Before(cached.LastModified) {
			l.Logger.Info("loaded from cache", "records", len(cached.Records))
			return cached.Records, cached.Report, nil
		}
	}

	start := time.Now()
	l.Logger.Info("processing CSV file", "filename", l.CSVPath)

	rows, err := ReadCSV(ctx, l.CSVPath)
	if err != nil {
		return nil, Report{}, fmt.Errorf("process csv: %w", err)
	}
	records, report := Clean(rows)

	if err := l.saveToCache(records, report); err != nil {
		l.Logger.Warn("failed to save cache", "error", err)
	}

	duration := time.Since(start)
	l.Logger.Info("csv processing complete",
		"rows", report.Rows,
		"kept", report.Kept,
		"imputed", report.Imputed,
		"median_price", report.MedianPrice,
		"duration", duration)

	return records, report, nil
}

func (l *Loader) cacheFilename() string {
	name := strings.ReplaceAll(filepath.ToSlash(l.CSVPath), "/", "_")
	return filepath.Join(l.CacheDir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

func (l *Loader) saveToCache(records []models.Record, report Report) error {
	if l.CacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(l.CacheDir, 0o755); err != nil {
		return err
	}

	file, err := os.Create(l.cacheFilename())
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(cachedSet{
		Records:      records,
		Report:       report,
		LastModified: time.Now(),
	})
}

func (l *Loader) loadFromCache() (*cachedSet, error) {
	if l.CacheDir == "" {
		return nil, os.ErrNotExist
	}
	file, err := os.Open(l.cacheFilename())
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var data cachedSet
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
