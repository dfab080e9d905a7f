package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"wine-dashboard/internal/config"
	"wine-dashboard/internal/observability"
	"wine-dashboard/internal/services"
	"wine-dashboard/internal/storage"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// globalOptions are the persistent flags. Unset flags fall back to the
// same environment variables the web server reads.
type globalOptions struct {
	source      string
	csvFile     string
	sqliteFile  string
	postgresDSN string
	table       string
	cacheDir    string
	format      string
	logLevel    string
}

// NewRootCmd creates the winequery command tree.
func NewRootCmd(version string) *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "winequery",
		Short:         "Query the EU wine dataset from the command line",
		Long:          "winequery runs the dashboard's filter, sort and ranking pipeline against a CSV, SQLite or PostgreSQL source.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # Ten best Portuguese wines under 20 euros
  winequery query --country Portugal --price-max 20 --limit 10

  # Country ranking as JSON
  winequery rank --format json

  # Copy the cleaned CSV into SQLite
  winequery export --sqlite data/wines.db`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.format {
			case formatTable, formatJSON:
				return nil
			default:
				return fmt.Errorf("unknown format %q, must be %s or %s", opts.format, formatTable, formatJSON)
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.source, "source", "", "record source: csv, sqlite or postgres (default $DATA_SOURCE or csv)")
	flags.StringVar(&opts.csvFile, "csv", "", "path to the winemag CSV file")
	flags.StringVar(&opts.sqliteFile, "sqlite-file", "", "path to a SQLite database written by export")
	flags.StringVar(&opts.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string")
	flags.StringVar(&opts.table, "table", "", "table holding the records")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "directory for the parsed CSV cache")
	flags.StringVarP(&opts.format, "format", "o", formatTable, "output format: table or json")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	cmd.AddCommand(
		newQueryCmd(opts),
		newRankCmd(opts),
		newTopCmd(opts),
		newOptionsCmd(opts),
		newExportCmd(opts),
	)
	return cmd
}

// dataConfig merges the flags over the environment configuration.
func (o *globalOptions) dataConfig() (config.DataConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.DataConfig{}, err
	}
	data := cfg.Data

	if o.source != "" {
		data.Source = o.source
	} else if o.csvFile != "" {
		data.Source = config.SourceCSV
	} else if o.sqliteFile != "" {
		data.Source = config.SourceSQLite
	}
	if o.csvFile != "" {
		data.CSVFile = o.csvFile
	}
	if o.sqliteFile != "" {
		data.SQLiteFile = o.sqliteFile
	}
	if o.postgresDSN != "" {
		data.PostgresDSN = o.postgresDSN
	}
	if o.table != "" {
		data.Table = o.table
	}
	if o.cacheDir != "" {
		data.CacheDir = o.cacheDir
	}
	return data, nil
}

func (o *globalOptions) logger(cmd *cobra.Command) *slog.Logger {
	return observability.NewLoggerTo(cmd.ErrOrStderr(), config.LoggerConfig{Level: o.logLevel, Format: "text"})
}

// openCatalog loads the configured source into a fresh catalog.
func (o *globalOptions) openCatalog(ctx context.Context, cmd *cobra.Command) (*services.Catalog, error) {
	data, err := o.dataConfig()
	if err != nil {
		return nil, err
	}
	logger := o.logger(cmd)

	source, err := storage.Open(data, logger)
	if err != nil {
		return nil, err
	}

	if data.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, data.LoadTimeout)
		defer cancel()
	}

	catalog := services.NewCatalog(0, logger)
	if err := catalog.Load(ctx, source); err != nil {
		return nil, err
	}
	return catalog, nil
}
