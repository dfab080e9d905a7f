package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"wine-dashboard/internal/models"
	"wine-dashboard/internal/pipeline"
	"wine-dashboard/internal/storage"
)

type queryFlags struct {
	input models.QueryInput
}

func (f *queryFlags) register(cmd *cobra.Command, withFacets bool) {
	flags := cmd.Flags()
	flags.StringArrayVar(&f.input.Countries, "country", nil, "restrict to a country (repeatable)")
	flags.StringArrayVar(&f.input.Wineries, "winery", nil, "restrict to a winery (repeatable)")
	if !withFacets {
		return
	}
	flags.StringVarP(&f.input.Search, "search", "s", "", "case-insensitive text in title, winery, variety or province")
	flags.StringArrayVar(&f.input.Varieties, "variety", nil, "restrict to a grape variety (repeatable)")
	flags.StringVar(&f.input.PriceMin, "price-min", "", "lowest price in euros")
	flags.StringVar(&f.input.PriceMax, "price-max", "", "highest price in euros")
	flags.StringVar(&f.input.PointsMin, "points-min", "", "lowest score")
	flags.StringVar(&f.input.PointsMax, "points-max", "", "highest score")
	flags.StringVar(&f.input.Sort, "sort", "", "points_desc, points_asc, price_desc, price_asc or points_per_euro_desc")
	flags.StringVarP(&f.input.Limit, "limit", "n", "", fmt.Sprintf("rows to show, clamped to [%d, %d]", pipeline.MinLimit, pipeline.MaxLimit))
}

func newQueryCmd(opts *globalOptions) *cobra.Command {
	var f queryFlags
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter, sort and list wines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := f.input.Build(pipeline.DefaultLimit)
			if err != nil {
				return err
			}
			catalog, err := opts.openCatalog(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			result, err := catalog.Query(cmd.Context(), q)
			if err != nil {
				return err
			}
			return newPrinter(cmd, opts.format).viewResult(result)
		},
	}
	f.register(cmd, true)
	return cmd
}

func newRankCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rank",
		Short: "Rank countries by mean points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := opts.openCatalog(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			ranking, err := catalog.Ranking()
			if err != nil {
				return err
			}
			return newPrinter(cmd, opts.format).ranking(ranking, catalog.Overview().BestValue)
		},
	}
}

func newTopCmd(opts *globalOptions) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "List the highest scoring wines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := opts.openCatalog(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			top, err := catalog.Top(n)
			if err != nil {
				return err
			}
			return newPrinter(cmd, opts.format).records(top)
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 10, "number of wines")
	return cmd
}

func newOptionsCmd(opts *globalOptions) *cobra.Command {
	var f queryFlags
	cmd := &cobra.Command{
		Use:   "options",
		Short: "List facet values, cascading from the selected countries and wineries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := f.input.Build(pipeline.DefaultLimit)
			if err != nil {
				return err
			}
			catalog, err := opts.openCatalog(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			options, err := catalog.Options(q.Criteria)
			if err != nil {
				return err
			}
			return newPrinter(cmd, opts.format).options(options)
		},
	}
	f.register(cmd, false)
	return cmd
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the cleaned records to a SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := opts.dataConfig()
			if err != nil {
				return err
			}
			source, err := storage.Open(data, opts.logger(cmd))
			if err != nil {
				return err
			}
			records, err := source.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load %s: %w", source.Name(), err)
			}
			records, dropped := pipeline.Sanitize(records)

			dest := storage.NewSQLiteSource(path, data.Table)
			if err := dest.Save(cmd.Context(), records); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s (%d invalid dropped)\n", len(records), path, dropped)
			return err
		},
	}
	cmd.Flags().StringVar(&path, "sqlite", "", "destination database file")
	_ = cmd.MarkFlagRequired("sqlite")
	return cmd
}
