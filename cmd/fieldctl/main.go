// Command fieldctl works on the field data store without the HTTP server:
// merging, calculating and exporting results, bootstrapping accounts,
// seeding sample observations and checking stored rows.
//
// Usage:
//
//	fieldctl --workbook data/pm25.xlsx seed --days 3
//	fieldctl merge --site 1
//	fieldctl calc --weights weights.csv --out pm25_results.csv
//	fieldctl user add --username ama --name Ama --email ama@example.com --role admin
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/pm25-field-data/internal/app"
	"github.com/couchcryptid/pm25-field-data/internal/config"
	"github.com/couchcryptid/pm25-field-data/internal/domain"
	"github.com/couchcryptid/pm25-field-data/internal/observability"
	"github.com/couchcryptid/pm25-field-data/internal/pipeline"
	"github.com/couchcryptid/pm25-field-data/internal/refdata"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type globalFlags struct {
	workbook    string
	postgresURL string
	refdataPath string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "fieldctl",
		Short:         "Offline tools for the PM2.5 field data store",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&g.workbook, "workbook", sharedcfg.EnvOrDefault("XLSX_PATH", "data/pm25.xlsx"), "Excel workbook holding the tables")
	root.PersistentFlags().StringVar(&g.postgresURL, "postgres-url", os.Getenv("POSTGRES_URL"), "use the postgres store instead of the workbook")
	root.PersistentFlags().StringVar(&g.refdataPath, "refdata", os.Getenv("REFDATA_PATH"), "YAML file of sites and option lists (embedded defaults otherwise)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newMergeCmd(g),
		newCalcCmd(g),
		newExportCmd(g),
		newUserCmd(g),
		newSeedCmd(g),
		newCheckCmd(g),
	)
	return root
}

// openService opens the selected store and returns a bootstrapped service.
// The caller must invoke the returned close function.
func openService(ctx context.Context, g *globalFlags, stderr io.Writer) (*pipeline.Service, func() error, error) {
	cfg := &config.Config{StoreDriver: config.DriverXLSX, XLSXPath: g.workbook}
	if g.postgresURL != "" {
		cfg = &config.Config{StoreDriver: config.DriverPostgres, PostgresURL: g.postgresURL}
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: parseLevel(g.logLevel)}))
	metrics := observability.NewMetricsForTesting()

	ref := refdata.Defaults()
	if g.refdataPath != "" {
		var err error
		if ref, err = refdata.Load(g.refdataPath); err != nil {
			return nil, nil, err
		}
	}

	store, closeStore, err := app.OpenStore(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, nil, err
	}
	svc := pipeline.New(store, refdata.NewSource(ref), logger, metrics)
	if err := svc.Bootstrap(ctx); err != nil {
		_ = closeStore()
		return nil, nil, fmt.Errorf("prepare tables: %w", err)
	}
	return svc, closeStore, nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelWarn
	}
	return level
}

// filterFlags binds --site, --from and --to.
type filterFlags struct {
	site, from, to string
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.site, "site", "", "site id or name")
	cmd.Flags().StringVar(&f.from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.to, "to", "", "last date, YYYY-MM-DD")
}

func (f *filterFlags) filter() (domain.Filter, error) {
	out := domain.Filter{Site: f.site}
	if f.from != "" {
		t, ok := domain.ParseDate(f.from)
		if !ok {
			return domain.Filter{}, fmt.Errorf("--from must be a date (YYYY-MM-DD)")
		}
		out.From = t
	}
	if f.to != "" {
		t, ok := domain.ParseDate(f.to)
		if !ok {
			return domain.Filter{}, fmt.Errorf("--to must be a date (YYYY-MM-DD)")
		}
		out.To = t
	}
	return out, nil
}
