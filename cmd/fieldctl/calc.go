package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
	"github.com/couchcryptid/pm25-field-data/internal/pipeline"
)

func newCalcCmd(g *globalFlags) *cobra.Command {
	var (
		weightsPath string
		outPath     string
		save        bool
		user        string
	)
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute PM2.5 for merged rows from a CSV of filter weights",
		Long: "The weights file has one line per merged row: row,pre_weight_g,post_weight_g.\n" +
			"A header line is skipped when its first cell is not a number.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if weightsPath == "" {
				return errors.New("--weights is required")
			}
			if save && strings.TrimSpace(user) == "" {
				return errors.New("--user is required with --save")
			}

			f, err := os.Open(weightsPath)
			if err != nil {
				return err
			}
			defer f.Close()
			entries, err := parseWeights(f)
			if err != nil {
				return fmt.Errorf("%s: %w", weightsPath, err)
			}

			svc, closeFn, err := openService(cmd.Context(), g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeFn() //nolint:errcheck // best effort on exit

			results, err := svc.Calculate(cmd.Context(), entries)
			if err != nil {
				return err
			}
			if save {
				if results, err = svc.SaveCalculations(cmd.Context(), user, results); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "saved %d result(s)\n", len(results))
			}
			return writeResults(cmd.OutOrStdout(), outPath, results)
		},
	}
	cmd.Flags().StringVar(&weightsPath, "weights", "", "CSV of row,pre_weight_g,post_weight_g")
	cmd.Flags().StringVar(&outPath, "out", "", "write CSV here instead of stdout")
	cmd.Flags().BoolVar(&save, "save", false, "append the results to the calculations table")
	cmd.Flags().StringVar(&user, "user", "", "username recorded on saved results")
	return cmd
}

// parseWeights reads row,pre,post lines. Weights are kept as text so that
// unreadable values reach the calculator and come back flagged.
func parseWeights(r io.Reader) ([]domain.WeightEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	var entries []domain.WeightEntry
	for i, rec := range records {
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		row, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("line %d: row %q is not a number", i+1, rec[0])
		}
		if row < domain.FirstDataRow {
			return nil, fmt.Errorf("line %d: row must be >= %d", i+1, domain.FirstDataRow)
		}
		e := domain.WeightEntry{Row: row}
		if len(rec) > 1 {
			e.PreWeightG = domain.ParseNumber(rec[1])
		}
		if len(rec) > 2 {
			e.PostWeightG = domain.ParseNumber(rec[2])
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, errors.New("no weight entries")
	}
	return entries, nil
}

// writeResults writes CSV to path, or to stdout when path is empty.
func writeResults(stdout io.Writer, path string, results []domain.CalculatedRecord) error {
	if path == "" {
		return pipeline.ExportCSV(stdout, results)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := pipeline.ExportCSV(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
