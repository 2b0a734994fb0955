package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
	"github.com/couchcryptid/pm25-field-data/internal/pipeline"
)

// phase tracks pass/fail for a check phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newCheckCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check stored observations and saved results for integrity problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := openService(cmd.Context(), g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeFn() //nolint:errcheck // best effort on exit

			phases, summary, err := runChecks(cmd, svc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pairing: %d paired, %d orphan START, %d orphan STOP\n",
				summary.Paired, summary.OrphanStarts, summary.OrphanStops)
			failed := 0
			for _, p := range phases {
				if p.passed() {
					fmt.Fprintf(out, "PASS  %s\n", p.name)
					continue
				}
				failed++
				fmt.Fprintf(out, "FAIL  %s (%d)\n", p.name, len(p.errors))
				for _, e := range p.errors {
					fmt.Fprintf(out, "      %s\n", e)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(phases))
			}
			return nil
		},
	}
}

// runChecks validates every observation row against the reference lists
// and recomputes every saved result. Orphan rows are reported in the
// summary only; unfinished samples are expected.
func runChecks(cmd *cobra.Command, svc *pipeline.Service) ([]*phase, domain.PairingSummary, error) {
	ctx := cmd.Context()
	ref := svc.Reference()

	observations, err := svc.ListObservations(ctx, domain.Filter{})
	if err != nil {
		return nil, domain.PairingSummary{}, err
	}
	rows := &phase{name: "observation rows"}
	for _, o := range observations {
		if err := o.Normalize(ref).Validate(ref); err != nil {
			rows.errorf("row %d: %v", o.Row, err)
		}
	}

	_, summary := domain.Pair(observations)

	saved, err := svc.ListSaved(ctx, domain.Filter{})
	if err != nil {
		return nil, summary, err
	}
	results := &phase{name: "saved results"}
	for i, r := range saved {
		want := domain.Calculate(r.PairedRecord, r.PreWeightG, r.PostWeightG).Concentration
		if want.String() != r.Concentration.String() {
			results.errorf("result %d (site %s, %s): stored %q, recomputed %q",
				i+domain.FirstDataRow, r.SiteID, r.Start.Date, r.Concentration.String(), want.String())
		}
	}

	return []*phase{rows, results}, summary, nil
}
