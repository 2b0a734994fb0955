package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
)

func newMergeCmd(g *globalFlags) *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Pair START and STOP observations into the merged table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := ff.filter()
			if err != nil {
				return err
			}
			svc, closeFn, err := openService(cmd.Context(), g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeFn() //nolint:errcheck // best effort on exit

			result, err := svc.Merge(cmd.Context(), f)
			out := cmd.OutOrStdout()
			switch {
			case errors.Is(err, domain.ErrNothingToMerge):
				fmt.Fprintln(out, err)
			case err != nil:
				return err
			}

			s := result.Summary
			fmt.Fprintf(out, "starts: %d  stops: %d  paired: %d  orphan starts: %d  orphan stops: %d\n",
				s.Starts, s.Stops, s.Paired, s.OrphanStarts, s.OrphanStops)
			return nil
		},
	}
	ff.bind(cmd)
	return cmd
}
