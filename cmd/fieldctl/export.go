package main

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/pm25-field-data/internal/pipeline"
)

func newExportCmd(g *globalFlags) *cobra.Command {
	var (
		ff      filterFlags
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write saved calculations as CSV",
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

			results, err := svc.ListSaved(cmd.Context(), f)
			if err != nil {
				return err
			}
			return writeResults(cmd.OutOrStdout(), outPath, results)
		},
	}
	ff.bind(cmd)
	cmd.Flags().StringVar(&outPath, "out", "", "write here instead of stdout (e.g. "+pipeline.ExportFilename+")")
	return cmd
}
