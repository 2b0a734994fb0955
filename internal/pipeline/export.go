package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
)

// ExportFilename is the suggested download name for ExportCSV output.
const ExportFilename = "pm25_results.csv"

// ExportCSV writes the result header and one row per result.
func ExportCSV(w io.Writer, results []domain.CalculatedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.ResultHeader()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write(r.ResultCells()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
