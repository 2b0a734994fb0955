package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
	"github.com/couchcryptid/pm25-field-data/internal/pipeline"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseWeights(t *testing.T) {
	entries, err := parseWeights(strings.NewReader("row,pre_weight_g,post_weight_g\n2, 2.1000, 2.1050\n\n3,abc\n"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, entries[0].Row)
	assert.InDelta(t, 2.105, entries[0].PostWeightG.Value, 1e-9)
	assert.Equal(t, domain.NumberInvalid, entries[1].PreWeightG.State)
	assert.Equal(t, domain.NumberMissing, entries[1].PostWeightG.State)

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"header only", "row,pre,post\n"},
		{"bad row", "2,1,1\nx,1,1\n"},
		{"header row", "1,2.1,2.2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseWeights(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestFieldctl_Workflow(t *testing.T) {
	dir := t.TempDir()
	workbook := filepath.Join(dir, "pm25.xlsx")
	wb := "--workbook=" + workbook

	out, err := runCLI(t, wb, "seed", "--days", "1", "--start", "2025-02-03")
	require.NoError(t, err)
	assert.Contains(t, out, "submitted 20 observations")

	out, err = runCLI(t, wb, "merge")
	require.NoError(t, err)
	assert.Contains(t, out, "paired: 10")

	out, err = runCLI(t, wb, "merge", "--site", "Nowhere")
	require.NoError(t, err, "nothing to merge is reported, not failed")
	assert.Contains(t, out, "nothing to merge")

	weights := filepath.Join(dir, "weights.csv")
	require.NoError(t, os.WriteFile(weights, []byte("row,pre,post\n2,2.1000,2.1050\n3,2.2,2.1\n"), 0o600))

	results := filepath.Join(dir, pipeline.ExportFilename)
	_, err = runCLI(t, wb, "calc", "--weights", weights, "--save", "--user", "ama", "--out", results)
	require.NoError(t, err)

	f, err := os.Open(results)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, domain.FlagPostLessPre, records[2][len(records[2])-1])

	out, err = runCLI(t, wb, "export", "--site", "1")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"), out)

	out, err = runCLI(t, wb, "check")
	require.NoError(t, err, out)
	assert.Contains(t, out, "PASS  observation rows")
	assert.Contains(t, out, "PASS  saved results")
	assert.Contains(t, out, "10 paired")

	_, err = runCLI(t, wb, "user", "add", "--username", "ama", "--name", "Ama", "--email", "ama@example.com", "--role", "admin", "--password", "s3cret!")
	require.NoError(t, err)
	out, err = runCLI(t, wb, "user", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ama")
	assert.Contains(t, out, "admin")
}

func TestFieldctl_CalcRequiresUserToSave(t *testing.T) {
	_, err := runCLI(t, "--workbook="+filepath.Join(t.TempDir(), "x.xlsx"), "calc", "--weights", "w.csv", "--save")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user")
}
