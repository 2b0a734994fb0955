// Package storetest holds behaviour tests shared by every record store adapter.
package storetest

import (
	"context"
	"testing"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) domain.RecordStore

// Run exercises the domain.RecordStore contract, and domain.RowMover when the
// store implements it.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()
	header := []string{"ID", "Site", "Value"}

	t.Run("missing table", func(t *testing.T) {
		s := newStore(t)
		_, err := s.ReadAll(ctx, "nope")
		require.ErrorIs(t, err, domain.ErrTableNotFound)
		require.ErrorIs(t, s.AppendRow(ctx, "nope", []string{"x"}), domain.ErrTableNotFound)
	})

	t.Run("ensure then append", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureTable(ctx, "T", header))
		require.NoError(t, s.AppendRow(ctx, "T", []string{"1", "La", "3.5"}))
		require.NoError(t, s.AppendRow(ctx, "T", []string{"4", "Weija", ""}))

		got, err := s.ReadAll(ctx, "T")
		require.NoError(t, err)
		assert.Equal(t, header, got.Header)
		require.Len(t, got.Rows, 2)
		assert.Equal(t, []string{"1", "La", "3.5"}, got.Rows[0])
		assert.Equal(t, "Weija", got.Rows[1][1])
	})

	t.Run("ensure keeps existing rows", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureTable(ctx, "T", header))
		require.NoError(t, s.AppendRow(ctx, "T", []string{"1", "La", "3.5"}))
		require.NoError(t, s.EnsureTable(ctx, "T", header))

		got, err := s.ReadAll(ctx, "T")
		require.NoError(t, err)
		assert.Len(t, got.Rows, 1)
	})

	t.Run("update cell", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.ReplaceTable(ctx, "T", header, [][]string{{"1", "La", "3.5"}, {"2", "Weija", "1"}}))
		require.NoError(t, s.UpdateCell(ctx, "T", 3, 3, "9"))

		got, err := s.ReadAll(ctx, "T")
		require.NoError(t, err)
		assert.Equal(t, "9", got.Rows[1][2])
		assert.Equal(t, "3.5", got.Rows[0][2])

		require.ErrorIs(t, s.UpdateCell(ctx, "T", 1, 1, "x"), domain.ErrRowOutOfRange, "header row is not writable")
		require.ErrorIs(t, s.UpdateCell(ctx, "T", 10, 1, "x"), domain.ErrRowOutOfRange)
	})

	t.Run("delete row shifts later rows up", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.ReplaceTable(ctx, "T", header, [][]string{{"1", "a", ""}, {"2", "b", ""}, {"3", "c", ""}}))
		require.NoError(t, s.DeleteRow(ctx, "T", 3))

		got, err := s.ReadAll(ctx, "T")
		require.NoError(t, err)
		require.Len(t, got.Rows, 2)
		assert.Equal(t, "1", got.Rows[0][0])
		assert.Equal(t, "3", got.Rows[1][0])

		require.ErrorIs(t, s.DeleteRow(ctx, "T", 4), domain.ErrRowOutOfRange)
	})

	t.Run("replace discards previous content", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.ReplaceTable(ctx, "T", header, [][]string{{"1", "a", ""}, {"2", "b", ""}}))
		require.NoError(t, s.ReplaceTable(ctx, "T", []string{"A", "B"}, [][]string{{"x", "y"}}))

		got, err := s.ReadAll(ctx, "T")
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, got.Header)
		assert.Equal(t, [][]string{{"x", "y"}}, got.Rows)
	})

	t.Run("merged table round trip", func(t *testing.T) {
		s := newStore(t)
		start := domain.Observation{
			EntryType: domain.EntryStart, SiteID: "1", SiteName: "Kaneshie First Light",
			Officers: []string{"Obed"}, Driver: "Kofi", Date: "2025-03-01", Time: "08:00",
			ElapsedMinutes: domain.NumberOf(0), FlowRate: domain.NumberOf(16.7),
		}
		stop := start
		stop.EntryType = domain.EntryStop
		stop.ElapsedMinutes = domain.NumberOf(1500)
		paired, _ := domain.Pair([]domain.Observation{start, stop})
		require.Len(t, paired, 1)

		require.NoError(t, s.ReplaceTable(ctx, domain.TableMerged, domain.MergedHeader, [][]string{paired[0].Cells()}))
		got, err := s.ReadAll(ctx, domain.TableMerged)
		require.NoError(t, err)

		decoded := domain.DecodePaired(got)
		require.Len(t, decoded, 1)
		assert.Equal(t, paired[0].Cells(), decoded[0].Cells())
	})

	t.Run("move row", func(t *testing.T) {
		s := newStore(t)
		mover, ok := s.(domain.RowMover)
		if !ok {
			t.Skip("store does not implement RowMover")
		}
		require.NoError(t, s.ReplaceTable(ctx, "A", header, [][]string{{"1", "a", ""}, {"2", "b", ""}}))
		require.NoError(t, s.EnsureTable(ctx, "B", append(header, "Note")))

		require.NoError(t, mover.MoveRow(ctx, "A", 2, "B", func(row []string) []string {
			return append(row, "moved")
		}))

		a, err := s.ReadAll(ctx, "A")
		require.NoError(t, err)
		b, err := s.ReadAll(ctx, "B")
		require.NoError(t, err)
		require.Len(t, a.Rows, 1)
		assert.Equal(t, "2", a.Rows[0][0])
		require.Len(t, b.Rows, 1)
		assert.Equal(t, []string{"1", "a", "", "moved"}, b.Rows[0])

		require.ErrorIs(t, mover.MoveRow(ctx, "A", 9, "B", nil), domain.ErrRowOutOfRange)
		require.ErrorIs(t, mover.MoveRow(ctx, "A", 2, "missing", nil), domain.ErrTableNotFound)

		a, err = s.ReadAll(ctx, "A")
		require.NoError(t, err)
		assert.Len(t, a.Rows, 1, "failed moves leave the source intact")
	})
}
