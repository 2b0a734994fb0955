package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStampDeleted(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 8, 5, 9, 0, time.UTC)))
	defer SetClock(nil)

	row := validObservation().Cells()
	stamped := StampDeleted(row[:5], "ama")

	require.Len(t, stamped, len(DeletedHeader))
	assert.Equal(t, row[:5], stamped[:5])
	assert.Equal(t, "", stamped[5], "short rows are padded")
	assert.Equal(t, "ama", stamped[len(stamped)-2])
	assert.Equal(t, "2025-03-01 08:05:09", stamped[len(stamped)-1])

	assert.Equal(t, PadRow(row[:5], len(ObservationHeader)), UnstampDeleted(stamped))
}
