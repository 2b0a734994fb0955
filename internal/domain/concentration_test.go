package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func input(elapsed, flow, pre, post string) ConcentrationInput {
	return ConcentrationInput{
		ElapsedMinutes: ParseNumber(elapsed),
		FlowRate:       ParseNumber(flow),
		PreWeightG:     ParseNumber(pre),
		PostWeightG:    ParseNumber(post),
	}
}

func TestComputeConcentration(t *testing.T) {
	tests := []struct {
		name  string
		in    ConcentrationInput
		value float64
		flag  string
	}{
		{"typical sample", input("1500", "16.7", "2.1000", "2.1050"), 199.6, ""},
		{"equal weights", input("1440", "16.7", "2.1", "2.1"), 0, ""},
		{"elapsed exactly 1200 passes", input("1200", "5", "1", "1.001"), 166.67, ""},
		{"short elapsed", input("1199", "16.7", "2.1", "2.2"), 0, FlagShortElapsed},
		{"flow at threshold", input("1500", "0.05", "2.1", "2.2"), 0, FlagInvalidFlow},
		{"negative flow", input("1500", "-1", "2.1", "2.2"), 0, FlagInvalidFlow},
		{"post below pre", input("1500", "16.7", "2.2", "2.1"), 0, FlagPostLessPre},
		{"elapsed checked before flow", input("10", "0", "2.2", "2.1"), 0, FlagShortElapsed},
		{"flow checked before weights", input("1500", "0", "2.2", "2.1"), 0, FlagInvalidFlow},
		{"missing pre weight", input("1500", "16.7", "", "2.1"), 0, "Error: pre weight is missing"},
		{"non-numeric flow", input("1500", "fast", "2.1", "2.2"), 0, "Error: flow rate is not numeric (fast)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeConcentration(tt.in)
			assert.Equal(t, tt.flag, got.Flag)
			if tt.flag == "" {
				assert.True(t, got.Valid())
				assert.InDelta(t, tt.value, got.Value, 1e-9)
			} else {
				assert.False(t, got.Valid())
			}
		})
	}
}

func TestConcentrationString(t *testing.T) {
	assert.Equal(t, "199.6", Concentration{Value: 199.6}.String())
	assert.Equal(t, FlagZeroVolume, Concentration{Flag: FlagZeroVolume}.String())
}

func TestCalculate(t *testing.T) {
	paired, _ := Pair([]Observation{
		obs(EntryStart, "1", "Kaneshie First Light", "0", "16.7"),
		obs(EntryStop, "1", "Kaneshie First Light", "1500", "16.7"),
	})
	require.Len(t, paired, 1)

	rec := Calculate(paired[0], NumberOf(2.1), NumberOf(2.105))
	assert.True(t, rec.Concentration.Valid())
	assert.InDelta(t, 199.6, rec.Concentration.Value, 1e-9)

	cells := rec.Cells()
	require.Len(t, cells, len(CalculationHeader))
	assert.Equal(t, "2.1", cells[len(MergedHeader)])
	assert.Equal(t, "2.105", cells[len(MergedHeader)+1])
	assert.Equal(t, "199.6", cells[len(MergedHeader)+2])
	assert.Len(t, rec.ResultCells(), len(ResultHeader()))
}

func TestDecodeCalculated(t *testing.T) {
	paired, _ := Pair([]Observation{
		obs(EntryStart, "4", "La", "0", "16.7"),
		obs(EntryStop, "4", "La", "600", "16.7"),
	})
	require.Len(t, paired, 1)

	rec := Calculate(paired[0], NumberOf(2.1), NumberOf(2.2))
	rec.SavedBy = "ama"
	rec.SavedAt = "2025-03-02 10:00:00"

	decoded := DecodeCalculated(Table{Header: CalculationHeader, Rows: [][]string{rec.Cells()}})
	require.Len(t, decoded, 1)
	assert.Equal(t, FlagShortElapsed, decoded[0].Concentration.Flag)
	assert.Equal(t, "ama", decoded[0].SavedBy)
	assert.Equal(t, rec.Cells(), decoded[0].Cells())
}

func TestConcentrationJSON(t *testing.T) {
	data, err := json.Marshal([]Concentration{{Value: 12.5}, {Flag: FlagInvalidFlow}})
	require.NoError(t, err)
	assert.JSONEq(t, `[12.5,"Invalid Flow"]`, string(data))

	var back []Concentration
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []Concentration{{Value: 12.5}, {Flag: FlagInvalidFlow}}, back)
}
