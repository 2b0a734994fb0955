package domain

import (
	"encoding/json"
	"strings"
)

// Calculation columns appended after the merged columns.
const (
	ColPreWeight     = "Pre Weight (g)"
	ColPostWeight    = "Post Weight (g)"
	ColConcentration = "PM₂.₅ (µg/m³)"
	ColSavedBy       = "Saved By"
	ColSavedAt       = "Saved At"
)

// CalculationHeader is the header row of the saved calculations table.
var CalculationHeader = append(append([]string{}, MergedHeader...),
	ColPreWeight, ColPostWeight, ColConcentration, ColSavedBy, ColSavedAt)

// WeightEntry attaches filter weights to the merged row at Row.
type WeightEntry struct {
	Row         int    `json:"row"`
	PreWeightG  Number `json:"pre_weight_g"`
	PostWeightG Number `json:"post_weight_g"`
}

// CalculatedRecord is a paired record enriched with weights and the result.
type CalculatedRecord struct {
	PairedRecord
	PreWeightG    Number        `json:"pre_weight_g"`
	PostWeightG   Number        `json:"post_weight_g"`
	Concentration Concentration `json:"pm25"`
	SavedBy       string        `json:"saved_by,omitempty"`
	SavedAt       string        `json:"saved_at,omitempty"`
}

// Calculate runs the concentration calculator over p with the given weights.
func Calculate(p PairedRecord, pre, post Number) CalculatedRecord {
	return CalculatedRecord{
		PairedRecord: p,
		PreWeightG:   pre,
		PostWeightG:  post,
		Concentration: ComputeConcentration(ConcentrationInput{
			ElapsedMinutes: p.ElapsedDiff,
			FlowRate:       p.AverageFlow,
			PreWeightG:     pre,
			PostWeightG:    post,
		}),
	}
}

// Cells encodes c in CalculationHeader order.
func (c CalculatedRecord) Cells() []string {
	return append(c.PairedRecord.Cells(),
		c.PreWeightG.String(),
		c.PostWeightG.String(),
		c.Concentration.String(),
		c.SavedBy,
		c.SavedAt,
	)
}

// ResultCells encodes c without the save stamps, for exports.
func (c CalculatedRecord) ResultCells() []string {
	cells := c.Cells()
	return cells[:len(cells)-2]
}

// ResultHeader is CalculationHeader without the save stamps.
func ResultHeader() []string {
	n := len(CalculationHeader) - 2
	return CalculationHeader[:n:n]
}

// DecodeCalculated decodes every row of a saved calculations table.
func DecodeCalculated(t Table) []CalculatedRecord {
	records := t.Records()
	out := make([]CalculatedRecord, len(records))
	for i, r := range records {
		out[i] = CalculatedRecord{
			PairedRecord:  PairedFromRecord(r),
			PreWeightG:    ParseNumber(r.Get(ColPreWeight)),
			PostWeightG:   ParseNumber(r.Get(ColPostWeight)),
			Concentration: concentrationFromCell(r.Get(ColConcentration)),
			SavedBy:       r.Get(ColSavedBy),
			SavedAt:       r.Get(ColSavedAt),
		}
	}
	return out
}

func concentrationFromCell(s string) Concentration {
	n := ParseNumber(s)
	if n.IsValid() {
		return Concentration{Value: n.Value}
	}
	return Concentration{Flag: strings.TrimSpace(s)}
}

// MarshalJSON writes the value as a number or the flag as a string.
func (c Concentration) MarshalJSON() ([]byte, error) {
	if c.Valid() {
		return json.Marshal(c.Value)
	}
	return json.Marshal(c.Flag)
}

// UnmarshalJSON reverses MarshalJSON.
func (c *Concentration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		*c = Concentration{Value: x}
	case string:
		*c = concentrationFromCell(x)
	default:
		*c = Concentration{}
	}
	return nil
}
