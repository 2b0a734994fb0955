package domain

import "math"

// Validity flags returned instead of a concentration.
const (
	FlagShortElapsed = "Elapsed < 1200"
	FlagInvalidFlow  = "Invalid Flow"
	FlagPostLessPre  = "Post < Pre"
	FlagZeroVolume   = "Zero Volume"
)

// Thresholds for a usable filter sample.
const (
	MinElapsedMinutes = 1200
	MinFlowRate       = 0.05
)

// ConcentrationInput holds the four measured quantities of a filter sample.
type ConcentrationInput struct {
	ElapsedMinutes Number
	FlowRate       Number
	PreWeightG     Number
	PostWeightG    Number
}

// Concentration is either a PM2.5 value in µg/m³ or a flag explaining why the
// sample could not be used.
type Concentration struct {
	Value float64
	Flag  string
}

// Valid reports whether c carries a value.
func (c Concentration) Valid() bool { return c.Flag == "" }

// String renders the value or the flag for a table cell.
func (c Concentration) String() string {
	if !c.Valid() {
		return c.Flag
	}
	return NumberOf(c.Value).String()
}

// ComputeConcentration derives PM2.5 from a weighed sample. Checks run in a
// fixed order and the first failing check decides the flag. Inputs that are
// missing or non-numeric produce an "Error: ..." flag.
func ComputeConcentration(in ConcentrationInput) Concentration {
	fields := []struct {
		name string
		n    Number
	}{
		{"elapsed time", in.ElapsedMinutes},
		{"flow rate", in.FlowRate},
		{"pre weight", in.PreWeightG},
		{"post weight", in.PostWeightG},
	}
	for _, f := range fields {
		switch f.n.State {
		case NumberMissing:
			return Concentration{Flag: "Error: " + f.name + " is missing"}
		case NumberInvalid:
			return Concentration{Flag: "Error: " + f.name + " is not numeric (" + f.n.Raw + ")"}
		}
	}

	elapsed := in.ElapsedMinutes.Value
	flow := in.FlowRate.Value
	pre := in.PreWeightG.Value
	post := in.PostWeightG.Value

	massMg := (post - pre) * 1000

	if elapsed < MinElapsedMinutes {
		return Concentration{Flag: FlagShortElapsed}
	}
	if flow <= MinFlowRate {
		return Concentration{Flag: FlagInvalidFlow}
	}
	if post < pre {
		return Concentration{Flag: FlagPostLessPre}
	}

	volumeM3 := flow * elapsed / 1000
	if volumeM3 == 0 {
		return Concentration{Flag: FlagZeroVolume}
	}

	return Concentration{Value: round2(massMg * 1000 / volumeM3)}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
