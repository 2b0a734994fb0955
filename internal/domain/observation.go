package domain

import (
	"slices"
	"strings"
	"time"
)

// Observation columns, in table order.
const (
	ColEntryType     = "Entry Type"
	ColID            = "ID"
	ColSite          = "Site"
	ColOfficer       = "Monitoring Officer"
	ColDriver        = "Driver"
	ColDate          = "Date"
	ColTime          = "Time"
	ColTemperature   = "Temperature (°C)"
	ColHumidity      = "RH (%)"
	ColPressure      = "Pressure (mbar)"
	ColWeather       = "Weather"
	ColWindSpeed     = "Wind Speed"
	ColWindDirection = "Wind Direction"
	ColElapsed       = "Elapsed Time (min)"
	ColFlowRate      = "Flow Rate (L/min)"
	ColObservation   = "Observation"
	ColSubmittedBy   = "Submitted By"
	ColSubmittedAt   = "Submitted At"
)

// Stamp layouts.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// ObservationHeader is the header row of the observations table.
var ObservationHeader = []string{
	ColEntryType, ColID, ColSite, ColOfficer, ColDriver, ColDate, ColTime,
	ColTemperature, ColHumidity, ColPressure, ColWeather, ColWindSpeed,
	ColWindDirection, ColElapsed, ColFlowRate, ColObservation,
	ColSubmittedBy, ColSubmittedAt,
}

// EntryType marks an observation as the start or the end of a sampling run.
type EntryType string

const (
	EntryStart EntryType = "START"
	EntryStop  EntryType = "STOP"
)

// Observation is one START or STOP row.
type Observation struct {
	Row              int       `json:"row,omitempty"`
	EntryType        EntryType `json:"entry_type"`
	SiteID           string    `json:"site_id"`
	SiteName         string    `json:"site_name"`
	Officers         []string  `json:"officers"`
	Driver           string    `json:"driver"`
	Date             string    `json:"date"`
	Time             string    `json:"time"`
	Temperature      Number    `json:"temperature"`
	RelativeHumidity Number    `json:"relative_humidity"`
	Pressure         Number    `json:"pressure"`
	Weather          string    `json:"weather"`
	WindSpeed        string    `json:"wind_speed"`
	WindDirection    string    `json:"wind_direction"`
	ElapsedMinutes   Number    `json:"elapsed_time_minutes"`
	FlowRate         Number    `json:"flow_rate_l_per_min"`
	Notes            string    `json:"observation"`
	SubmittedBy      string    `json:"submitted_by"`
	SubmittedAt      string    `json:"submitted_at"`
}

// Cells encodes o in ObservationHeader order.
func (o Observation) Cells() []string {
	return []string{
		string(o.EntryType),
		o.SiteID,
		o.SiteName,
		strings.Join(o.Officers, OfficerSeparator+" "),
		o.Driver,
		o.Date,
		o.Time,
		o.Temperature.String(),
		o.RelativeHumidity.String(),
		o.Pressure.String(),
		o.Weather,
		o.WindSpeed,
		o.WindDirection,
		o.ElapsedMinutes.String(),
		o.FlowRate.String(),
		o.Notes,
		o.SubmittedBy,
		o.SubmittedAt,
	}
}

// ObservationFromRecord decodes an observation. Columns other than ID and
// Site are looked up with suffix appended, so the same decoder reads the
// START and STOP halves of a merged row.
func ObservationFromRecord(r Record, suffix string) Observation {
	col := func(name string) string { return r.Get(name + suffix) }
	return Observation{
		Row:              r.Row,
		EntryType:        EntryType(col(ColEntryType)),
		SiteID:           r.Get(ColID),
		SiteName:         r.Get(ColSite),
		Officers:         splitOfficers(col(ColOfficer)),
		Driver:           col(ColDriver),
		Date:             col(ColDate),
		Time:             col(ColTime),
		Temperature:      ParseNumber(col(ColTemperature)),
		RelativeHumidity: ParseNumber(col(ColHumidity)),
		Pressure:         ParseNumber(col(ColPressure)),
		Weather:          col(ColWeather),
		WindSpeed:        col(ColWindSpeed),
		WindDirection:    col(ColWindDirection),
		ElapsedMinutes:   ParseNumber(col(ColElapsed)),
		FlowRate:         ParseNumber(col(ColFlowRate)),
		Notes:            col(ColObservation),
		SubmittedBy:      col(ColSubmittedBy),
		SubmittedAt:      col(ColSubmittedAt),
	}
}

// DecodeObservations decodes every row of an observations table.
func DecodeObservations(t Table) []Observation {
	records := t.Records()
	out := make([]Observation, len(records))
	for i, r := range records {
		out[i] = ObservationFromRecord(r, "")
	}
	return out
}

// OfficerSeparator joins officer names in a single cell. Names may not
// contain it.
const OfficerSeparator = ","

func trimOfficers(names []string) []string {
	var out []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func splitOfficers(s string) []string {
	return trimOfficers(strings.Split(s, OfficerSeparator))
}

// Normalize trims free-text fields and fills a blank site name from ref.
func (o Observation) Normalize(ref Reference) Observation {
	o.EntryType = EntryType(strings.ToUpper(strings.TrimSpace(string(o.EntryType))))
	o.SiteID = strings.TrimSpace(o.SiteID)
	o.SiteName = strings.TrimSpace(o.SiteName)
	o.Driver = strings.TrimSpace(o.Driver)
	o.Date = strings.TrimSpace(o.Date)
	o.Time = strings.TrimSpace(o.Time)
	o.Weather = strings.TrimSpace(o.Weather)
	o.WindSpeed = strings.TrimSpace(o.WindSpeed)
	o.WindDirection = strings.TrimSpace(o.WindDirection)
	o.Notes = strings.TrimSpace(o.Notes)
	o.Officers = trimOfficers(o.Officers)
	if o.SiteName == "" {
		if site, ok := ref.SiteByID(o.SiteID); ok {
			o.SiteName = site.Name
		}
	}
	return o
}

// Validate checks a submission against the reference lists. It returns a
// *ValidationError naming every problem, or nil.
func (o Observation) Validate(ref Reference) error {
	verr := &ValidationError{}

	if o.EntryType != EntryStart && o.EntryType != EntryStop {
		verr.add("entry_type", "must be START or STOP")
	}
	switch {
	case o.SiteID == "":
		verr.add("site_id", "is required")
	case len(ref.Sites) > 0:
		site, ok := ref.SiteByID(o.SiteID)
		if !ok {
			verr.add("site_id", "unknown site")
		} else if o.SiteName != "" && o.SiteName != site.Name {
			verr.add("site_name", "does not match site "+site.ID+" ("+site.Name+")")
		}
	}
	if o.SiteName == "" {
		verr.add("site_name", "is required")
	}
	if len(o.Officers) == 0 {
		verr.add("officers", "at least one monitoring officer is required")
	}
	if slices.ContainsFunc(o.Officers, func(n string) bool { return strings.Contains(n, OfficerSeparator) }) {
		verr.add("officers", "names must not contain commas")
	}
	if o.Driver == "" {
		verr.add("driver", "is required")
	}
	if _, err := time.Parse(DateLayout, o.Date); err != nil {
		verr.add("date", "must be YYYY-MM-DD")
	}
	if !validClockTime(o.Time) {
		verr.add("time", "must be HH:MM or HH:MM:SS")
	}

	checkRange(verr, "temperature", o.Temperature, false, -50, 70)
	checkRange(verr, "relative_humidity", o.RelativeHumidity, false, 0, 100)
	checkRange(verr, "pressure", o.Pressure, false, 0, -1)
	checkRange(verr, "elapsed_time_minutes", o.ElapsedMinutes, true, 0, -1)
	checkRange(verr, "flow_rate_l_per_min", o.FlowRate, true, 0, -1)

	if o.Weather != "" && len(ref.Weather) > 0 && !slices.Contains(ref.Weather, o.Weather) {
		verr.add("weather", "not a known weather condition")
	}
	if o.WindDirection != "" && len(ref.WindDirections) > 0 && !slices.Contains(ref.WindDirections, o.WindDirection) {
		verr.add("wind_direction", "not a known wind direction")
	}

	return verr.orNil()
}

// checkRange validates n against [lo, hi]. A negative-width range (hi < lo)
// only enforces the lower bound.
func checkRange(verr *ValidationError, field string, n Number, required bool, lo, hi float64) {
	switch n.State {
	case NumberMissing:
		if required {
			verr.add(field, "is required")
		}
	case NumberInvalid:
		verr.add(field, "must be numeric")
	case NumberValid:
		if n.Value < lo || (hi >= lo && n.Value > hi) {
			verr.add(field, "out of range")
		}
	}
}

func validClockTime(s string) bool {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
