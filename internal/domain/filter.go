package domain

import (
	"strings"
	"time"
)

// AllSites disables site filtering.
const AllSites = "All Sites"

// Filter narrows listings by site and by an inclusive date range. Zero
// bounds are open.
type Filter struct {
	Site string
	From time.Time
	To   time.Time
}

// ParseDate accepts a date, a stamp, or an RFC 3339 time.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, TimestampLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (f Filter) siteMatches(id, name string) bool {
	site := strings.TrimSpace(f.Site)
	if site == "" || site == AllSites {
		return true
	}
	return site == strings.TrimSpace(id) || site == strings.TrimSpace(name)
}

// dateMatches compares calendar days; rows with an unreadable date fail any bound.
func (f Filter) dateMatches(value string) bool {
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	t, ok := ParseDate(value)
	if !ok {
		return false
	}
	day := truncateDay(t)
	if !f.From.IsZero() && day.Before(truncateDay(f.From)) {
		return false
	}
	if !f.To.IsZero() && day.After(truncateDay(f.To)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FilterObservations keeps observations matching f by site and submission date.
func FilterObservations(rows []Observation, f Filter) []Observation {
	var out []Observation
	for _, o := range rows {
		if f.siteMatches(o.SiteID, o.SiteName) && f.dateMatches(o.SubmittedAt) {
			out = append(out, o)
		}
	}
	return out
}

// FilterPaired keeps paired records matching f by site and START date.
func FilterPaired(rows []PairedRecord, f Filter) []PairedRecord {
	var out []PairedRecord
	for _, p := range rows {
		if f.siteMatches(p.SiteID, p.SiteName) && f.dateMatches(p.Start.Date) {
			out = append(out, p)
		}
	}
	return out
}

// FilterCalculated keeps calculated records matching f by site and START date.
func FilterCalculated(rows []CalculatedRecord, f Filter) []CalculatedRecord {
	var out []CalculatedRecord
	for _, c := range rows {
		if f.siteMatches(c.SiteID, c.SiteName) && f.dateMatches(c.Start.Date) {
			out = append(out, c)
		}
	}
	return out
}
