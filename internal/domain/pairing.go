package domain

import (
	"strconv"
	"strings"
)

// Merged table suffixes and derived columns.
const (
	SuffixStart = "_Start"
	SuffixStop  = "_Stop"

	ColSeq         = "Seq"
	ColElapsedDiff = "Elapsed Time Diff (min)"
	ColAverageFlow = "Average Flow Rate (L/min)"
)

// MergedHeader is the header row of the merged table: the pair key, every
// other observation column suffixed _Start, the same suffixed _Stop, then the
// derived columns.
var MergedHeader = buildMergedHeader()

func buildMergedHeader() []string {
	h := []string{ColID, ColSite, ColSeq}
	for _, suffix := range []string{SuffixStart, SuffixStop} {
		for _, col := range ObservationHeader {
			if col == ColID || col == ColSite {
				continue
			}
			h = append(h, col+suffix)
		}
	}
	return append(h, ColElapsedDiff, ColAverageFlow)
}

// PairedRecord joins the n-th START and n-th STOP row of one site.
type PairedRecord struct {
	Row         int         `json:"row,omitempty"`
	SiteID      string      `json:"site_id"`
	SiteName    string      `json:"site_name"`
	Seq         int         `json:"seq,omitempty"`
	Start       Observation `json:"start"`
	Stop        Observation `json:"stop"`
	ElapsedDiff Number      `json:"elapsed_time_diff_minutes"`
	AverageFlow Number      `json:"average_flow_rate"`
}

// Cells encodes p in MergedHeader order.
func (p PairedRecord) Cells() []string {
	out := make([]string, 0, len(MergedHeader))
	out = append(out, p.SiteID, p.SiteName, strconv.Itoa(p.Seq))
	out = append(out, halfCells(p.Start)...)
	out = append(out, halfCells(p.Stop)...)
	return append(out, p.ElapsedDiff.String(), p.AverageFlow.String())
}

// halfCells drops the ID and Site cells of an observation.
func halfCells(o Observation) []string {
	cells := o.Cells()
	out := make([]string, 0, len(cells)-2)
	for i, col := range ObservationHeader {
		if col == ColID || col == ColSite {
			continue
		}
		out = append(out, cells[i])
	}
	return out
}

// PairedFromRecord decodes a merged table row.
func PairedFromRecord(r Record) PairedRecord {
	start := ObservationFromRecord(r, SuffixStart)
	stop := ObservationFromRecord(r, SuffixStop)
	start.Row, stop.Row = 0, 0
	seq, _ := strconv.Atoi(strings.TrimSpace(r.Get(ColSeq)))
	return PairedRecord{
		Row:         r.Row,
		SiteID:      r.Get(ColID),
		SiteName:    r.Get(ColSite),
		Seq:         seq,
		Start:       start,
		Stop:        stop,
		ElapsedDiff: ParseNumber(r.Get(ColElapsedDiff)),
		AverageFlow: ParseNumber(r.Get(ColAverageFlow)),
	}
}

// DecodePaired decodes every row of a merged table.
func DecodePaired(t Table) []PairedRecord {
	records := t.Records()
	out := make([]PairedRecord, len(records))
	for i, r := range records {
		out[i] = PairedFromRecord(r)
	}
	return out
}

// PairingSummary reports the outcome of a pairing run.
type PairingSummary struct {
	Starts       int `json:"starts"`
	Stops        int `json:"stops"`
	Paired       int `json:"paired"`
	OrphanStarts int `json:"orphan_starts"`
	OrphanStops  int `json:"orphan_stops"`
}

type pairKey struct {
	siteID, siteName string
	seq              int
}

// Pair joins START and STOP observations on (site id, site name, ordinal).
// Keys are compared after trimming, case-sensitively. Ordinals count rows of
// the same entry type and key in input order, starting at 1. Rows without a
// counterpart are dropped. Output follows START order. If either side is
// empty the result is empty.
func Pair(rows []Observation) ([]PairedRecord, PairingSummary) {
	var starts, stops []keyed
	startSeq := make(map[[2]string]int)
	stopSeq := make(map[[2]string]int)

	for _, o := range rows {
		group := [2]string{strings.TrimSpace(o.SiteID), strings.TrimSpace(o.SiteName)}
		switch EntryType(strings.TrimSpace(string(o.EntryType))) {
		case EntryStart:
			startSeq[group]++
			starts = append(starts, keyed{key: pairKey{group[0], group[1], startSeq[group]}, obs: o})
		case EntryStop:
			stopSeq[group]++
			stops = append(stops, keyed{key: pairKey{group[0], group[1], stopSeq[group]}, obs: o})
		}
	}

	summary := PairingSummary{Starts: len(starts), Stops: len(stops)}
	if len(starts) == 0 || len(stops) == 0 {
		summary.OrphanStarts, summary.OrphanStops = len(starts), len(stops)
		return nil, summary
	}

	stopByKey := make(map[pairKey]Observation, len(stops))
	for _, s := range stops {
		stopByKey[s.key] = s.obs
	}

	paired := make([]PairedRecord, 0, min(len(starts), len(stops)))
	for _, s := range starts {
		stop, ok := stopByKey[s.key]
		if !ok {
			continue
		}
		paired = append(paired, newPaired(s.key, s.obs, stop))
	}

	summary.Paired = len(paired)
	summary.OrphanStarts = len(starts) - len(paired)
	summary.OrphanStops = len(stops) - len(paired)
	return paired, summary
}

type keyed struct {
	key pairKey
	obs Observation
}

func newPaired(k pairKey, start, stop Observation) PairedRecord {
	start.Row, stop.Row = 0, 0
	start.SiteID, start.SiteName = k.siteID, k.siteName
	stop.SiteID, stop.SiteName = k.siteID, k.siteName
	return PairedRecord{
		SiteID:      k.siteID,
		SiteName:    k.siteName,
		Seq:         k.seq,
		Start:       start,
		Stop:        stop,
		ElapsedDiff: Sub(stop.ElapsedMinutes, start.ElapsedMinutes),
		AverageFlow: Mean(start.FlowRate, stop.FlowRate),
	}
}
