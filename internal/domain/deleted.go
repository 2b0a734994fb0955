package domain

const (
	ColDeletedBy = "Deleted By"
	ColDeletedAt = "Deleted At"
)

// DeletedHeader is the header row of the deleted records table.
var DeletedHeader = append(append([]string{}, ObservationHeader...), ColDeletedBy, ColDeletedAt)

// DeletedRecord is an observation moved out of the observations table.
type DeletedRecord struct {
	Observation
	DeletedBy string `json:"deleted_by"`
	DeletedAt string `json:"deleted_at"`
}

// DecodeDeleted decodes every row of the deleted records table.
func DecodeDeleted(t Table) []DeletedRecord {
	records := t.Records()
	out := make([]DeletedRecord, len(records))
	for i, r := range records {
		out[i] = DeletedRecord{
			Observation: ObservationFromRecord(r, ""),
			DeletedBy:   r.Get(ColDeletedBy),
			DeletedAt:   r.Get(ColDeletedAt),
		}
	}
	return out
}

// StampDeleted returns the observation cells of row followed by the deletion stamps.
func StampDeleted(row []string, by string) []string {
	out := append([]string{}, PadRow(row, len(ObservationHeader))[:len(ObservationHeader)]...)
	return append(out, by, Timestamp(Now()))
}

// UnstampDeleted strips the deletion stamps from a deleted row.
func UnstampDeleted(row []string) []string {
	return append([]string{}, PadRow(row, len(ObservationHeader))[:len(ObservationHeader)]...)
}
