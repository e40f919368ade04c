package roster

// Record is one matched row. It is either a BasicRecord or an EnrichedRecord;
// the enriched form is chosen when the status satisfies the required-status
// predicate, so workplace fields are never partially present.
type Record interface {
	Basic() BasicRecord
	record()
}

type BasicRecord struct {
	Identifier  string `json:"identifier"`
	Group       string `json:"group"`
	Track       string `json:"track"`
	FullName    string `json:"fullName"`
	SecondaryID string `json:"secondaryId"`
	Status      string `json:"status"`
	NationalID  string `json:"nationalId"`
}

func (r BasicRecord) Basic() BasicRecord { return r }
func (BasicRecord) record()              {}

// EnrichedRecord carries the workplace block shown for active records.
type EnrichedRecord struct {
	BasicRecord
	Role         string `json:"role"`
	Organization string `json:"organization"`
	Date         string `json:"date"`
}

// IsEnriched reports whether r carries the workplace block.
func IsEnriched(r Record) bool {
	_, ok := r.(EnrichedRecord)
	return ok
}
