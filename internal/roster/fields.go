package roster

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FieldMap maps logical fields to 0-based sheet columns.
type FieldMap struct {
	Identifier   int `json:"identifier" yaml:"identifier"`
	SecondaryID  int `json:"secondaryId" yaml:"secondaryId"`
	FullName     int `json:"fullName" yaml:"fullName"`
	Status       int `json:"status" yaml:"status"`
	NationalID   int `json:"nationalId" yaml:"nationalId"`
	Group        int `json:"group" yaml:"group"`
	Track        int `json:"track" yaml:"track"`
	Category     int `json:"category" yaml:"category"`
	Role         int `json:"role" yaml:"role"`
	Organization int `json:"organization" yaml:"organization"`
	Date         int `json:"date" yaml:"date"`
}

// DefaultFieldMap is the column layout of the student roster sheet.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		Identifier:   0,  // A
		SecondaryID:  2,  // C
		FullName:     3,  // D
		Status:       4,  // E
		NationalID:   5,  // F
		Group:        14, // O
		Track:        22, // W
		Category:     22, // W
		Role:         29, // AD
		Organization: 30, // AE
		Date:         34, // AI
	}
}

// Validate rejects negative column indexes.
func (f FieldMap) Validate() error {
	cols := []struct {
		name string
		idx  int
	}{
		{"identifier", f.Identifier},
		{"secondaryId", f.SecondaryID},
		{"fullName", f.FullName},
		{"status", f.Status},
		{"nationalId", f.NationalID},
		{"group", f.Group},
		{"track", f.Track},
		{"category", f.Category},
		{"role", f.Role},
		{"organization", f.Organization},
		{"date", f.Date},
	}
	for _, c := range cols {
		if c.idx < 0 {
			return fmt.Errorf("field %s: negative column %d", c.name, c.idx)
		}
	}
	return nil
}

// StatusPredicate reports whether a status text contains the required marker,
// ignoring case. An empty marker matches every status.
type StatusPredicate struct {
	marker string
}

func NewStatusPredicate(marker string) StatusPredicate {
	return StatusPredicate{marker: fold(strings.TrimSpace(marker))}
}

func (p StatusPredicate) Holds(status string) bool {
	return strings.Contains(fold(status), p.marker)
}

// fold lower-cases s. A Caser is stateful, so each call gets its own.
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}
