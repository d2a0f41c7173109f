package models

import (
	"strings"

	"golang.org/x/text/cases"
)

// OccupationEntry maps a free-text occupation name to its ANZSCO code.
type OccupationEntry struct {
	OccupationName string `json:"occupation_name"`
	AnzscoCode     string `json:"anzsco_code"`
	DirectLink     string `json:"direct_link"`
}

// OccupationDetail is the enriched metadata attached to an ANZSCO code.
// Tasks keep source order.
type OccupationDetail struct {
	Title      string   `json:"title"`
	UnitGroup  string   `json:"unit_group"`
	SkillLevel string   `json:"skill_level"`
	Tasks      []string `json:"tasks"`
	Source     string   `json:"source"`
	Link       string   `json:"link"`
}

// Occupation is the result of resolving an occupation name.
type Occupation struct {
	Entry  OccupationEntry  `json:"entry"`
	Detail OccupationDetail `json:"detail"`
}

// Classification is what a classification source returns for a name.
type Classification struct {
	AnzscoCode string `json:"anzsco_code"`
	DirectLink string `json:"direct_link"`
}

// NormalizeName returns the index key for an occupation name: trimmed and case folded.
func NormalizeName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
