package models

// Pedigree lists ancestor identifiers for a horse in generation order.
// Unknown ancestors are empty strings.
type Pedigree struct {
	HorseID   string   `db:"horse_id" json:"horse_id" validate:"required"`
	Ancestors []string `db:"ancestors" json:"ancestors"`
}

// PedigreeMissingValue is the code source for ancestors that are unknown
// within an otherwise present pedigree.
const PedigreeMissingValue = "Na"
