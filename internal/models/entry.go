package models

import "time"

// RawEntry is one horse's row in a race table as delivered by the scraping
// collaborator. Numeric fields are still strings.
type RawEntry struct {
	RaceID       string `db:"race_id" json:"race_id" validate:"required"`
	HorseNumber  string `db:"horse_number" json:"horse_number" validate:"required"`
	FrameNumber  string `db:"frame_number" json:"frame_number"`
	Impost       string `db:"impost" json:"impost"`
	CourseLength string `db:"course_len" json:"course_len"`
	Weather      string `db:"weather" json:"weather"`
	RaceType     string `db:"race_type" json:"race_type"`
	GroundState  string `db:"ground_state" json:"ground_state"`
	Date         string `db:"date" json:"date"`
	HorseID      string `db:"horse_id" json:"horse_id"`
	JockeyID     string `db:"jockey_id" json:"jockey_id"`
	SexAge       string `db:"sex_age" json:"sex_age"`
	BodyWeight   string `db:"body_weight" json:"body_weight"`
	FinishRank   string `db:"finish_rank" json:"finish_rank,omitempty"`
	Excluded     bool   `db:"excluded" json:"excluded,omitempty"`
}

// RaceEntry is a normalized entry, unique per (RaceID, HorseNumber).
type RaceEntry struct {
	RaceID       string    `json:"race_id"`
	HorseNumber  int       `json:"horse_number"`
	FrameNumber  int       `json:"frame_number"`
	Impost       float64   `json:"impost"`
	CourseLength int       `json:"course_len"`
	Weather      string    `json:"weather"`
	RaceType     string    `json:"race_type"`
	GroundState  string    `json:"ground_state"`
	Date         time.Time `json:"date"`
	HorseID      string    `json:"horse_id"`
	JockeyID     string    `json:"jockey_id"`
	Sex          string    `json:"sex"`
	Age          int       `json:"age"`
	BodyWeight   *int      `json:"body_weight"`
	WeightChange *int      `json:"weight_change"`
	Label        *int      `json:"rank,omitempty"`
}

// Nominal column names understood by RaceEntry.Nominal.
const (
	ColumnWeather     = "weather"
	ColumnRaceType    = "race_type"
	ColumnGroundState = "ground_state"
	ColumnSex         = "sex"
)

// Nominal returns the value of a nominal column, and false for unknown columns.
func (e RaceEntry) Nominal(column string) (string, bool) {
	switch column {
	case ColumnWeather:
		return e.Weather, true
	case ColumnRaceType:
		return e.RaceType, true
	case ColumnGroundState:
		return e.GroundState, true
	case ColumnSex:
		return e.Sex, true
	default:
		return "", false
	}
}

// IsNominalColumn reports whether column can be one-hot encoded.
func IsNominalColumn(column string) bool {
	_, ok := RaceEntry{}.Nominal(column)
	return ok
}
