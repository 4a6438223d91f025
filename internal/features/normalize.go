package features

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yourusername/keiba-edge/internal/models"
)

// Mode selects how entries are normalized.
type Mode int

const (
	// ModeLabeled processes finished races: non-numeric finishes are dropped
	// and a top-3 label is attached.
	ModeLabeled Mode = iota + 1
	// ModeUnlabeled processes races still to be run: excluded entries are dropped.
	ModeUnlabeled
)

func (m Mode) String() string {
	switch m {
	case ModeLabeled:
		return "labeled"
	case ModeUnlabeled:
		return "unlabeled"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// placeCutoff is the finish position below which an entry counts as placed.
const placeCutoff = 4

// NormalizeEntries converts raw race rows into typed entries. Rows that cannot
// be converted are skipped and listed in the report.
func NormalizeEntries(raw []models.RawEntry, mode Mode) ([]models.RaceEntry, models.ParseReport) {
	report := models.NewParseReport("race_entries")
	entries := make([]models.RaceEntry, 0, len(raw))
	for _, row := range raw {
		entry, verr := normalizeEntry(row, mode)
		if verr != nil {
			report.Skip(verr.WithKey(row.RaceID + "/" + row.HorseNumber))
			continue
		}
		report.Ok()
		entries = append(entries, entry)
	}
	return entries, report
}

func normalizeEntry(row models.RawEntry, mode Mode) (models.RaceEntry, *models.ValidationError) {
	entry := models.RaceEntry{
		RaceID:      strings.TrimSpace(row.RaceID),
		Weather:     strings.TrimSpace(row.Weather),
		RaceType:    strings.TrimSpace(row.RaceType),
		GroundState: strings.TrimSpace(row.GroundState),
		HorseID:     strings.TrimSpace(row.HorseID),
		JockeyID:    strings.TrimSpace(row.JockeyID),
	}

	switch mode {
	case ModeLabeled:
		rank, err := strconv.Atoi(strings.TrimSpace(row.FinishRank))
		if err != nil {
			return entry, models.NewValidationError("non_numeric_rank", fmt.Sprintf("finish rank %q", row.FinishRank))
		}
		label := 0
		if rank < placeCutoff {
			label = 1
		}
		entry.Label = &label
	case ModeUnlabeled:
		if row.Excluded {
			return entry, models.NewValidationError("excluded", "entry excluded from race")
		}
	default:
		return entry, models.NewValidationError("invalid_mode", mode.String())
	}

	var err error
	if entry.FrameNumber, err = atoi(row.FrameNumber); err != nil {
		return entry, models.NewValidationError("invalid_frame_number", err.Error())
	}
	if entry.HorseNumber, err = atoi(row.HorseNumber); err != nil {
		return entry, models.NewValidationError("invalid_horse_number", err.Error())
	}
	if entry.Impost, err = strconv.ParseFloat(strings.TrimSpace(row.Impost), 64); err != nil {
		return entry, models.NewValidationError("invalid_impost", err.Error())
	}
	if entry.CourseLength, err = atoi(row.CourseLength); err != nil {
		return entry, models.NewValidationError("invalid_course_length", err.Error())
	}
	if entry.Sex, entry.Age, err = splitSexAge(row.SexAge); err != nil {
		return entry, models.NewValidationError("invalid_sex_age", err.Error())
	}
	if entry.BodyWeight, entry.WeightChange, err = splitBodyWeight(row.BodyWeight); err != nil {
		return entry, models.NewValidationError("invalid_body_weight", err.Error())
	}
	if entry.Date, err = models.ParseDate(row.Date); err != nil {
		return entry, models.NewValidationError("invalid_date", err.Error())
	}
	if entry.HorseID == "" {
		return entry, models.NewValidationError("missing_horse_id", "horse id is required")
	}
	return entry, nil
}

func atoi(value string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(value))
}

// splitSexAge splits "牡4" into its sex marker and age.
func splitSexAge(value string) (string, int, error) {
	trimmed := strings.TrimSpace(value)
	sex, size := utf8.DecodeRuneInString(trimmed)
	if sex == utf8.RuneError {
		return "", 0, fmt.Errorf("sex/age %q", value)
	}
	age, err := strconv.Atoi(trimmed[size:])
	if err != nil {
		return "", 0, fmt.Errorf("sex/age %q", value)
	}
	return string(sex), age, nil
}

// splitBodyWeight splits "480(+4)" into weight and change. An empty field
// yields two nils; a weight without a change part yields a nil change.
func splitBodyWeight(value string) (*int, *int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || trimmed == "計不" {
		return nil, nil, nil
	}
	weightPart, changePart, hasChange := strings.Cut(trimmed, "(")
	weight, err := strconv.Atoi(strings.TrimSpace(weightPart))
	if err != nil {
		return nil, nil, fmt.Errorf("body weight %q", value)
	}
	if !hasChange {
		return &weight, nil, nil
	}
	changeText := strings.TrimSpace(strings.TrimSuffix(changePart, ")"))
	if changeText == "" || changeText == "前計不" {
		return &weight, nil, nil
	}
	change, err := strconv.Atoi(changeText)
	if err != nil {
		return nil, nil, fmt.Errorf("body weight change %q", value)
	}
	return &weight, &change, nil
}

// ParseHistory converts raw horse history, dropping records whose finish rank
// is not a number. Missing prize money counts as zero.
func ParseHistory(raw []models.RawHistoricalResult) ([]models.HistoricalResult, models.ParseReport) {
	report := models.NewParseReport("horse_results")
	history := make([]models.HistoricalResult, 0, len(raw))
	for _, row := range raw {
		key := row.HorseID + "@" + row.Date
		rank, err := strconv.Atoi(strings.TrimSpace(row.FinishRank))
		if err != nil {
			report.Skip(models.NewValidationError("non_numeric_rank", fmt.Sprintf("finish rank %q", row.FinishRank)).WithKey(key))
			continue
		}
		date, err := models.ParseDate(row.Date)
		if err != nil {
			report.Skip(models.NewValidationError("invalid_date", err.Error()).WithKey(key))
			continue
		}
		prize := 0.0
		if row.PrizeMoney != nil {
			prize = *row.PrizeMoney
		}
		if prize < 0 {
			report.Skip(models.NewValidationError("negative_prize", fmt.Sprintf("prize money %v", prize)).WithKey(key))
			continue
		}
		report.Ok()
		history = append(history, models.HistoricalResult{
			HorseID:    strings.TrimSpace(row.HorseID),
			Date:       date,
			FinishRank: rank,
			PrizeMoney: prize,
		})
	}
	return history, report
}
