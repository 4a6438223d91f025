package models

import "strings"

// BetType identifies a bet market.
type BetType string

// Supported bet types
const (
	BetTypePlace BetType = "place"
	BetTypeWin   BetType = "win"
)

// ParseBetType maps raw payout-table tags to a BetType.
func ParseBetType(tag string) (BetType, bool) {
	switch strings.TrimSpace(tag) {
	case "place", "複勝":
		return BetTypePlace, true
	case "win", "単勝":
		return BetTypeWin, true
	default:
		return "", false
	}
}

// RawPayout is one row of a race's payout table. Winners and Payouts hold
// delimited lists ("3br7br1", "150br230br1,020").
type RawPayout struct {
	RaceID  string `db:"race_id" json:"race_id" validate:"required"`
	BetType string `db:"bet_type" json:"bet_type" validate:"required"`
	Winners string `db:"winners" json:"winners"`
	Payouts string `db:"payouts" json:"payouts"`
}

// PayoutSlot is one paying horse number and its payout per 100 staked.
type PayoutSlot struct {
	HorseNumber int `json:"horse_number"`
	Amount      int `json:"amount"`
}

// PlacePayout holds up to three paying slots for a race's place market.
type PlacePayout struct {
	RaceID string       `json:"race_id"`
	Slots  []PayoutSlot `json:"slots"`
}

// Pays returns the payout for horseNumber, and false when it did not place.
func (p PlacePayout) Pays(horseNumber int) (int, bool) {
	for _, slot := range p.Slots {
		if slot.HorseNumber == horseNumber {
			return slot.Amount, true
		}
	}
	return 0, false
}

// WinPayout holds the single paying slot of a race's win market.
// Fields are nil when the raw record could not be parsed.
type WinPayout struct {
	RaceID      string   `json:"race_id"`
	HorseNumber *int     `json:"horse_number"`
	Amount      *float64 `json:"amount"`
}
