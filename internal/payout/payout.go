// Package payout parses raw race payout tables into typed place and win views.
package payout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yourusername/keiba-edge/internal/models"
)

// maxPlaceSlots is the number of paying positions in a place market.
const maxPlaceSlots = 3

// lineBreak separates list items inside a raw winners/payouts cell.
const lineBreak = "br"

// Table is a race payout table as delivered by the scraping collaborator.
type Table struct {
	rows []models.RawPayout
}

// NewTable wraps raw payout rows.
func NewTable(rows []models.RawPayout) *Table {
	return &Table{rows: rows}
}

// Len returns the number of raw rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// PlaceView returns the place payouts keyed by race id. Races list only the
// slots that actually paid. Records that cannot be parsed are skipped and
// listed in the report.
func (t *Table) PlaceView() (map[string]models.PlacePayout, models.ParseReport) {
	report := models.NewParseReport("place_payouts")
	view := make(map[string]models.PlacePayout)
	for _, row := range t.rows {
		if betType, ok := models.ParseBetType(row.BetType); !ok || betType != models.BetTypePlace {
			continue
		}
		payout, verr := parsePlace(row)
		if verr != nil {
			report.Skip(verr.WithKey(row.RaceID))
			continue
		}
		report.Ok()
		view[payout.RaceID] = payout
	}
	return view, report
}

func parsePlace(row models.RawPayout) (models.PlacePayout, *models.ValidationError) {
	winners := splitCell(row.Winners)
	amounts := splitCell(row.Payouts)
	if len(winners) == 0 {
		return models.PlacePayout{}, models.NewValidationError("no_winners", "place row has no winners")
	}
	if len(winners) != len(amounts) {
		return models.PlacePayout{}, models.NewValidationError("slot_mismatch",
			fmt.Sprintf("%d winners but %d payouts", len(winners), len(amounts)))
	}
	if len(winners) > maxPlaceSlots {
		winners, amounts = winners[:maxPlaceSlots], amounts[:maxPlaceSlots]
	}

	payout := models.PlacePayout{RaceID: strings.TrimSpace(row.RaceID)}
	for i := range winners {
		number, err := strconv.Atoi(winners[i])
		if err != nil {
			return models.PlacePayout{}, models.NewValidationError("invalid_horse_number", fmt.Sprintf("winner %q", winners[i]))
		}
		amount, err := parseAmount(amounts[i])
		if err != nil {
			return models.PlacePayout{}, models.NewValidationError("invalid_amount", err.Error())
		}
		payout.Slots = append(payout.Slots, models.PayoutSlot{HorseNumber: number, Amount: int(amount.IntPart())})
	}
	return payout, nil
}

// WinView returns the win payouts keyed by race id. A record that cannot be
// parsed is kept with nil fields; it never aborts the rest of the table.
func (t *Table) WinView() (map[string]models.WinPayout, models.ParseReport) {
	report := models.NewParseReport("win_payouts")
	view := make(map[string]models.WinPayout)
	for _, row := range t.rows {
		if betType, ok := models.ParseBetType(row.BetType); !ok || betType != models.BetTypeWin {
			continue
		}
		raceID := strings.TrimSpace(row.RaceID)
		payout := models.WinPayout{RaceID: raceID}
		var verr *models.ValidationError

		winners := splitCell(row.Winners)
		if len(winners) > 0 {
			if number, err := strconv.Atoi(winners[0]); err == nil {
				payout.HorseNumber = &number
			} else {
				verr = models.NewValidationError("invalid_horse_number", fmt.Sprintf("winner %q", winners[0]))
			}
		} else {
			verr = models.NewValidationError("no_winners", "win row has no winner")
		}

		amounts := splitCell(row.Payouts)
		if len(amounts) > 0 {
			if amount, err := parseAmount(amounts[0]); err == nil {
				f := amount.InexactFloat64()
				payout.Amount = &f
			} else if verr == nil {
				verr = models.NewValidationError("invalid_amount", err.Error())
			}
		} else if verr == nil {
			verr = models.NewValidationError("no_payout", "win row has no payout")
		}

		if verr != nil {
			report.Tolerate(verr.WithKey(raceID))
		} else {
			report.Ok()
		}
		view[raceID] = payout
	}
	return view, report
}

// splitCell splits a "3br7br1" style cell into trimmed, non-empty items.
func splitCell(cell string) []string {
	var items []string
	for _, item := range strings.Split(cell, lineBreak) {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// parseAmount parses "1,230" style yen amounts.
func parseAmount(value string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(value), ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", value, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount %q is negative", value)
	}
	return amount, nil
}
