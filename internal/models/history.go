package models

import "time"

// RawHistoricalResult is one row of a horse's race history before parsing.
// FinishRank may hold non-numeric markers for disqualifications or non-finishes.
type RawHistoricalResult struct {
	HorseID    string   `db:"horse_id" json:"horse_id" validate:"required"`
	Date       string   `db:"date" json:"date"`
	FinishRank string   `db:"finish_rank" json:"finish_rank"`
	PrizeMoney *float64 `db:"prize_money" json:"prize_money"`
}

// HistoricalResult is a finished-race record for one horse.
type HistoricalResult struct {
	HorseID    string    `json:"horse_id"`
	Date       time.Time `json:"date"`
	FinishRank int       `json:"finish_rank"`
	PrizeMoney float64   `json:"prize_money"`
}
