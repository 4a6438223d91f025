package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/keiba-edge/internal/database"
	"github.com/yourusername/keiba-edge/internal/models"
)

// PostgresHistoryRepository implements HistoryRepository for PostgreSQL
type PostgresHistoryRepository struct {
	db *database.DB
}

// NewPostgresHistoryRepository creates a new horse history repository
func NewPostgresHistoryRepository(db *database.DB) HistoryRepository {
	return &PostgresHistoryRepository{db: db}
}

// GetByHorseIDs returns history rows of the given horses dated before the cutoff.
// Rows with an unparsable date are returned too so that parsing can report them.
func (r *PostgresHistoryRepository) GetByHorseIDs(ctx context.Context, horseIDs []string, before time.Time) ([]models.RawHistoricalResult, error) {
	if len(horseIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT horse_id, date, finish_rank, prize_money
		FROM horse_results
		WHERE horse_id = ANY($1) AND (race_date IS NULL OR race_date < $2)
		ORDER BY horse_id, race_date
	`

	rows, err := r.db.Conn(ctx).Query(ctx, query, horseIDs, models.Day(before))
	if err != nil {
		return nil, fmt.Errorf("failed to query horse results: %w", err)
	}
	defer rows.Close()

	var results []models.RawHistoricalResult
	for rows.Next() {
		var h models.RawHistoricalResult
		if err := rows.Scan(&h.HorseID, &h.Date, &h.FinishRank, &h.PrizeMoney); err != nil {
			return nil, fmt.Errorf("failed to scan horse result: %w", err)
		}
		results = append(results, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating horse results: %w", err)
	}

	return results, nil
}

// ReplaceBatch replaces the stored history of every horse present in results.
// A scraped history page always carries a horse's complete record.
func (r *PostgresHistoryRepository) ReplaceBatch(ctx context.Context, results []models.RawHistoricalResult) error {
	if len(results) == 0 {
		return nil
	}

	horseIDs := distinct(results, func(h models.RawHistoricalResult) string { return h.HorseID })
	columns := []string{"horse_id", "date", "finish_rank", "prize_money", "race_date"}
	source := make([][]any, len(results))
	for i, h := range results {
		source[i] = []any{h.HorseID, h.Date, h.FinishRank, h.PrizeMoney, raceDate(h.Date)}
	}

	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		conn := r.db.Conn(txCtx)
		if _, err := conn.Exec(txCtx, `DELETE FROM horse_results WHERE horse_id = ANY($1)`, horseIDs); err != nil {
			return fmt.Errorf("failed to delete replaced horse results: %w", err)
		}

		count, err := conn.CopyFrom(txCtx, pgx.Identifier{"horse_results"}, columns, pgx.CopyFromRows(source))
		if err != nil {
			return fmt.Errorf("failed to batch insert horse results: %w", err)
		}
		if count != int64(len(results)) {
			return fmt.Errorf("inserted %d rows, expected %d", count, len(results))
		}
		return nil
	})
}
