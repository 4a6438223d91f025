package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/keiba-edge/internal/database"
	"github.com/yourusername/keiba-edge/internal/models"
)

var entryColumns = []string{
	"race_id", "horse_number", "frame_number", "impost", "course_len", "weather", "race_type",
	"ground_state", "date", "horse_id", "jockey_id", "sex_age", "body_weight", "finish_rank",
	"excluded", "race_date",
}

// PostgresEntryRepository implements EntryRepository for PostgreSQL
type PostgresEntryRepository struct {
	db *database.DB
}

// NewPostgresEntryRepository creates a new entry repository
func NewPostgresEntryRepository(db *database.DB) EntryRepository {
	return &PostgresEntryRepository{db: db}
}

// GetByDateRange returns entries whose race date falls in [start, end]
func (r *PostgresEntryRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]models.RawEntry, error) {
	query := `
		SELECT race_id, horse_number, frame_number, impost, course_len, weather, race_type,
		       ground_state, date, horse_id, jockey_id, sex_age, body_weight, finish_rank, excluded
		FROM race_entries
		WHERE race_date >= $1 AND race_date <= $2
		ORDER BY race_date, race_id, length(horse_number), horse_number
	`

	rows, err := r.db.Conn(ctx).Query(ctx, query, models.Day(start), models.Day(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query race entries: %w", err)
	}
	defer rows.Close()

	var entries []models.RawEntry
	for rows.Next() {
		var e models.RawEntry
		err := rows.Scan(
			&e.RaceID, &e.HorseNumber, &e.FrameNumber, &e.Impost, &e.CourseLength, &e.Weather, &e.RaceType,
			&e.GroundState, &e.Date, &e.HorseID, &e.JockeyID, &e.SexAge, &e.BodyWeight, &e.FinishRank, &e.Excluded,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan race entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating race entries: %w", err)
	}

	return entries, nil
}

// UpsertBatch replaces every stored row of each race present in entries
func (r *PostgresEntryRepository) UpsertBatch(ctx context.Context, entries []models.RawEntry) error {
	if len(entries) == 0 {
		return nil
	}

	raceIDs := distinct(entries, func(e models.RawEntry) string { return e.RaceID })
	source := make([][]any, len(entries))
	for i, e := range entries {
		source[i] = []any{
			e.RaceID, e.HorseNumber, e.FrameNumber, e.Impost, e.CourseLength, e.Weather, e.RaceType,
			e.GroundState, e.Date, e.HorseID, e.JockeyID, e.SexAge, e.BodyWeight, e.FinishRank,
			e.Excluded, raceDate(e.Date),
		}
	}

	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		conn := r.db.Conn(txCtx)
		if _, err := conn.Exec(txCtx, `DELETE FROM race_entries WHERE race_id = ANY($1)`, raceIDs); err != nil {
			return fmt.Errorf("failed to delete replaced race entries: %w", err)
		}

		count, err := conn.CopyFrom(txCtx, pgx.Identifier{"race_entries"}, entryColumns, pgx.CopyFromRows(source))
		if err != nil {
			return fmt.Errorf("failed to batch insert race entries: %w", err)
		}
		if count != int64(len(entries)) {
			return fmt.Errorf("inserted %d rows, expected %d", count, len(entries))
		}
		return nil
	})
}
