package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/keiba-edge/internal/database"
	"github.com/yourusername/keiba-edge/internal/features"
	"github.com/yourusername/keiba-edge/internal/models"
)

// PostgresFeatureRepository implements FeatureRepository for PostgreSQL.
// Column names live in feature_columns; each row stores its values as a float8 array
// in column order, with NaN for missing features.
type PostgresFeatureRepository struct {
	db *database.DB
}

// NewPostgresFeatureRepository creates a new feature table repository
func NewPostgresFeatureRepository(db *database.DB) FeatureRepository {
	return &PostgresFeatureRepository{db: db}
}

// SaveTable replaces the table stored under name
func (r *PostgresFeatureRepository) SaveTable(ctx context.Context, name string, table *features.FeatureTable) error {
	if table == nil {
		return fmt.Errorf("%w: nil feature table", models.ErrInvalidArgument)
	}

	columnRows := make([][]any, len(table.Columns))
	for i, column := range table.Columns {
		columnRows[i] = []any{name, i, column}
	}

	rowSource := make([][]any, len(table.Rows))
	for i, row := range table.Rows {
		if len(row.Values) != len(table.Columns) {
			return fmt.Errorf("%w: row %d has %d values for %d columns",
				models.ErrSchemaMismatch, i, len(row.Values), len(table.Columns))
		}
		rowSource[i] = []any{name, row.RaceID, row.HorseNumber, row.Date, row.Label, row.Values}
	}

	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		conn := r.db.Conn(txCtx)
		if _, err := conn.Exec(txCtx, `DELETE FROM feature_rows WHERE table_name = $1`, name); err != nil {
			return fmt.Errorf("failed to delete feature rows: %w", err)
		}
		if _, err := conn.Exec(txCtx, `DELETE FROM feature_columns WHERE table_name = $1`, name); err != nil {
			return fmt.Errorf("failed to delete feature columns: %w", err)
		}

		_, err := conn.CopyFrom(txCtx, pgx.Identifier{"feature_columns"},
			[]string{"table_name", "position", "name"}, pgx.CopyFromRows(columnRows))
		if err != nil {
			return fmt.Errorf("failed to insert feature columns: %w", err)
		}

		count, err := conn.CopyFrom(txCtx, pgx.Identifier{"feature_rows"},
			[]string{"table_name", "race_id", "horse_number", "date", "label", "vals"}, pgx.CopyFromRows(rowSource))
		if err != nil {
			return fmt.Errorf("failed to insert feature rows: %w", err)
		}
		if count != int64(len(table.Rows)) {
			return fmt.Errorf("inserted %d rows, expected %d", count, len(table.Rows))
		}
		return nil
	})
}

// LoadTable returns the table stored under name, rows ordered by date then race
func (r *PostgresFeatureRepository) LoadTable(ctx context.Context, name string) (*features.FeatureTable, error) {
	conn := r.db.Conn(ctx)

	columnRows, err := conn.Query(ctx,
		`SELECT name FROM feature_columns WHERE table_name = $1 ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query feature columns: %w", err)
	}
	columns, err := pgx.CollectRows(columnRows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan feature columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("feature table %q: %w", name, models.ErrNotFound)
	}

	rows, err := conn.Query(ctx, `
		SELECT race_id, horse_number, date, label, vals
		FROM feature_rows
		WHERE table_name = $1
		ORDER BY date, race_id, horse_number
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query feature rows: %w", err)
	}
	defer rows.Close()

	table := &features.FeatureTable{Columns: columns}
	for rows.Next() {
		var row features.FeatureRow
		if err := rows.Scan(&row.RaceID, &row.HorseNumber, &row.Date, &row.Label, &row.Values); err != nil {
			return nil, fmt.Errorf("failed to scan feature row: %w", err)
		}
		row.Date = row.Date.UTC()
		table.Rows = append(table.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feature rows: %w", err)
	}

	return table, nil
}
