package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/keiba-edge/internal/database"
	"github.com/yourusername/keiba-edge/internal/models"
)

// PostgresEvaluationRepository implements EvaluationRepository for PostgreSQL
type PostgresEvaluationRepository struct {
	db *database.DB
}

// NewPostgresEvaluationRepository creates a new evaluation run repository
func NewPostgresEvaluationRepository(db *database.DB) EvaluationRepository {
	return &PostgresEvaluationRepository{db: db}
}

const evaluationSelect = `
	SELECT id, kind, model_version, standardized, sample_count, min_bets, auc, curve, created_at
	FROM evaluation_runs
`

// Save inserts a run, assigning an id when it has none
func (r *PostgresEvaluationRepository) Save(ctx context.Context, run *models.EvaluationRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	curve, err := json.Marshal(run.Curve)
	if err != nil {
		return fmt.Errorf("failed to marshal gain curve: %w", err)
	}

	query := `
		INSERT INTO evaluation_runs (id, kind, model_version, standardized, sample_count, min_bets, auc, curve, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.Conn(ctx).Exec(ctx, query,
		run.ID, string(run.Kind), run.ModelVersion, run.Standardized, run.SampleCount, run.MinBets,
		run.AUC, curve, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation run: %w", err)
	}

	return nil
}

// GetByID retrieves a run by id
func (r *PostgresEvaluationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EvaluationRun, error) {
	run, err := scanEvaluationRun(r.db.Conn(ctx).QueryRow(ctx, evaluationSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("evaluation run %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query evaluation run: %w", err)
	}
	return run, nil
}

// GetLatest returns the most recent runs of a bet type, newest first
func (r *PostgresEvaluationRepository) GetLatest(ctx context.Context, kind models.ReturnKind, limit int) ([]*models.EvaluationRun, error) {
	rows, err := r.db.Conn(ctx).Query(ctx,
		evaluationSelect+` WHERE kind = $1 ORDER BY created_at DESC LIMIT $2`, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluation runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.EvaluationRun
	for rows.Next() {
		run, err := scanEvaluationRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluation runs: %w", err)
	}

	return runs, nil
}

func scanEvaluationRun(row pgx.Row) (*models.EvaluationRun, error) {
	run := &models.EvaluationRun{}
	var kind string
	var curve []byte
	err := row.Scan(
		&run.ID, &kind, &run.ModelVersion, &run.Standardized, &run.SampleCount, &run.MinBets,
		&run.AUC, &curve, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Kind = models.ReturnKind(kind)
	if err := json.Unmarshal(curve, &run.Curve); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gain curve: %w", err)
	}
	return run, nil
}
