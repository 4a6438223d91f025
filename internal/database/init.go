package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/keiba-edge/internal/config"
)

// requiredTables are the tables Initialize checks for after applying the schema
var requiredTables = []string{
	"race_entries", "horse_results", "pedigrees", "payouts",
	"feature_columns", "feature_rows", "evaluation_runs",
}

// Initialize creates a database connection pool and makes sure the schema exists
func Initialize(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"host":     cfg.Database.Host,
		"database": cfg.Database.Name,
		"tables":   len(requiredTables),
	}).Info("Database initialized")

	return db, nil
}

// EnsureSchema applies the idempotent schema and verifies every required table
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	for _, table := range requiredTables {
		var exists bool
		err := db.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check table %s: %w", table, err)
		}
		if !exists {
			return fmt.Errorf("table %s is missing after schema apply", table)
		}
	}
	return nil
}
