package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/yourusername/keiba-edge/internal/config"
)

// TestConfigEnv names the config file used by database-backed tests
const TestConfigEnv = "KEIBA_EDGE_TEST_CONFIG"

// SetupTestDB connects to the test database, skipping the test when none is configured
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	path := os.Getenv(TestConfigEnv)
	if path == "" {
		t.Skipf("Integration test - set %s to a config file with a test database", TestConfigEnv)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("failed to load test config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		t.Fatalf("failed to apply test schema: %v", err)
	}

	return db
}

// TeardownTestDB closes the database connection cleanly
func TeardownTestDB(t *testing.T, db *DB) {
	t.Helper()
	db.Close()
}
