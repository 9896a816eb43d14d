package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/farmops/agrifleet/pkg/observability"
	"github.com/farmops/agrifleet/pkg/storage"
)

// Connect opens the database and verifies it before handing the pool out.
func Connect(config storage.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(config.PostgresMaxConns)
	db.SetMaxIdleConns(config.PostgresMinConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), config.PostgresTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

// observe records one storage operation against the shared metrics.
// metrics may be nil in tests.
func observe(metrics *observability.Metrics, entity, operation string, start time.Time, err error) {
	if metrics == nil {
		return
	}
	metrics.ObserveStorageOperation(entity, operation, time.Since(start), err)
}

// whereClause joins predicates into a WHERE fragment, or returns an empty
// string when the search has no filters.
func whereClause(predicates []string) string {
	if len(predicates) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(predicates, " AND ")
}

// likePattern wraps a user-supplied fragment for a case-insensitive
// contains match.
func likePattern(fragment string) string {
	return "%" + fragment + "%"
}
