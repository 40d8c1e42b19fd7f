package database

import (
	"context"
	"fmt"

	"github.com/lib/pq"
)

// RequiredTables are created by the embedded migrations
var RequiredTables = []string{"usage_counters", "scaling_events"}

// SchemaStatus reports which of tables exist in the public schema
func (db *DB) SchemaStatus(ctx context.Context, tables ...string) (map[string]bool, error) {
	status := make(map[string]bool, len(tables))
	for _, table := range tables {
		status[table] = false
	}

	rows, err := db.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = ANY($1)`, pq.Array(tables))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect schema: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		status[name] = true
	}
	return status, rows.Err()
}

func (db *DB) ServerVersion(ctx context.Context) (string, error) {
	var version string
	if err := db.QueryRowContext(ctx, "SHOW server_version").Scan(&version); err != nil {
		return "", fmt.Errorf("failed to get database version: %w", err)
	}
	return version, nil
}

type PoolStats struct {
	MaxOpen int `json:"max_open"`
	Open    int `json:"open"`
	InUse   int `json:"in_use"`
	Idle    int `json:"idle"`
	// WaitCount is the number of times a caller blocked on the pool
	WaitCount int64 `json:"wait_count"`
}

func (db *DB) PoolStats() PoolStats {
	s := db.Stats()
	return PoolStats{
		MaxOpen:   s.MaxOpenConnections,
		Open:      s.OpenConnections,
		InUse:     s.InUse,
		Idle:      s.Idle,
		WaitCount: s.WaitCount,
	}
}
