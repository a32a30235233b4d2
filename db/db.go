// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database types.
const (
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, dbType, url string) (*sql.DB, error) {
	var driver string
	switch dbType {
	case TypePostgres, "":
		driver = "postgres"
	case TypeSQLite:
		driver = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		// SQLite serializes writers; one connection avoids SQLITE_BUSY and
		// keeps :memory: databases shared.
		conn.SetMaxOpenConns(1)
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetConnMaxIdleTime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	return conn, nil
}
