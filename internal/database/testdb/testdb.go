// Package testdb provisions a migrated, empty MySQL database for tests.
// Tests using it are skipped unless TEST_MYSQL_DSN points at a reachable
// server whose user may create databases.
package testdb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/equipment-locker/internal/database"
)

// Tables lists every table in child-first order.
var Tables = []string{"tokens", "leases", "cells", "cell_types", "users"}

// Open returns a connection to "<dbname>_<suffix>", created and migrated
// on first use and truncated on every call.  Packages pass distinct
// suffixes because `go test ./...` runs them in parallel.
func Open(t testing.TB, suffix string) *sqlx.DB {
	t.Helper()
	raw := os.Getenv("TEST_MYSQL_DSN")
	if raw == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	cfg, err := mysql.ParseDSN(raw)
	if err != nil {
		t.Fatalf("parse TEST_MYSQL_DSN: %v", err)
	}
	ctx := context.Background()

	admin, err := database.Open(ctx, raw)
	if err != nil {
		t.Skipf("database unreachable: %v", err)
	}
	name := "locker_test_" + suffix
	if cfg.DBName != "" {
		name = cfg.DBName + "_" + suffix
	}
	_, err = admin.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4", name))
	admin.Close()
	if err != nil {
		t.Fatalf("create database %s: %v", name, err)
	}

	cfg.DBName = name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	dsn := cfg.FormatDSN()
	if err := database.RunMigrations(dsn); err != nil {
		t.Fatalf("migrate %s: %v", name, err)
	}
	db, err := database.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	t.Cleanup(func() { db.Close() })

	if err := truncate(ctx, db); err != nil {
		t.Fatalf("reset %s: %v", name, err)
	}
	return db
}

// truncate empties every table on one connection, since the foreign key
// switch is per session.
func truncate(ctx context.Context, db *sqlx.DB) error {
	conn, err := db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return err
	}
	for _, tbl := range Tables {
		if _, err := conn.ExecContext(ctx, "TRUNCATE TABLE "+tbl); err != nil {
			return fmt.Errorf("truncate %s: %w", tbl, err)
		}
	}
	_, err = conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1")
	return err
}
