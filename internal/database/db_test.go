package database

import (
	"context"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
)

func TestDSN(t *testing.T) {
	dsn := DSN("locker", "s3cret", "db.local", "3307", "locker")
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN: %v", err)
	}
	if c.User != "locker" || c.Passwd != "s3cret" || c.Addr != "db.local:3307" || c.DBName != "locker" {
		t.Errorf("unexpected config: %+v", c)
	}
	if !c.ParseTime {
		t.Error("parseTime should be enabled")
	}
	if c.Loc != time.UTC {
		t.Errorf("loc = %v", c.Loc)
	}
}

func TestMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		t.Fatal(err)
	}
	ups, downs := 0, 0
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups++
			if _, err := fs.Stat(migrationsFS, strings.TrimSuffix(n, ".up.sql")+".down.sql"); err != nil {
				t.Errorf("%s has no down migration", n)
			}
		case strings.HasSuffix(n, ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Errorf("ups=%d downs=%d", ups, downs)
	}
}

// TestRunMigrations needs a disposable database in TEST_MYSQL_DSN.
func TestRunMigrations(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	db, err := Open(context.Background(), dsn)
	if err != nil {
		t.Skipf("database unreachable: %v", err)
	}
	defer db.Close()

	if err := RunMigrations(dsn); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(dsn); err != nil {
		t.Fatalf("second run should be a no-op: %v", err)
	}
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = 'tokens'`); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("tokens table missing")
	}
}
