package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/angelmondragon/sunrise-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestMigrationsContainConstraints(t *testing.T) {
	cases := map[string][]string{
		"*_create_products_table.sql": {
			"CREATE TABLE IF NOT EXISTS products",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_products_slug",
			"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
			"DROP TABLE IF EXISTS products",
		},
		"*_create_orders_table.sql": {
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_payment_reference",
			"CHECK (total_cents = subtotal_cents + tax_cents + delivery_fee_cents + tip_cents)",
			"CHECK (quantity >= 1)",
			"DROP TABLE IF EXISTS orders",
		},
		"*_create_payment_attempts_table.sql": {
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_payment_attempts_reference",
			"CHECK (status IN ('pending', 'succeeded', 'failed', 'expired'))",
			"idx_payment_attempts_status_expires",
		},
		"*_create_outbox_tables.sql": {
			"CREATE TABLE IF NOT EXISTS outbox_events",
			"CREATE TABLE IF NOT EXISTS outbox_dlq",
			"WHERE published_at IS NULL",
		},
	}

	for pattern, checks := range cases {
		t.Run(pattern, func(t *testing.T) {
			matches, err := filepath.Glob(filepath.Join("migrations", pattern))
			if err != nil {
				t.Fatalf("glob migrations: %v", err)
			}
			if len(matches) != 1 {
				t.Fatalf("expected one migration for %s, got %d", pattern, len(matches))
			}
			data, err := os.ReadFile(matches[0])
			if err != nil {
				t.Fatalf("read migration file: %v", err)
			}
			content := string(data)
			for _, sub := range checks {
				if !strings.Contains(content, sub) {
					t.Errorf("missing expected statement %q", sub)
				}
			}
		})
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Delivery Window!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_delivery_window.sql") {
		t.Fatalf("unexpected migration name %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}

	if _, err := migrate.CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatalf("expected empty sanitized name to fail")
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatalf("expected empty dir to fail")
	}
	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatalf("expected invalid filename to fail")
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	if err := migrate.ValidateFS(migrate.Embedded()); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
	embedded, err := fs.Glob(migrate.Embedded(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob disk: %v", err)
	}
	if len(embedded) != len(onDisk) {
		t.Fatalf("embedded %d migrations, disk has %d", len(embedded), len(onDisk))
	}
}

func TestValidateFSReportsEveryProblem(t *testing.T) {
	fsys := fstest.MapFS{
		"20261001090000_a.sql": {Data: []byte("-- +goose Up\n")},
		"20261001090000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	err := migrate.ValidateFS(fsys)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"missing \"-- +goose Down\"", "already used by"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := migrate.ParseVersion("20261001090300"); err != nil || v != 20261001090300 {
		t.Fatalf("unexpected %d (%v)", v, err)
	}
	for _, bad := range []string{"", "2026", "2026100109030x"} {
		if _, err := migrate.ParseVersion(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
