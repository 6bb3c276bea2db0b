package store

import (
	"context"
	"testing"
	"testing/fstest"
)

// --- Migrate ---

func TestMigrate(t *testing.T) {
	requirePostgres(t)
	ctx := context.Background()

	t.Run("applies migration and records version", func(t *testing.T) {
		testFS := fstest.MapFS{
			"900_test_migrate.sql": &fstest.MapFile{Data: []byte("CREATE TABLE test_migrate_tbl (id INT);")},
		}
		t.Cleanup(func() {
			testStore.pool.Exec(ctx, "DROP TABLE IF EXISTS test_migrate_tbl")
			testStore.pool.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", "900_test_migrate.sql")
		})

		if err := testStore.Migrate(ctx, testFS); err != nil {
			t.Fatalf("Migrate failed: %v", err)
		}

		var tableExists bool
		err := testStore.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_name = 'test_migrate_tbl')",
		).Scan(&tableExists)
		if err != nil {
			t.Fatalf("checking table existence: %v", err)
		}
		if !tableExists {
			t.Error("expected test_migrate_tbl to exist after migration")
		}
		if !migrationRecorded(t, ctx, "900_test_migrate.sql") {
			t.Error("expected migration version to be recorded")
		}
	})

	t.Run("second run is a no-op", func(t *testing.T) {
		testFS := fstest.MapFS{
			"901_test_idempotent.sql": &fstest.MapFile{Data: []byte("CREATE TABLE test_idempotent_tbl (id INT);")},
		}
		t.Cleanup(func() {
			testStore.pool.Exec(ctx, "DROP TABLE IF EXISTS test_idempotent_tbl")
			testStore.pool.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", "901_test_idempotent.sql")
		})

		// CREATE TABLE without IF NOT EXISTS fails if the file runs twice
		for i := 0; i < 2; i++ {
			if err := testStore.Migrate(ctx, testFS); err != nil {
				t.Fatalf("Migrate run %d: %v", i+1, err)
			}
		}
	})

	t.Run("failed file is not recorded", func(t *testing.T) {
		testFS := fstest.MapFS{
			"902_test_bad.sql": &fstest.MapFile{Data: []byte("THIS IS NOT VALID SQL;")},
		}
		t.Cleanup(func() {
			testStore.pool.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", "902_test_bad.sql")
		})

		if err := testStore.Migrate(ctx, testFS); err == nil {
			t.Fatal("expected error for bad SQL, got nil")
		}
		if migrationRecorded(t, ctx, "902_test_bad.sql") {
			t.Error("bad migration should not be recorded")
		}
	})

	t.Run("applies files in name order", func(t *testing.T) {
		// b depends on a
		testFS := fstest.MapFS{
			"904_test_order_b.sql": &fstest.MapFile{Data: []byte("ALTER TABLE test_order_tbl ADD COLUMN name TEXT;")},
			"903_test_order_a.sql": &fstest.MapFile{Data: []byte("CREATE TABLE test_order_tbl (id INT);")},
		}
		t.Cleanup(func() {
			testStore.pool.Exec(ctx, "DROP TABLE IF EXISTS test_order_tbl")
			testStore.pool.Exec(ctx, "DELETE FROM schema_migrations WHERE version LIKE '90%_test_order%'")
		})

		if err := testStore.Migrate(ctx, testFS); err != nil {
			t.Fatalf("Migrate failed: %v", err)
		}
		if !migrationRecorded(t, ctx, "903_test_order_a.sql") || !migrationRecorded(t, ctx, "904_test_order_b.sql") {
			t.Error("expected both order migrations to be recorded")
		}
	})

	t.Run("empty filesystem", func(t *testing.T) {
		if err := testStore.Migrate(ctx, fstest.MapFS{}); err != nil {
			t.Fatalf("Migrate with empty FS should not error, got: %v", err)
		}
	})
}
