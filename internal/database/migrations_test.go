package database

import (
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/notewall/backend/internal/notes"
	"github.com/notewall/backend/internal/users"
)

func newMigrationDB(t *testing.T, dbName string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&users.User{}, &notes.Note{}, &migrationRecord{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func TestPurgeOrphanedNotesMigration(t *testing.T) {
	db := newMigrationDB(t, "migrations_purge")

	alice := users.User{Username: "alice", PasswordHash: "x", Email: "a@x.com", FirstName: "Alice", LastName: "A"}
	if err := db.Create(&alice).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	owned := notes.Note{ID: "note-owned", Owner: "alice", Title: "T", Content: "C"}
	orphan := notes.Note{ID: "note-orphan", Owner: "ghost", Title: "T", Content: "C"}
	if err := db.Create(&owned).Error; err != nil {
		t.Fatalf("failed to seed note: %v", err)
	}
	if err := db.Create(&orphan).Error; err != nil {
		t.Fatalf("failed to seed orphan: %v", err)
	}

	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	var count int64
	if err := db.Model(&notes.Note{}).Where("owner = ?", "ghost").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected orphaned notes to be purged, found %d", count)
	}
	if err := db.Model(&notes.Note{}).Where("owner = ?", "alice").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected owned note to survive, found %d", count)
	}
}

func TestMigrationsRunOnce(t *testing.T) {
	db := newMigrationDB(t, "migrations_once")

	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("first migration run failed: %v", err)
	}

	// A migration already recorded in the ledger must not run again.
	orphan := notes.Note{ID: "note-late-orphan", Owner: "ghost", Title: "T", Content: "C"}
	if err := db.Create(&orphan).Error; err != nil {
		t.Fatalf("failed to seed orphan: %v", err)
	}
	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("second migration run failed: %v", err)
	}

	var count int64
	if err := db.Model(&notes.Note{}).Where("id = ?", "note-late-orphan").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected recorded migration to be skipped, note count %d", count)
	}
}
