package notes

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, dbName string) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Note{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:   db,
		IDProvider: NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service, db
}

func TestCreateAssignsOwnerAndID(t *testing.T) {
	service, _ := newTestService(t, "notes_create")

	note, err := service.Create(context.Background(), "alice", NoteInput{Title: "T1", Content: "C1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if note.ID == "" {
		t.Fatal("expected a generated note id")
	}
	if note.Owner != "alice" {
		t.Fatalf("expected owner alice, got %q", note.Owner)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	service, _ := newTestService(t, "notes_create_invalid")

	if _, err := service.Create(context.Background(), "alice", NoteInput{Content: "C1"}); !errors.Is(err, ErrInvalidTitle) {
		t.Fatalf("expected invalid title error, got %v", err)
	}
	if _, err := service.Create(context.Background(), "alice", NoteInput{Title: "T1"}); !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("expected invalid content error, got %v", err)
	}
	if _, err := service.Create(context.Background(), "", NoteInput{Title: "T1", Content: "C1"}); !errors.Is(err, ErrInvalidOwner) {
		t.Fatalf("expected invalid owner error, got %v", err)
	}
}

func TestGetUnknownNote(t *testing.T) {
	service, _ := newTestService(t, "notes_get_unknown")

	noteID, err := NewNoteID("missing")
	if err != nil {
		t.Fatalf("failed to build note id: %v", err)
	}
	if _, err := service.Get(context.Background(), noteID); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected note not found, got %v", err)
	}
}

func TestUpdateReplacesFields(t *testing.T) {
	service, _ := newTestService(t, "notes_update")

	created, err := service.Create(context.Background(), "alice", NoteInput{Title: "T1", Content: "C1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := service.Update(context.Background(), NoteID(created.ID), NoteInput{Title: "T1", Content: "C2"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Content != "C2" {
		t.Fatalf("expected updated content C2, got %q", updated.Content)
	}
	if updated.Owner != "alice" {
		t.Fatalf("update must not change the owner, got %q", updated.Owner)
	}

	fetched, err := service.Get(context.Background(), NoteID(created.ID))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if fetched.Content != "C2" {
		t.Fatalf("expected persisted content C2, got %q", fetched.Content)
	}
}

func TestUpdateUnknownNote(t *testing.T) {
	service, _ := newTestService(t, "notes_update_unknown")

	if _, err := service.Update(context.Background(), NoteID("missing"), NoteInput{Title: "T", Content: "C"}); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected note not found, got %v", err)
	}
}

func TestDeleteRemovesNote(t *testing.T) {
	service, _ := newTestService(t, "notes_delete")

	created, err := service.Create(context.Background(), "alice", NoteInput{Title: "T1", Content: "C1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := service.Delete(context.Background(), NoteID(created.ID)); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := service.Get(context.Background(), NoteID(created.ID)); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected note to be gone, got %v", err)
	}
	if err := service.Delete(context.Background(), NoteID(created.ID)); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected second delete to report not found, got %v", err)
	}
}

func TestListByOwnerReturnsNewestFirst(t *testing.T) {
	service, db := newTestService(t, "notes_list")

	older := Note{ID: "note-old", Owner: "alice", Title: "Old", Content: "C", CreatedAt: time.Unix(1000, 0)}
	newer := Note{ID: "note-new", Owner: "alice", Title: "New", Content: "C", CreatedAt: time.Unix(2000, 0)}
	foreign := Note{ID: "note-bob", Owner: "bob", Title: "Bob", Content: "C", CreatedAt: time.Unix(3000, 0)}
	for _, note := range []Note{older, newer, foreign} {
		seed := note
		if err := db.Create(&seed).Error; err != nil {
			t.Fatalf("failed to seed note: %v", err)
		}
	}

	listed, err := service.ListByOwner(context.Background(), "alice")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected two notes for alice, got %d", len(listed))
	}
	if listed[0].ID != "note-new" || listed[1].ID != "note-old" {
		t.Fatalf("expected newest first, got %s then %s", listed[0].ID, listed[1].ID)
	}
}

func TestDeleteAllForOwner(t *testing.T) {
	service, db := newTestService(t, "notes_delete_all")

	for _, owner := range []string{"alice", "alice", "bob"} {
		if _, err := service.Create(context.Background(), owner, NoteInput{Title: "T", Content: "C"}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	if err := DeleteAllForOwner(db, "alice"); err != nil {
		t.Fatalf("delete all failed: %v", err)
	}

	var aliceCount, bobCount int64
	if err := db.Model(&Note{}).Where("owner = ?", "alice").Count(&aliceCount).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if err := db.Model(&Note{}).Where("owner = ?", "bob").Count(&bobCount).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if aliceCount != 0 || bobCount != 1 {
		t.Fatalf("expected alice 0 and bob 1, got %d and %d", aliceCount, bobCount)
	}
}
