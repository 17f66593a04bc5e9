package notes

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidNoteID indicates that a note identifier is empty or exceeds storage bounds.
	ErrInvalidNoteID = errors.New("notes: invalid note id")
	// ErrInvalidOwner indicates that an owner username is empty or exceeds storage bounds.
	ErrInvalidOwner = errors.New("notes: invalid owner")
	// ErrInvalidTitle indicates that a note title is empty.
	ErrInvalidTitle = errors.New("notes: invalid title")
	// ErrInvalidContent indicates that note content is empty.
	ErrInvalidContent = errors.New("notes: invalid content")
)

// NoteID represents a validated note identifier.
type NoteID string

// NewNoteID validates raw input and returns a NoteID.
func NewNoteID(rawInput string) (NoteID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidNoteID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidNoteID, maxIdentifierLength)
	}
	return NoteID(trimmed), nil
}

// String returns the underlying string identifier.
func (id NoteID) String() string {
	return string(id)
}

// Note models a persisted note. Every note belongs to exactly one owner;
// the owner column references users.username and is never empty.
type Note struct {
	ID        string    `gorm:"column:id;primaryKey;size:190;not null"`
	Owner     string    `gorm:"column:owner;size:190;not null;index:idx_notes_owner"`
	Title     string    `gorm:"column:title;size:320;not null"`
	Content   string    `gorm:"column:content;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}

// NoteInput carries the raw note form fields.
type NoteInput struct {
	Title   string
	Content string
}

func validateNoteInput(input NoteInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTitle)
	}
	if strings.TrimSpace(input.Content) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidContent)
	}
	return nil
}
