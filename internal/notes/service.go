package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()

	// ErrNoteNotFound indicates that no note exists for the requested identifier.
	ErrNoteNotFound = errors.New("notes: note not found")
)

// ServiceError wraps a failure with a stable operation.reason code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew  = "notes.service.new"
	opCreate      = "notes.create"
	opGet         = "notes.get"
	opUpdate      = "notes.update"
	opDelete      = "notes.delete"
	opListByOwner = "notes.list_by_owner"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues surrogate note identifiers.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required by the note store.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service persists notes and enforces the one-owner-per-note data model.
// Ownership checks against the acting identity happen in the HTTP layer;
// the service trusts the owner it is handed.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the note store.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Create validates the input and persists a new note owned by owner.
func (s *Service) Create(ctx context.Context, owner string, input NoteInput) (*Note, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" || len(owner) > maxIdentifierLength {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOwner, owner)
	}
	if err := validateNoteInput(input); err != nil {
		return nil, err
	}

	noteID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err, zap.String("owner", owner))
		return nil, newServiceError(opCreate, "id_generation_failed", err)
	}

	note := Note{
		ID:      noteID,
		Owner:   owner,
		Title:   strings.TrimSpace(input.Title),
		Content: input.Content,
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("owner", owner))
		return nil, newServiceError(opCreate, "insert_failed", err)
	}

	return &note, nil
}

// Get returns the note for the identifier, or ErrNoteNotFound.
func (s *Service) Get(ctx context.Context, noteID NoteID) (*Note, error) {
	var note Note
	err := s.db.WithContext(ctx).Where("id = ?", noteID.String()).Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.String("note_id", noteID.String()))
		return nil, newServiceError(opGet, "query_failed", err)
	}
	return &note, nil
}

// Update applies the new title and content to the note in one transaction.
// Last writer wins; there is no version field.
func (s *Service) Update(ctx context.Context, noteID NoteID, input NoteInput) (*Note, error) {
	if err := validateNoteInput(input); err != nil {
		return nil, err
	}

	var note Note
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", noteID.String()).Take(&note).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoteNotFound
		}
		if err != nil {
			return newServiceError(opUpdate, "query_failed", err)
		}

		note.Title = strings.TrimSpace(input.Title)
		note.Content = input.Content
		if err := tx.Save(&note).Error; err != nil {
			return newServiceError(opUpdate, "save_failed", err)
		}
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrNoteNotFound) {
			s.logError(opUpdate, "transaction_failed", txErr, zap.String("note_id", noteID.String()))
		}
		return nil, txErr
	}
	return &note, nil
}

// Delete removes the note, or returns ErrNoteNotFound.
func (s *Service) Delete(ctx context.Context, noteID NoteID) error {
	result := s.db.WithContext(ctx).Where("id = ?", noteID.String()).Delete(&Note{})
	if result.Error != nil {
		s.logError(opDelete, "delete_failed", result.Error, zap.String("note_id", noteID.String()))
		return newServiceError(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNoteNotFound
	}
	return nil
}

// ListByOwner returns the owner's notes, newest first.
func (s *Service) ListByOwner(ctx context.Context, owner string) ([]Note, error) {
	var result []Note
	if err := s.db.WithContext(ctx).
		Where("owner = ?", strings.TrimSpace(owner)).
		Order("created_at DESC").
		Find(&result).Error; err != nil {
		s.logError(opListByOwner, "query_failed", err, zap.String("owner", owner))
		return nil, newServiceError(opListByOwner, "query_failed", err)
	}
	return result, nil
}

// DeleteAllForOwner removes every note owned by owner using the supplied
// transaction handle. The account cascade delete calls this so that notes
// and the user row vanish together or not at all.
func DeleteAllForOwner(tx *gorm.DB, owner string) error {
	return tx.Where("owner = ?", strings.TrimSpace(owner)).Delete(&Note{}).Error
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("notes service error", attrs...)
}
