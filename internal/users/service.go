package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/notewall/backend/internal/notes"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()

	// ErrDuplicateUsername indicates that a registration collided with an
	// existing account.
	ErrDuplicateUsername = errors.New("users: username already taken")
	// ErrUserNotFound indicates that no credential record exists for the
	// requested username.
	ErrUserNotFound = errors.New("users: user not found")
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
	opServiceNew   = "users.service.new"
	opRegister     = "users.register"
	opAuthenticate = "users.authenticate"
	opGet          = "users.get"
	opDelete       = "users.delete"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the dependencies required by the credential store.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	BcryptCost int
	Logger     *zap.Logger
}

// Service persists credential records and runs the account lifecycle:
// registration, authentication, and cascading account deletion.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	bcryptCost int
	logger     *zap.Logger
}

// NewService constructs the credential store.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		bcryptCost: cost,
		logger:     logger,
	}, nil
}

// Register validates the input, hashes the password, and creates the
// credential record. The plaintext password is never persisted.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if validationErr := validateRegistration(input); validationErr != nil {
		return nil, validationErr
	}

	username := strings.TrimSpace(input.Username)

	var existing User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&existing).Error
	if err == nil {
		return nil, ErrDuplicateUsername
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logError(opRegister, "query_failed", err, zap.String("username", username))
		return nil, newServiceError(opRegister, "query_failed", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		s.logError(opRegister, "hash_failed", err, zap.String("username", username))
		return nil, newServiceError(opRegister, "hash_failed", err)
	}

	user := User{
		Username:     username,
		PasswordHash: string(hash),
		Email:        strings.TrimSpace(input.Email),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		s.logError(opRegister, "insert_failed", err, zap.String("username", username))
		return nil, newServiceError(opRegister, "insert_failed", err)
	}

	s.logger.Info("user registered", zap.String("username", username))
	return &user, nil
}

// Authenticate looks up the username and verifies the password against the
// stored hash. Unknown usernames and wrong passwords are indistinguishable:
// both return a nil user with a nil error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logError(opAuthenticate, "query_failed", err)
		return nil, newServiceError(opAuthenticate, "query_failed", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return &user, nil
}

// Get returns the credential record for the username, or ErrUserNotFound.
func (s *Service) Get(ctx context.Context, username string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.String("username", username))
		return nil, newServiceError(opGet, "query_failed", err)
	}
	return &user, nil
}

// Delete removes the account and every note it owns in a single
// transaction. Either both the notes and the user row are gone afterward,
// or neither is.
func (s *Service) Delete(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user User
		err := tx.Where("username = ?", username).Take(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return newServiceError(opDelete, "query_failed", err)
		}

		if err := notes.DeleteAllForOwner(tx, username); err != nil {
			return newServiceError(opDelete, "notes_delete_failed", err)
		}
		if err := tx.Where("username = ?", username).Delete(&User{}).Error; err != nil {
			return newServiceError(opDelete, "user_delete_failed", err)
		}
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrUserNotFound) {
			s.logError(opDelete, "transaction_failed", txErr, zap.String("username", username))
		}
		return txErr
	}

	s.logger.Info("user deleted", zap.String("username", username))
	return nil
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
	s.logger.Error("users service error", attrs...)
}
