package users

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxIdentifierLength = 190

// ErrInvalidUsername indicates that a username is empty or exceeds storage bounds.
var ErrInvalidUsername = errors.New("users: invalid username")

// User is the credential record backing an account. The username is the
// primary key and never changes after registration; the password is stored
// only as a bcrypt hash with the salt embedded in the hash output.
type User struct {
	Username     string    `gorm:"column:username;primaryKey;size:190;not null"`
	PasswordHash string    `gorm:"column:password_hash;size:100;not null"`
	Email        string    `gorm:"column:email;size:320;not null"`
	FirstName    string    `gorm:"column:first_name;size:190;not null"`
	LastName     string    `gorm:"column:last_name;size:190;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing credential records.
func (User) TableName() string {
	return "users"
}

// Username represents a validated account identifier.
type Username string

// NewUsername validates raw input and returns a Username.
func NewUsername(rawInput string) (Username, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUsername)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidUsername, maxIdentifierLength)
	}
	return Username(trimmed), nil
}

// String returns the underlying string identifier.
func (u Username) String() string {
	return string(u)
}
