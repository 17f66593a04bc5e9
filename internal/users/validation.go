package users

import (
	"net/mail"
	"sort"
	"strings"
)

// RegisterInput carries the raw registration form fields.
type RegisterInput struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
}

// ValidationError reports per-field problems with submitted form input.
// Callers redisplay the form with the field messages instead of failing
// the request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "users: invalid input: " + strings.Join(names, ", ")
}

// validateRegistration checks that every field is present and the email is
// well formed. It returns nil when the input is acceptable.
func validateRegistration(input RegisterInput) *ValidationError {
	fields := map[string]string{}

	if strings.TrimSpace(input.Username) == "" {
		fields["username"] = "Username is required"
	} else if len(strings.TrimSpace(input.Username)) > maxIdentifierLength {
		fields["username"] = "Username is too long"
	}
	if input.Password == "" {
		fields["password"] = "Password is required"
	}
	if strings.TrimSpace(input.Email) == "" {
		fields["email"] = "Email is required"
	} else if _, err := mail.ParseAddress(strings.TrimSpace(input.Email)); err != nil {
		fields["email"] = "Email is not a valid address"
	}
	if strings.TrimSpace(input.FirstName) == "" {
		fields["first_name"] = "First name is required"
	}
	if strings.TrimSpace(input.LastName) == "" {
		fields["last_name"] = "Last name is required"
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
