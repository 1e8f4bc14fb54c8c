package validator

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLength = 80
	maxRoleLength = 40
)

var (
	// ErrEmptyName indicates the staff name is blank after trimming
	ErrEmptyName = errors.New("staff name cannot be empty")

	// ErrNameTooLong indicates the staff name exceeds the column width shown on the rota
	ErrNameTooLong = errors.New("staff name must be at most 80 characters")

	// ErrInvalidNameFormat indicates the name contains characters other than letters, spaces, dots, apostrophes or hyphens
	ErrInvalidNameFormat = errors.New("staff name can only contain letters, spaces, dots, apostrophes and hyphens")

	// ErrRoleTooLong indicates the role label exceeds its limit
	ErrRoleTooLong = errors.New("staff role must be at most 40 characters")

	// ErrUnknownTerminal indicates the terminal is not one the rota is kept for
	ErrUnknownTerminal = errors.New("unknown terminal")
)

// nameRegex matches letters (any script), spaces and common name punctuation
var nameRegex = regexp.MustCompile(`^[\p{L} .'\-]+$`)

// whitespaceRegex matches runs of whitespace
var whitespaceRegex = regexp.MustCompile(`\s+`)

// StaffValidator validates and normalises staff input before it reaches the store
type StaffValidator struct {
	terminals map[int]bool
}

// NewStaffValidator creates a validator accepting the given terminals
func NewStaffValidator(terminals []int) *StaffValidator {
	allowed := make(map[int]bool, len(terminals))
	for _, t := range terminals {
		allowed[t] = true
	}
	return &StaffValidator{terminals: allowed}
}

// ValidateName validates a staff name and returns it normalised:
// trimmed, single-spaced and upper-cased, the way names appear on the rota.
func (v *StaffValidator) ValidateName(name string) (string, error) {
	sanitized := v.Sanitize(name)
	if sanitized == "" {
		return "", ErrEmptyName
	}

	if utf8.RuneCountInString(sanitized) > maxNameLength {
		return "", ErrNameTooLong
	}

	if !nameRegex.MatchString(sanitized) {
		return "", ErrInvalidNameFormat
	}

	return strings.ToUpper(sanitized), nil
}

// Sanitize trims a value and collapses internal whitespace
func (v *StaffValidator) Sanitize(value string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(value), " ")
}

// ValidateRole trims a free-text role label; empty is allowed
func (v *StaffValidator) ValidateRole(role string) (string, error) {
	sanitized := v.Sanitize(role)
	if utf8.RuneCountInString(sanitized) > maxRoleLength {
		return "", ErrRoleTooLong
	}
	return sanitized, nil
}

// ValidateTerminal checks the terminal is configured
func (v *StaffValidator) ValidateTerminal(terminal int) error {
	if !v.terminals[terminal] {
		return ErrUnknownTerminal
	}
	return nil
}

// IsValidTerminal is a convenience method that returns true if the terminal is configured
func (v *StaffValidator) IsValidTerminal(terminal int) bool {
	return v.ValidateTerminal(terminal) == nil
}
