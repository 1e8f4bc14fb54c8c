package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/terminalrota/rota-backend/pkg/validator"
)

var (
	ErrStaffNotFound      = errors.New("staff member not found")
	ErrUnknownTerminal    = validator.ErrUnknownTerminal
	ErrSessionNotFound    = errors.New("edit session not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidDay         = errors.New("day index must be between 0 and 6")
	ErrInvalidDirection   = errors.New("direction must be previous, next or current")
)

// RowError is one staff row that could not be written.
type RowError struct {
	StaffID int64  `json:"staff_id"`
	Week    string `json:"week"`
	Err     error  `json:"-"`
	Message string `json:"error"`
}

// RowErrors collects per-row failures of a batch write. The batch keeps
// going past them; callers report them without failing the request.
type RowErrors []RowError

func (e *RowErrors) add(staffID int64, week string, err error) {
	*e = append(*e, RowError{StaffID: staffID, Week: week, Err: err, Message: err.Error()})
}

func (e RowErrors) Error() string {
	parts := make([]string, len(e))
	for i, r := range e {
		parts[i] = fmt.Sprintf("staff %d (%s): %v", r.StaffID, r.Week, r.Err)
	}
	return fmt.Sprintf("%d row(s) failed: %s", len(e), strings.Join(parts, "; "))
}

// Unwrap lets errors.Is see through to the row causes.
func (e RowErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, r := range e {
		errs[i] = r.Err
	}
	return errs
}

// StaffIDs returns the distinct failed ids in ascending order.
func (e RowErrors) StaffIDs() []int64 {
	seen := make(map[int64]bool, len(e))
	ids := make([]int64, 0, len(e))
	for _, r := range e {
		if !seen[r.StaffID] {
			seen[r.StaffID] = true
			ids = append(ids, r.StaffID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OrNil returns nil for an empty collection so it can be returned as error.
func (e RowErrors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// AsRowErrors extracts the row failures from err, if that is what it is.
func AsRowErrors(err error) (RowErrors, bool) {
	var rows RowErrors
	if errors.As(err, &rows) {
		return rows, true
	}
	return nil, false
}
