package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/terminalrota/rota-backend/pkg/shift"
)

// ErrNotFound is returned by writes that matched no row.
var ErrNotFound = errors.New("record not found")

var (
	publishedColumns = shift.Days[:]
	draftColumns     = func() []string {
		cols := make([]string, len(shift.Days))
		for i, day := range shift.Days {
			cols[i] = shift.DraftColumn(day)
		}
		return cols
	}()
	// All 14 day columns, published first. ShiftColumns.Args uses the same order.
	shiftColumns = append(append([]string{}, publishedColumns...), draftColumns...)

	shiftColumnList = strings.Join(shiftColumns, ", ")
)

// assignments renders "col = $n, ..." starting at placeholder first.
func assignments(cols []string, first int) string {
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = fmt.Sprintf("%s = $%d", col, first+i)
	}
	return strings.Join(parts, ", ")
}

// placeholders renders "$first, ..., $first+n-1".
func placeholders(first, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", first+i)
	}
	return strings.Join(parts, ", ")
}

// excluded renders "col = EXCLUDED.col, ..." for upserts.
func excluded(cols []string) string {
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}
	return strings.Join(parts, ", ")
}

// nullColumns renders "col = NULL, ...".
func nullColumns(cols []string) string {
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = col + " = NULL"
	}
	return strings.Join(parts, ", ")
}

func weekArgs(w [7]string) []interface{} {
	args := make([]interface{}, len(w))
	for i, s := range w {
		if strings.TrimSpace(s) == "" {
			args[i] = nil
		} else {
			args[i] = s
		}
	}
	return args
}

func rowsAffected(result interface{ RowsAffected() (int64, error) }, what string) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", what, err)
	}
	return n, nil
}
