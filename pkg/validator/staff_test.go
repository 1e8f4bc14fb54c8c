package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStaffValidator(t *testing.T) {
	validator := NewStaffValidator([]int{2, 3})
	assert.NotNil(t, validator)
}

func TestValidateName_ValidNames(t *testing.T) {
	validator := NewStaffValidator(nil)

	validNames := []struct {
		input    string
		expected string
		name     string
	}{
		{"Lovejoy Legaspi", "LOVEJOY LEGASPI", "Standard name"},
		{"  rosha   rodrigues ", "ROSHA RODRIGUES", "Extra whitespace"},
		{"Mary-Jane O'Neil", "MARY-JANE O'NEIL", "Hyphen and apostrophe"},
		{"J. Smith", "J. SMITH", "Initial with dot"},
		{"José Álvarez", "JOSÉ ÁLVAREZ", "Accented letters"},
		{"MARIA", "MARIA", "Already upper case"},
	}

	for _, tc := range validNames {
		t.Run(tc.name, func(t *testing.T) {
			normalised, err := validator.ValidateName(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, normalised)
		})
	}
}

func TestValidateName_InvalidNames(t *testing.T) {
	validator := NewStaffValidator(nil)

	invalidNames := []struct {
		input       string
		expectedErr error
		name        string
	}{
		{"", ErrEmptyName, "Empty string"},
		{"   ", ErrEmptyName, "Only spaces"},
		{strings.Repeat("a", 81), ErrNameTooLong, "Too long"},
		{"Agent 007", ErrInvalidNameFormat, "Contains digits"},
		{"Bob <script>", ErrInvalidNameFormat, "Contains markup"},
	}

	for _, tc := range invalidNames {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.ValidateName(tc.input)
			assert.Error(t, err)
			assert.Equal(t, tc.expectedErr, err)
		})
	}
}

func TestValidateRole(t *testing.T) {
	validator := NewStaffValidator(nil)

	role, err := validator.ValidateRole("  Sales   Associate ")
	require.NoError(t, err)
	assert.Equal(t, "Sales Associate", role)

	role, err = validator.ValidateRole("")
	require.NoError(t, err)
	assert.Equal(t, "", role)

	_, err = validator.ValidateRole(strings.Repeat("x", 41))
	assert.Equal(t, ErrRoleTooLong, err)
}

func TestValidateTerminal(t *testing.T) {
	validator := NewStaffValidator([]int{2, 3, 4, 5})

	for _, terminal := range []int{2, 3, 4, 5} {
		assert.NoError(t, validator.ValidateTerminal(terminal))
		assert.True(t, validator.IsValidTerminal(terminal))
	}

	for _, terminal := range []int{0, 1, 6, -2} {
		assert.Equal(t, ErrUnknownTerminal, validator.ValidateTerminal(terminal))
	}
}
