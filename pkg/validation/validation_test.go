package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "converter", SanitizeString("  conv\x00erter\n"))
	assert.Equal(t, "ab", SanitizeString("a\tb"))
}

func TestValidateServiceID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "converter", false},
		{"with hyphen and underscore", "doc-converter_v2", false},
		{"empty", "", true},
		{"leading digit", "2converter", true},
		{"space", "doc converter", true},
		{"control character", "converter\n", true},
		{"slash", "prod/converter", true},
		{"too long", "a" + strings.Repeat("b", 255), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServiceID(tt.id)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUserID(t *testing.T) {
	assert.NoError(t, ValidateUserID("user-42@example.com"))
	assert.ErrorIs(t, ValidateUserID(""), ErrInvalidInput)
	assert.ErrorIs(t, ValidateUserID("   "), ErrInvalidInput)
	assert.ErrorIs(t, ValidateUserID(" padded"), ErrInvalidInput)
	assert.ErrorIs(t, ValidateUserID(strings.Repeat("u", 129)), ErrInvalidInput)
}

func TestValidateCapacityBounds(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
		wantErr  bool
	}{
		{"scale to zero allowed", 0, 1, false},
		{"fixed floor", 2, 10, false},
		{"negative min", -1, 3, true},
		{"zero max", 0, 0, true},
		{"max below min", 4, 3, true},
		{"max too large", 0, 1001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCapacityBounds(tt.min, tt.max)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
