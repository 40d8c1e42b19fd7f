package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

func TestFingerprint(t *testing.T) {
	base := Fingerprint(models.TierFree, "ocr", []byte("hello\nworld"), map[string]string{"lang": "en", "dpi": "300"})

	tests := []struct {
		name      string
		tier      models.Tier
		operation string
		input     string
		options   map[string]string
		same      bool
	}{
		{name: "option order", tier: models.TierFree, operation: "ocr", input: "hello\nworld", options: map[string]string{"dpi": "300", "lang": "en"}, same: true},
		{name: "crlf and whitespace", tier: models.TierFree, operation: " OCR ", input: "  hello\r\nworld\n", options: map[string]string{"lang": "en", "dpi": "300"}, same: true},
		{name: "different tier", tier: models.TierPro, operation: "ocr", input: "hello\nworld", options: map[string]string{"lang": "en", "dpi": "300"}},
		{name: "different input", tier: models.TierFree, operation: "ocr", input: "hello world", options: map[string]string{"lang": "en", "dpi": "300"}},
		{name: "different option value", tier: models.TierFree, operation: "ocr", input: "hello\nworld", options: map[string]string{"lang": "de", "dpi": "300"}},
		{name: "missing option", tier: models.TierFree, operation: "ocr", input: "hello\nworld", options: map[string]string{"lang": "en"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fingerprint(tt.tier, tt.operation, []byte(tt.input), tt.options)
			assert.Len(t, got, 16)
			if tt.same {
				assert.Equal(t, base, got)
			} else {
				assert.NotEqual(t, base, got)
			}
		})
	}
}

func TestFingerprint_FieldBoundaries(t *testing.T) {
	a := Fingerprint(models.TierFree, "ab", []byte("c"), nil)
	b := Fingerprint(models.TierFree, "a", []byte("bc"), nil)
	assert.NotEqual(t, a, b)

	c := Fingerprint(models.TierFree, "ocr", nil, map[string]string{"ab": "c"})
	d := Fingerprint(models.TierFree, "ocr", nil, map[string]string{"a": "bc"})
	assert.NotEqual(t, c, d)
}
