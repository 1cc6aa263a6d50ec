package validate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidMobile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"exact ten digits", "9876543210", true},
		{"nine digits", "987654321", false},
		{"eleven digits", "98765432101", false},
		{"leading 0", "0123456789", false},
		{"leading 1", "1234567890", false},
		{"leading 2", "2234567890", false},
		{"leading 3", "3234567890", false},
		{"leading 4", "4234567890", false},
		{"leading 5", "5234567890", false},
		{"leading 6", "6234567890", true},
		{"leading 7", "7234567890", true},
		{"leading 8", "8234567890", true},
		{"numeric cell artifact", "9876543210.0", true},
		{"spaces and dashes", " 98765-43210 ", true},
		{"country code", "+91 98765 43210", false},
		{"country code without plus", "919876543210", false},
		{"eleven digits with trunk zero", "09876543210", false},
		{"fullwidth digits", "９８７６５４３２１０", true},
		{"empty", "", false},
		{"nan", "nan", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ValidMobile(tt.input), "input=%q", tt.input)
		})
	}
}

func TestNormalizeMobile(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "9876543210", NormalizeMobile("9876543210.0"))
	assert.Equal(t, "919876543210", NormalizeMobile("(+91) 98765-43210"))
	assert.Equal(t, "09876543210", NormalizeMobile("09876543210"))
	assert.Equal(t, "12345", NormalizeMobile("12a3-45"))
	assert.Equal(t, "", NormalizeMobile("n/a"))
	assert.Equal(t, "0123456789", NormalizeMobile("0123456789"))
}

func TestValidName(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidName("Asha"))
	assert.True(t, ValidName("  Ram "))
	assert.True(t, ValidName("राम"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("   "))
	assert.False(t, ValidName("Al"))
	assert.False(t, ValidName(" A  "))
}

func TestValidCoordinate(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidCoordinate(0, 0))
	assert.True(t, ValidCoordinate(90, 180))
	assert.True(t, ValidCoordinate(-90, -180))
	assert.True(t, ValidCoordinate(20.93, 77.75))
	assert.False(t, ValidCoordinate(90.0001, 0))
	assert.False(t, ValidCoordinate(0, -180.5))
	assert.False(t, ValidCoordinate(math.NaN(), 0))
	assert.False(t, ValidCoordinate(0, math.Inf(1)))
}
