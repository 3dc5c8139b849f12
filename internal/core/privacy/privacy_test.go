package privacy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPhoneNumber(t *testing.T) {
	testCases := []struct {
		input string
		want  bool
	}{
		{"+55 11 91234-5678", true},
		{"(11) 91234-5678", true},
		{"12345678", true},
		{"123456789012345", true},
		{"+1 555 123 4567", true},
		{"1234567", false},
		{"1234567890123456", false},
		{"Ana", false},
		{"Ana 91234-5678", false},
		{"+55 11 9123.4567", false},
		{"", false},
		{"+ - ()", false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, IsPhoneNumber(tc.input))
		})
	}
}

func TestMaskPhoneNumber(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{"+55 11 91234-5678", "+*********5678"},
		{"(11) 91234-5678", "*******5678"},
		{"12345678", "****5678"},
		{"+1 (555) 123-4567", "+*******4567"},
		{"1234", "1234"},
		{"+12", "+12"},
		{"(+55) 11 91234-5678", "+*********5678"},
		{"- +55 11 91234-5678", "+*********5678"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, MaskPhoneNumber(tc.input))
		})
	}
}

func TestMaskKeepsLastFourDigits(t *testing.T) {
	inputs := []string{"+55 11 91234-5678", "98765432", "+44 20 7946 0958", "(021) 3333-4444"}
	for _, in := range inputs {
		masked := MaskPhoneNumber(in)
		digits, _ := digitsOf(in)

		assert.True(t, strings.HasSuffix(masked, digits[len(digits)-4:]), in)
		assert.Equal(t, len(digits)-4, strings.Count(masked, "*"), in)
		assert.Equal(t, strings.HasPrefix(in, "+"), strings.HasPrefix(masked, "+"), in)
	}
}

func TestProcessName(t *testing.T) {
	assert.Equal(t, "Ana", ProcessName("  Ana "))
	assert.Equal(t, "Tio João (trabalho)", ProcessName("Tio João (trabalho)"))
	assert.Equal(t, "+*********5678", ProcessName(" +55 11 91234-5678"))
	assert.Equal(t, "007", ProcessName("007"))
}
