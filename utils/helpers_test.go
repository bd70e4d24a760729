package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain", "Widget", "Widget.jpg"},
		{"Punctuation", "Dental Mirror (Pack of 10)", "Dental_Mirror_Pack_of_10.jpg"},
		{"Whitespace Runs", "  Spaced \t  out  ", "Spaced_out.jpg"},
		{"Symbols", "3M ESPE Filtek™ Z350", "3M_ESPE_Filtek_Z350.jpg"},
		{"Path Separators", "a/b\\c", "abc.jpg"},
		{"Hyphens Kept", "Kit - Small", "Kit_-_Small.jpg"},
		{"Underscore Kept", "snake_case", "snake_case.jpg"},
		{"Accents Kept", "Café Crème", "Café_Crème.jpg"},
		{"Dots Removed", "v1.2 Probe", "v12_Probe.jpg"},
		{"Nothing Left", "!!!", "unnamed.jpg"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeFilename(tc.input))
		})
	}
}

func TestSanitizeFilenameIsIdempotent(t *testing.T) {
	titles := []string{"Widget", "Dental Mirror (Pack of 10)", "  x  y  ", "Café Crème", "!!!", ""}
	for _, title := range titles {
		first := SanitizeFilename(title)
		require.Equal(t, first, SanitizeFilename(title), "same title must give the same name")

		stem := strings.TrimSuffix(first, ".jpg")
		require.Equal(t, first, SanitizeFilename(stem), "sanitizing a sanitized stem must not change it")
	}
}
