package utils

import (
	"regexp"
	"strings"
)

// imageExt is appended to every sanitized name whatever the real image format is.
const imageExt = ".jpg"

// filenameRegex matches anything that is not a word character, whitespace or a hyphen.
var filenameRegex = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s\p{Zs}-]+`)

var whitespaceRegex = regexp.MustCompile(`[\s\p{Zs}]+`)

// SanitizeFilename turns a product title into a filesystem-safe image filename.
func SanitizeFilename(title string) string {
	// 1. Remove all invalid characters
	name := filenameRegex.ReplaceAllString(title, "")

	// 2. Trim, then collapse internal whitespace into underscores
	name = strings.TrimSpace(name)
	name = whitespaceRegex.ReplaceAllString(name, "_")

	if name == "" {
		name = "unnamed"
	}
	return name + imageExt
}
