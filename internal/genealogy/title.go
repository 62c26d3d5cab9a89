package genealogy

import (
	"regexp"
	"strings"
)

var generationPattern = regexp.MustCompile(`(?im)^.*\bgeneration`)

// ExtractGenerationTitle returns the first line prefix ending in the word
// "Generation" (any case), trimmed, or "" when there is none.
func ExtractGenerationTitle(text string) string {
	return strings.TrimSpace(generationPattern.FindString(text))
}
