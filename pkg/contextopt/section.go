package contextopt

import (
	"regexp"
	"strings"
)

// extractMarkdownSection pulls the Markdown section starting at the first
// line matching heading out of text, stopping at the next heading of equal
// or shallower level, capped at maxChars.
func extractMarkdownSection(text string, heading *regexp.Regexp, maxChars int) string {
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	startIdx := -1
	headingLevel := 2

	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if heading.MatchString(stripped) {
			if m := headingPattern.FindStringSubmatch(stripped); m != nil {
				headingLevel = len(m[1])
			}
			startIdx = i
			break
		}
	}

	if startIdx == -1 {
		return ""
	}

	var collected []string
	currentLength := 0

	for _, line := range lines[startIdx:] {
		stripped := strings.TrimSpace(line)
		if len(collected) > 0 {
			if m := headingPattern.FindStringSubmatch(stripped); m != nil && len(m[1]) <= headingLevel {
				break
			}
		}
		if currentLength+len(line)+1 > maxChars {
			break
		}
		collected = append(collected, line)
		currentLength += len(line) + 1
	}

	return strings.TrimSpace(strings.Join(collected, "\n"))
}
