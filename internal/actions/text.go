package actions

import "strings"

// MatchLines returns up to limit lines of content containing keyword,
// compared case-insensitively.
func MatchLines(content, keyword string, limit int) []string {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	if needle == "" {
		return nil
	}
	matched := make([]string, 0, limit)
	for _, line := range strings.Split(content, "\n") {
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		matched = append(matched, line)
		if limit > 0 && len(matched) == limit {
			break
		}
	}
	return matched
}

// Truncate keeps the first max runes of content and appends "..." when
// anything was cut.
func Truncate(content string, max int) string {
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}
