package llm

import (
	"fmt"
	"strings"

	"github.com/dvloznov/finance-insights/internal/domain"
)

// ExtractJSONObject returns the first balanced JSON object in raw model text.
// Markdown fences and surrounding prose are ignored; braces inside string
// literals do not count.
func ExtractJSONObject(raw string) (string, error) {
	s := stripFences(raw)

	start := strings.IndexByte(s, '{')
	for start != -1 {
		if end := matchBrace(s, start); end != -1 {
			return s[start : end+1], nil
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next == -1 {
			break
		}
		start += next + 1
	}
	return "", fmt.Errorf("ExtractJSONObject: no JSON object in response: %w", domain.ErrJSONParsing)
}

func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
