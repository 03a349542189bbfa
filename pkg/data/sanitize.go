package data

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoJSON = errors.New("error sanitizing answer: no json value found")

// SanitizeAnswer returns the first balanced JSON object or array embedded in a
// completion, skipping any prose or code fences around it.
func SanitizeAnswer(ans string) (string, error) {
	for start := 0; start < len(ans); start++ {
		if ans[start] != '{' && ans[start] != '[' {
			continue
		}
		if end, ok := matchClosing(ans, start); ok && json.Valid([]byte(ans[start:end+1])) {
			return ans[start : end+1], nil
		}
	}
	return "", ErrNoJSON
}

func matchClosing(s string, start int) (int, bool) {
	var (
		stack    []byte
		inString bool
		escaped  bool
	)
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
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// StripFences removes a surrounding markdown code fence, if any.
func StripFences(ans string) string {
	s := strings.TrimSpace(ans)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
