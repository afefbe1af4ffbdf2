package extractor

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// parseObject decodes model output into a JSON object. Strict decoding is
// tried first, then the first balanced top-level {...} block, then the span
// from the first "{" to the last "}".
func parseObject(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("empty output")
	}

	if obj, err := decodeObject(trimmed); err == nil {
		return obj, nil
	}

	if candidate, ok := firstBalancedObject(trimmed); ok {
		if obj, err := decodeObject(candidate); err == nil {
			return obj, nil
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}
	return decodeObject(trimmed[start : end+1])
}

func decodeObject(raw string) (map[string]any, error) {
	var obj map[string]any
	if err := sonic.UnmarshalString(raw, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("json null is not an object")
	}
	return obj, nil
}

// firstBalancedObject returns the first brace-delimited block whose braces
// balance, ignoring braces inside JSON strings.
func firstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
