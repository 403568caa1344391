package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// leadingThinkBlock strips the reasoning preamble some self-hosted models
// emit before their answer.
var leadingThinkBlock = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)

// ExtractJSON pulls the first JSON value out of a completion that may wrap
// it in prose, markdown fences or a reasoning preamble. Collaborator
// prompts ask for bare JSON; providers do not always comply.
func ExtractJSON(response string) (string, error) {
	cleaned := leadingThinkBlock.ReplaceAllString(response, "")

	objAt := strings.IndexByte(cleaned, '{')
	arrAt := strings.IndexByte(cleaned, '[')

	// Whichever bracket appears first is the likeliest answer shape.
	if objAt >= 0 && (arrAt < 0 || objAt < arrAt) {
		if s, ok := balanced(cleaned, '{', '}'); ok && json.Valid([]byte(s)) {
			return s, nil
		}
	}
	if arrAt >= 0 {
		if s, ok := balanced(cleaned, '[', ']'); ok && json.Valid([]byte(s)) {
			return s, nil
		}
	}

	if trimmed := strings.TrimSpace(cleaned); json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}
	return "", fmt.Errorf("no JSON value found in completion")
}

// balanced returns the first bracket-balanced slice of s. String literals
// are honored so brackets inside quoted text do not count toward depth.
func balanced(s string, open, closing byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseJSONResponse extracts the JSON value from a completion and decodes
// it into T.
func ParseJSONResponse[T any](response string) (T, error) {
	var out T

	raw, err := ExtractJSON(response)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("failed to decode completion JSON: %w", err)
	}
	return out, nil
}
