// Package llm defines the LLM Adapter capability (spec §4.C): a uniform
// query/queryWithVision surface over vendor-specific text and multimodal
// APIs, plus the response parser every decision tier depends on.
package llm

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
)

// Adapter is the uniform capability the decision engine consumes. Every
// vendor implementation wraps its own text/multimodal endpoints behind
// this surface.
type Adapter interface {
	Query(ctx context.Context, prompt, systemPrompt string) (string, error)
	QueryWithVision(ctx context.Context, prompt, imageBase64, systemPrompt string) (string, error)
}

// defaultTemperature is the deterministic-leaning value spec §4.C names
// ("≈0.7 in source"); implementations may use 0 for reproducible testing.
const defaultTemperature = 0.7

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseJSONResponse applies the four-stage recovery spec §4.C mandates:
// raw JSON, fenced JSON, JSON embedded in prose, and backtick-stripped
// content. out must be a pointer. Returns false (never an error) when no
// stage produces valid JSON — callers treat that as the universal
// "proceed to next tier" signal with confidence 0.
func ParseJSONResponse(raw string, out interface{}) bool {
	trimmed := strings.TrimSpace(raw)

	if json.Unmarshal([]byte(trimmed), out) == nil {
		return true
	}

	if m := fencedJSON.FindStringSubmatch(trimmed); m != nil {
		if json.Unmarshal([]byte(strings.TrimSpace(m[1])), out) == nil {
			return true
		}
	}

	if block := firstJSONBlock(trimmed); block != "" {
		if json.Unmarshal([]byte(block), out) == nil {
			return true
		}
	}

	stripped := strings.ReplaceAll(trimmed, "`", "")
	if block := firstJSONBlock(stripped); block != "" {
		if json.Unmarshal([]byte(block), out) == nil {
			return true
		}
	}

	return false
}

// firstJSONBlock scans for the first balanced {...} or [...] block, the
// recovery spec §4.C step 3 describes ("JSON embedded in surrounding
// prose — recover the first block").
func firstJSONBlock(s string) string {
	openIdx := -1
	var open, close byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			openIdx = i
			open = s[i]
			if open == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if openIdx == -1 {
		return ""
	}

	depth := 0
	inString := false
	escape := false
	for i := openIdx; i < len(s); i++ {
		c := s[i]
		if inString {
			if escape {
				escape = false
			} else if c == '\\' {
				escape = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[openIdx : i+1]
			}
		}
	}
	return ""
}
