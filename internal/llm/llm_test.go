package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decisionPayload struct {
	Action     string  `json:"action"`
	ElementID  string  `json:"element_id"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

func TestParseJSONResponseRaw(t *testing.T) {
	var out decisionPayload
	ok := ParseJSONResponse(`{"action":"click","element_id":"42","reasoning":"matches","confidence":0.9}`, &out)
	require.True(t, ok)
	assert.Equal(t, "click", out.Action)
	assert.Equal(t, "42", out.ElementID)
}

func TestParseJSONResponseFenced(t *testing.T) {
	raw := "Here is my answer:\n```json\n{\"action\":\"tap\",\"element_id\":\"7\",\"reasoning\":\"ok\",\"confidence\":0.5}\n```\nHope that helps."
	var out decisionPayload
	ok := ParseJSONResponse(raw, &out)
	require.True(t, ok)
	assert.Equal(t, "tap", out.Action)
}

func TestParseJSONResponseEmbeddedInProse(t *testing.T) {
	raw := `I think the right move is {"action":"swipe","element_id":"","reasoning":"scroll down","confidence":0.6} based on the screen.`
	var out decisionPayload
	ok := ParseJSONResponse(raw, &out)
	require.True(t, ok)
	assert.Equal(t, "swipe", out.Action)
}

func TestParseJSONResponseBacktickStripped(t *testing.T) {
	raw := "`{\"action\":\"click\",\"element_id\":\"9\",\"reasoning\":\"`quoted`\",\"confidence\":0.4}`"
	var out decisionPayload
	ok := ParseJSONResponse(raw, &out)
	require.True(t, ok)
	assert.Equal(t, "click", out.Action)
}

func TestParseJSONResponseUnparsable(t *testing.T) {
	var out decisionPayload
	ok := ParseJSONResponse("I cannot help with that.", &out)
	assert.False(t, ok)
}

func TestFirstJSONBlockHandlesNestedBracesAndStrings(t *testing.T) {
	raw := `prefix {"a": {"b": 1}, "c": "contains } brace"} suffix`
	block := firstJSONBlock(raw)
	assert.Equal(t, `{"a": {"b": 1}, "c": "contains } brace"}`, block)
}
