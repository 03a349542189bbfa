package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeAnswer(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"prose around", "Sure! Here it is: {\"a\":{\"b\":[1,2]}} hope it helps", `{"a":{"b":[1,2]}}`},
		{"array", "result:\n[{\"text\":\"x\"}]", `[{"text":"x"}]`},
		{"braces inside strings", `{"text":"a } tricky { value"}`, `{"text":"a } tricky { value"}`},
		{"escaped quote", `{"text":"say \"hi\" }"}`, `{"text":"say \"hi\" }"}`},
		{"fenced", "```json\n{\"calls\":[]}\n```", `{"calls":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeAnswer(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeAnswerNoJSON(t *testing.T) {
	_, err := SanitizeAnswer("I could not find anything {unbalanced")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "plain", StripFences("  plain  "))
	assert.Equal(t, "day 1: museum", StripFences("```text\nday 1: museum\n```"))
}

func TestSanitizeAnswerSkipsInvalidCandidates(t *testing.T) {
	got, err := SanitizeAnswer(`[note] see {"ok":true}`)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, got)
}
