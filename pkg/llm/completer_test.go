package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"go-tripplanner/pkg/prompts"
)

type answer struct {
	City  string   `json:"city"`
	Days  int      `json:"days"`
	Notes []string `json:"notes,omitempty"`
}

func TestGenerateDecodesWrappedAnswer(t *testing.T) {
	var seen Request
	c := Func(func(_ context.Context, req Request) (string, error) {
		seen = req
		return "Here you go:\n```json\n{\"city\":\"Ankara\",\"days\":8,\"extra\":true}\n```", nil
	})

	got, err := Generate[answer](context.Background(), c, Request{Task: "t", Template: "x", Inputs: map[string]any{"A": 1}})
	require.NoError(t, err)
	assert.Equal(t, answer{City: "Ankara", Days: 8}, got)
	assert.Equal(t, 1, seen.Inputs["A"])
	assert.Contains(t, seen.Inputs["Schema"], `"city"`)
	assert.NotNil(t, seen.Schema)
}

func TestGenerateRetriesThenReportsSchemaError(t *testing.T) {
	calls := 0
	c := Func(func(context.Context, Request) (string, error) {
		calls++
		return `{"city": 42}`, nil
	})

	_, err := Generate[answer](context.Background(), c, Request{Task: "t"}, WithAttempts(3))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, `{"city": 42}`, schemaErr.Raw)
	assert.Equal(t, 3, calls)
}

func TestGenerateSecondAttemptSucceeds(t *testing.T) {
	answers := []string{"sorry, no json", `{"city":"Izmir","days":2}`}
	c := Func(func(context.Context, Request) (string, error) {
		a := answers[0]
		answers = answers[1:]
		return a, nil
	})

	got, err := Generate[answer](context.Background(), c, Request{Task: "t"})
	require.NoError(t, err)
	assert.Equal(t, "Izmir", got.City)
}

func TestGenerateDoesNotRetryCompletionErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	c := Func(func(context.Context, Request) (string, error) {
		calls++
		return "", boom
	})

	_, err := Generate[answer](context.Background(), c, Request{Task: "t"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

type fakeModel struct {
	prompt string
	answer string
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, part := range messages[0].Parts {
		if text, ok := part.(llms.TextContent); ok {
			f.prompt = text.Text
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.answer}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestChainRendersTemplate(t *testing.T) {
	model := &fakeModel{answer: `{"city":"Bursa","days":1}`}
	chain := NewChain(model, 0)

	got, err := Generate[answer](context.Background(), chain, Request{
		Task:     "t",
		Template: "Plan a trip to {{.City}}. Schema: {{.Schema}}",
		Inputs:   map[string]any{"City": "Bursa"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bursa", got.City)
	assert.True(t, strings.HasPrefix(model.prompt, "Plan a trip to Bursa. Schema: {"))
}

func TestMockExtractsTripDetails(t *testing.T) {
	m := NewMock()
	out, err := m.Complete(context.Background(), Request{
		Task:   prompts.TaskGuardianExtract,
		Inputs: map[string]any{"Conversation": "User: from Istanbul to Ankara on 2025-11-03, back 2025-11-10\npreferences: budget economy"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"departure_location": "Istanbul",
		"arrival_location": "Ankara",
		"departure_date": "2025-11-03",
		"return_date": "2025-11-10",
		"preferences": "budget economy"
	}`, out)
}

func TestMockRejectsUnknownTask(t *testing.T) {
	_, err := NewMock().Complete(context.Background(), Request{Task: "nope"})
	assert.Error(t, err)
}
