package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"go-tripplanner/pkg/data"
)

// Completer is the completion capability: it renders Template with Inputs and
// returns the model's raw answer.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type Request struct {
	// Task names the calling stage, e.g. "guardian.extract".
	Task     string
	Template string
	Inputs   map[string]any
	// Schema is the expected shape of the answer, also rendered into Inputs["Schema"].
	Schema *jsonschema.Schema
}

// Func adapts a function to Completer.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// SchemaError reports an answer that does not match the expected shape.
type SchemaError struct {
	Task string
	Raw  string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: answer does not match schema: %v", e.Task, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

type generateConfig struct {
	attempts int
}

type GenerateOption func(*generateConfig)

// WithAttempts sets how many completions are requested before a SchemaError
// is returned.
func WithAttempts(n int) GenerateOption {
	return func(c *generateConfig) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// Generate asks c for a JSON answer shaped like T, validates it against the
// schema inferred from T and decodes it.
func Generate[T any](ctx context.Context, c Completer, req Request, opts ...GenerateOption) (T, error) {
	var zero T
	cfg := generateConfig{attempts: 2}
	for _, opt := range opts {
		opt(&cfg)
	}

	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return zero, fmt.Errorf("schema for %s: %w", req.Task, err)
	}
	relax(schema)
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return zero, fmt.Errorf("resolve schema for %s: %w", req.Task, err)
	}
	rendered, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return zero, fmt.Errorf("marshal schema for %s: %w", req.Task, err)
	}

	inputs := make(map[string]any, len(req.Inputs)+1)
	for k, v := range req.Inputs {
		inputs[k] = v
	}
	inputs["Schema"] = string(rendered)
	req.Inputs = inputs
	req.Schema = schema

	var lastErr error
	for attempt := 0; attempt < cfg.attempts; attempt++ {
		answer, err := c.Complete(ctx, req)
		if err != nil {
			return zero, fmt.Errorf("complete %s: %w", req.Task, err)
		}
		out, err := decode[T](req.Task, answer, resolved)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return zero, lastErr
}

func decode[T any](task, answer string, resolved *jsonschema.Resolved) (T, error) {
	var out T
	match, err := data.SanitizeAnswer(answer)
	if err != nil {
		return out, &SchemaError{Task: task, Raw: answer, Err: err}
	}
	var instance any
	if err := json.Unmarshal([]byte(match), &instance); err != nil {
		return out, &SchemaError{Task: task, Raw: answer, Err: err}
	}
	if err := resolved.Validate(instance); err != nil {
		return out, &SchemaError{Task: task, Raw: answer, Err: err}
	}
	if err := json.Unmarshal([]byte(match), &out); err != nil {
		return out, &SchemaError{Task: task, Raw: answer, Err: err}
	}
	return out, nil
}

// relax drops the closed-object constraint so extra keys in an answer are
// ignored instead of rejected.
func relax(s *jsonschema.Schema) {
	if s == nil {
		return
	}
	s.AdditionalProperties = nil
	for _, p := range s.Properties {
		relax(p)
	}
	relax(s.Items)
}
