package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	langChainPrompts "github.com/tmc/langchaingo/prompts"
)

// Chain completes requests through a langchaingo LLMChain.
type Chain struct {
	model       llms.Model
	temperature float64
}

func NewChain(model llms.Model, temperature float64) *Chain {
	return &Chain{model: model, temperature: temperature}
}

func NewOpenAI(model, token string, temperature float64) (*Chain, error) {
	opts := []openai.Option{openai.WithModel(model)}
	if token != "" {
		opts = append(opts, openai.WithToken(token))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return NewChain(llm, temperature), nil
}

func (c *Chain) Complete(ctx context.Context, req Request) (string, error) {
	keys := make([]string, 0, len(req.Inputs))
	for k := range req.Inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	chain := chains.NewLLMChain(c.model, langChainPrompts.NewPromptTemplate(req.Template, keys))
	completion, err := chains.Call(ctx, chain, req.Inputs, chains.WithTemperature(c.temperature))
	if err != nil {
		return "", fmt.Errorf("call: %w", err)
	}
	text, ok := completion[chain.OutputKey].(string)
	if !ok {
		return "", errors.New("call: completion has no text output")
	}
	return text, nil
}
