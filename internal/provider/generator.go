package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ModelGenerator adapts an eino ChatModel to the rag.Generator contract:
// one prompt in, one completion out, with a per-request temperature.
type ModelGenerator struct {
	model ChatModel
}

// NewModelGenerator wraps m as a generator.
func NewModelGenerator(m ChatModel) (*ModelGenerator, error) {
	if m == nil {
		return nil, fmt.Errorf("provider: chat model is required")
	}
	return &ModelGenerator{model: m}, nil
}

// Generate sends prompt as a single user message and returns the model's
// text content.
func (g *ModelGenerator) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	resp, err := g.model.Generate(ctx,
		[]*schema.Message{schema.UserMessage(prompt)},
		model.WithTemperature(temperature),
	)
	if err != nil {
		return "", fmt.Errorf("provider: generate: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("provider: model returned no response")
	}
	return resp.Content, nil
}
