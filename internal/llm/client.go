package llm

import (
	"context"
)

// LLMClient is a text-in, text-out completion backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
