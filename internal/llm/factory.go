package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/agenthands/lorekeeper/internal/config"
)

// Verdicts are one word; a small budget keeps judge calls cheap.
const defaultMaxTokens = 16

func NewClient(ctx context.Context, cfg config.LLMConfig) (LLMClient, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens, cfg.Temperature), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature)

	case "claude":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens, cfg.Temperature), nil

	case "ollama":
		baseURL := OllamaBaseURL(cfg.BaseURL)
		zap.L().Info("using ollama via OpenAI-compatible API", zap.String("base_url", baseURL))
		return NewOllamaClient(cfg.Model, baseURL, cfg.MaxTokens, cfg.Temperature), nil

	default:
		return nil, eris.Errorf("unsupported llm provider: %s", provider)
	}
}
