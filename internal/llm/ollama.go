package llm

import (
	"strings"
)

const defaultOllamaURL = "http://localhost:11434"

// NewOllamaClient talks to Ollama through its OpenAI-compatible endpoint.
// Ollama ignores the API key but the client requires one.
func NewOllamaClient(model, baseURL string, maxTokens int, temperature float32) *OpenAIClient {
	return NewOpenAIClient("ollama", model, OllamaBaseURL(baseURL), maxTokens, temperature)
}

// OllamaBaseURL appends the /v1 prefix of the OpenAI-compatible API.
func OllamaBaseURL(baseURL string) string {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL += "/v1"
	}
	return baseURL
}
