package llm

import (
	"context"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/rotisserie/eris"
)

type ClaudeClient struct {
	client      *anthropic.Client
	model       string
	maxTokens   int
	temperature float32
}

func NewClaudeClient(apiKey, model, baseURL string, maxTokens int, temperature float32) *ClaudeClient {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &ClaudeClient{
		client:      anthropic.NewClient(apiKey, opts...),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (c *ClaudeClient) Generate(ctx context.Context, prompt string) (string, error) {
	temperature := c.temperature
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
		MaxTokens:   c.maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return "", eris.Wrap(err, "claude: create message")
	}

	if len(resp.Content) > 0 && resp.Content[0].Text != nil {
		return *resp.Content[0].Text, nil
	}
	return "", eris.New("claude: no response content")
}
