package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"voice-assistant/internal/domain"
)

const DefaultChatModel = "gpt-4o-mini"

// ChatClient generates answers with the chat completions API.
type ChatClient struct {
	api   *goopenai.Client
	model string
}

func NewChatClient(apiKey, model string, timeout time.Duration) *ChatClient {
	return NewChatClientWithURL(apiKey, model, "", timeout)
}

func NewChatClientWithURL(apiKey, model, baseURL string, timeout time.Duration) *ChatClient {
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatClient{
		api:   goopenai.NewClientWithConfig(newConfig(apiKey, baseURL, timeout)),
		model: model,
	}
}

func (c *ChatClient) Name() string {
	return "openai"
}

// Generate sends the prompt as a single user message. The chat API has no
// top_k, so that field of the sampling config is ignored.
func (c *ChatClient) Generate(ctx context.Context, prompt string, s domain.Sampling) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   s.MaxOutputTokens,
		Temperature: float32(s.Temperature),
		TopP:        float32(s.TopP),
		N:           s.CandidateCount,
		Stop:        s.StopSequences,
	})
	if err != nil {
		return "", fmt.Errorf("creating completion: %w", apiError("openai", err))
	}

	if len(resp.Choices) == 0 {
		return "", domain.ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", domain.ErrEmptyResponse
	}

	return text, nil
}
