// Package openai adapts the OpenAI Chat Completions API to the engine's
// text-generation collaborator contract.
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/yungbote/courseflow-backend/internal/engine"
	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/utils"
)

type Client struct {
	log          *logger.Logger
	client       *openai.Client
	defaultModel string
}

func NewClient(log *logger.Logger) (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &Client{
		log:          log.With("client", "OpenAI"),
		client:       &client,
		defaultModel: utils.GetEnv("OPENAI_MODEL", openai.ChatModelGPT4oMini, log),
	}, nil
}

// Stream forwards output-text deltas as they arrive. The fragments are never
// buffered; an onDelta error (consumer gone) stops the stream.
func (c *Client) Stream(ctx context.Context, req engine.GenerateRequest, onDelta func(delta string) error) error {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	params := openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()
	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := onDelta(choice.Delta.Content); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("chat completion stream: %w", err)
	}
	return nil
}
