// Package anthropic implements the model provider interface on top of the
// Anthropic API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/vvoland/agentrt/pkg/chat"
	"github.com/vvoland/agentrt/pkg/config"
)

const defaultMaxTokens = 4096

// Client wraps the Anthropic SDK client.
type Client struct {
	client anthropic.Client
	config config.ModelConfig
}

// NewClient creates a new Anthropic client from the provided configuration.
func NewClient(cfg *config.ModelConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("model configuration is required")
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		slog.Error("Anthropic client creation failed", "error", "ANTHROPIC_API_KEY environment variable is required")
		return nil, errors.New("ANTHROPIC_API_KEY environment variable is required")
	}

	clientOptions := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		clientOptions = append(clientOptions, option.WithBaseURL(cfg.BaseURL))
	}

	slog.Debug("Anthropic client created", "model", cfg.Model)
	return &Client{
		client: anthropic.NewClient(clientOptions...),
		config: *cfg,
	}, nil
}

func (c *Client) ID() string {
	return "anthropic"
}

// CreateChatCompletion performs a single non-streaming completion.
func (c *Client) CreateChatCompletion(ctx context.Context, messages []chat.Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("at least one message is required")
	}

	maxTokens := int64(c.config.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	system, converted := convertMessages(messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: maxTokens,
		Messages:  converted,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("creating message: %w", err)
	}

	var out strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return out.String(), nil
}

// convertMessages splits out the system prompt and maps the rest onto
// Anthropic's strict user/assistant alternation. Tool transcripts are
// replayed as user context.
func convertMessages(messages []chat.Message) (string, []anthropic.MessageParam) {
	var system strings.Builder
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.MessageRoleSystem:
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(msg.Content)
		case chat.MessageRoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		case chat.MessageRoleTool:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock("[tool "+msg.ToolCallID+"] "+msg.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return system.String(), out
}
