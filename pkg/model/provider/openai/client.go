// Package openai implements the model provider interface on top of the
// OpenAI API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/vvoland/agentrt/pkg/chat"
	"github.com/vvoland/agentrt/pkg/config"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client wraps the OpenAI SDK client.
type Client struct {
	client  openai.Client
	config  config.ModelConfig
	apiKey  string
	baseURL string
}

// NewClient creates a new OpenAI client from the provided configuration.
func NewClient(cfg *config.ModelConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("model configuration is required")
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		slog.Error("OpenAI client creation failed", "error", "OPENAI_API_KEY environment variable is required")
		return nil, errors.New("OPENAI_API_KEY environment variable is required")
	}

	clientOptions := []option.RequestOption{option.WithAPIKey(apiKey)}
	baseURL := defaultBaseURL
	if cfg.BaseURL != "" {
		baseURL = strings.TrimRight(cfg.BaseURL, "/")
		clientOptions = append(clientOptions, option.WithBaseURL(cfg.BaseURL))
	}

	slog.Debug("OpenAI client created", "model", cfg.Model, "base_url", baseURL)
	return &Client{
		client:  openai.NewClient(clientOptions...),
		config:  *cfg,
		apiKey:  apiKey,
		baseURL: baseURL,
	}, nil
}

func (c *Client) ID() string {
	return "openai"
}

// CreateChatCompletion performs a single non-streaming completion.
func (c *Client) CreateChatCompletion(ctx context.Context, messages []chat.Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("at least one message is required")
	}

	params := openai.ChatCompletionNewParams{
		Model:    c.config.Model,
		Messages: convertMessages(messages),
	}
	if c.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.config.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// SupportsRemoteCompaction reports whether the backend offers server-side
// session compaction. Opt-in via configuration.
func (c *Client) SupportsRemoteCompaction() bool {
	return c.config.RemoteCompaction
}

// CompactRemote asks the backend to compact a session's server-held context.
// The session's conversation state lives behind the API; no local input is
// sent.
func (c *Client) CompactRemote(ctx context.Context, sessionID string) error {
	endpoint := fmt.Sprintf("%s/sessions/%s/compact", c.baseURL, url.PathEscape(sessionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building remote compact request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote compact request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote compact request failed: %s", resp.Status)
	}
	slog.Debug("Remote compaction completed", "session_id", sessionID)
	return nil
}

func convertMessages(messages []chat.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.MessageRoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case chat.MessageRoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		case chat.MessageRoleTool:
			// Tool transcripts are replayed as user context; the
			// summarization calls this client makes never continue a live
			// tool exchange.
			out = append(out, openai.UserMessage("[tool "+msg.ToolCallID+"] "+msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
