// Package provider defines the model provider interface and the factory that
// builds one from configuration.
package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vvoland/agentrt/pkg/chat"
	"github.com/vvoland/agentrt/pkg/config"
	"github.com/vvoland/agentrt/pkg/model/provider/anthropic"
	"github.com/vvoland/agentrt/pkg/model/provider/openai"
)

// Provider is the interface model providers implement.
type Provider interface {
	// ID identifies the provider type ("openai", "anthropic", ...).
	ID() string

	// CreateChatCompletion performs a single non-streaming completion and
	// returns the assistant text.
	CreateChatCompletion(ctx context.Context, messages []chat.Message) (string, error)
}

// RemoteCompactor is implemented by providers whose backend can compact a
// session's context server-side.
type RemoteCompactor interface {
	SupportsRemoteCompaction() bool
	CompactRemote(ctx context.Context, sessionID string) error
}

// New creates a model provider from the provided configuration.
func New(cfg *config.ModelConfig) (Provider, error) {
	slog.Debug("Creating model provider", "provider", cfg.Provider, "model", cfg.Model)

	switch cfg.Provider {
	case "openai":
		return openai.NewClient(cfg)
	case "anthropic":
		return anthropic.NewClient(cfg)
	default:
		slog.Error("Unknown provider type", "provider", cfg.Provider)
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Provider)
	}
}
