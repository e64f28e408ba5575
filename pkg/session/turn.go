package session

import "github.com/vvoland/agentrt/pkg/model/provider"

// TurnContext carries the per-turn capabilities the router and tasks consume:
// the model provider and the working directory tool calls execute in. It is
// shared read-only across everything running within the turn.
type TurnContext struct {
	Provider   provider.Provider
	WorkingDir string
}
