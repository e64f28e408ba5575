package root

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vvoland/agentrt/pkg/config"
	"github.com/vvoland/agentrt/pkg/session"
	"github.com/vvoland/agentrt/pkg/tools"
	"github.com/vvoland/agentrt/pkg/tools/mcp"
)

// startToolsets launches every configured MCP server and snapshots its tool
// listing. The returned stop function shuts the servers down.
func startToolsets(ctx context.Context, cfg *config.Config) ([]tools.MCPTool, func(), error) {
	var toolsets []*mcp.Toolset
	stop := func() {
		for _, ts := range toolsets {
			if err := ts.Stop(context.WithoutCancel(ctx)); err != nil {
				slog.Debug("Failed to stop MCP toolset", "server", ts.Name(), "error", err)
			}
		}
	}

	var mcpTools []tools.MCPTool
	for _, serverCfg := range cfg.Tools.MCPServers {
		ts := mcp.NewToolset(serverCfg)
		if err := ts.Start(ctx); err != nil {
			stop()
			return nil, nil, fmt.Errorf("starting MCP server %s: %w", serverCfg.Name, err)
		}
		toolsets = append(toolsets, ts)

		listed, err := ts.Tools(ctx)
		if err != nil {
			stop()
			return nil, nil, fmt.Errorf("listing tools of MCP server %s: %w", serverCfg.Name, err)
		}
		mcpTools = append(mcpTools, listed...)
	}

	return mcpTools, stop, nil
}

// registerMCPTools populates the session's tool name table from the listing
// the router was built with.
func registerMCPTools(sess *session.Session, mcpTools []tools.MCPTool) {
	for _, tool := range mcpTools {
		sess.RegisterMCPTool(tools.QualifiedMCPName(tool.Server, tool.Name), tool.Server, tool.Name)
	}
}
