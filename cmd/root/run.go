package root

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vvoland/agentrt/pkg/chat"
	"github.com/vvoland/agentrt/pkg/config"
	"github.com/vvoland/agentrt/pkg/events"
	"github.com/vvoland/agentrt/pkg/model/provider"
	"github.com/vvoland/agentrt/pkg/protocol"
	"github.com/vvoland/agentrt/pkg/runtime"
	"github.com/vvoland/agentrt/pkg/session"
	"github.com/vvoland/agentrt/pkg/tasks"
	"github.com/vvoland/agentrt/pkg/telemetry"
	"github.com/vvoland/agentrt/pkg/tools"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	var compactAfter bool

	cmd := &cobra.Command{
		Use:   "run <prompt>",
		Short: "Run a single prompt against the configured model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrompt(cmd, flags, strings.Join(args, " "), compactAfter)
		},
	}

	cmd.Flags().BoolVar(&compactAfter, "compact", false, "Compact the session after the turn")

	return cmd
}

func runPrompt(cmd *cobra.Command, flags *rootFlags, prompt string, compactAfter bool) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx, config.FileReader{Path: flags.configPath})
	if err != nil {
		return err
	}

	model, err := provider.New(&cfg.Model)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	mcpTools, stopToolsets, err := startToolsets(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopToolsets()

	eventCh := make(chan events.Event, 64)
	compactDone := make(chan struct{}, 1)
	printerDone := make(chan struct{})
	go func() {
		defer close(printerDone)
		for event := range eventCh {
			switch e := event.(type) {
			case *events.ErrorEvent:
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", e.Message)
			case *events.ToolCallEvent:
				fmt.Fprintf(cmd.ErrOrStderr(), "tool call: %s (%s)\n", e.ToolName, e.CallID)
			case *events.SessionCompactionEvent:
				fmt.Fprintf(cmd.ErrOrStderr(), "compaction %s\n", e.Status)
			case *events.TaskFinishedEvent:
				if e.TaskKind == string(tasks.KindCompact) {
					compactDone <- struct{}{}
				}
			}
		}
	}()
	defer func() {
		close(eventCh)
		<-printerDone
	}()

	sess := session.New(
		session.WithEventChannel(eventCh),
		session.WithTelemetry(telemetry.NewClient(cfg.TelemetryEnabled())),
		session.WithStore(store),
	)
	registerMCPTools(sess, mcpTools)

	workingDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}
	turn := &session.TurnContext{
		Provider:   model,
		WorkingDir: workingDir,
	}

	rt := runtime.New(tools.NewRouter(&cfg.Tools, mcpTools, nil))
	defer rt.AbortTasks()

	sess.AddMessage(ctx, chat.NewMessage(chat.MessageRoleUser, prompt))
	reply, err := model.CreateChatCompletion(ctx, sess.Messages())
	if err != nil {
		return err
	}
	sess.AddMessage(ctx, chat.NewMessage(chat.MessageRoleAssistant, reply))
	fmt.Fprintln(cmd.OutOrStdout(), reply)

	if compactAfter {
		rt.Compact(ctx, sess, turn, []protocol.UserInput{})
		select {
		case <-compactDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

func openStore(cfg *config.Config) (session.Store, func(), error) {
	if cfg.SessionDB == "" {
		return session.NewInMemoryStore(), func() {}, nil
	}
	store, err := session.OpenSQLiteStore(cfg.SessionDB)
	if err != nil {
		return nil, nil, fmt.Errorf("opening session store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}
