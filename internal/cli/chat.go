// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/jeranaias/strands-chat/internal/api"
	"github.com/jeranaias/strands-chat/internal/chat"
	"github.com/jeranaias/strands-chat/internal/config"
	"github.com/jeranaias/strands-chat/internal/model"
	"github.com/jeranaias/strands-chat/internal/store"
	"github.com/jeranaias/strands-chat/internal/util"
)

// HandleChat runs a chat session. With positional arguments, they form a
// single one-shot message; otherwise an interactive loop starts.
func HandleChat(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	client := buildClient(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// The parameter document gates everything else: without it there is no
	// model to talk to.
	param, err := client.GetParameter(ctx)
	if err != nil {
		return fmt.Errorf("backend unavailable: %w", err)
	}

	sessionPath, err := cfg.SessionFilePath()
	if err != nil {
		return err
	}
	st := store.New(
		store.WithPersister(store.NewFilePersister(sessionPath)),
		store.WithPersistErrorHandler(func(err error) {
			logger.Warn("session persist failed", "error", err)
		}),
	)

	ensureModel(st, cfg, param)

	opts := []chat.OrchestratorOption{
		chat.WithLogger(logger),
		chat.WithChunkHandler(func(text string) { fmt.Print(text) }),
	}
	if sel := buildSelector(cfg, client, param); sel != nil {
		opts = append(opts, chat.WithToolSelector(sel))
	}
	orch := chat.NewOrchestrator(client, st, opts...)

	if len(args) > 0 {
		return runOneShot(ctx, orch, st, strings.Join(args, " "))
	}
	return runInteractive(ctx, orch, st, param)
}

// ensureModel makes the store's model selection valid against the parameter
// document, falling back to the configured default and then the first
// advertised model.
func ensureModel(st *store.Store, cfg *config.Config, param model.Parameter) {
	current := st.Model()
	if !current.IsZero() && param.ValidModel(current) {
		return
	}

	if cfg.Chat.DefaultModel != "" {
		for _, m := range param.Models {
			if m.ID == cfg.Chat.DefaultModel {
				st.SetModel(m)
				return
			}
		}
	}
	if def, ok := param.DefaultModel(); ok {
		st.SetModel(def)
	}
}

// buildSelector picks the tool selector for the configured mode. Manual mode
// returns nil: only explicitly enabled tools are used.
func buildSelector(cfg *config.Config, client *api.Client, param model.Parameter) chat.ToolSelector {
	keyword := &chat.KeywordSelector{Available: availableTools(param)}

	switch cfg.Chat.ToolSelection {
	case config.ToolSelectionKeyword:
		return keyword
	case config.ToolSelectionManual:
		return nil
	default:
		return &chat.FallbackSelector{Primary: client, Secondary: keyword}
	}
}

// availableTools filters the known tools by deployment feature toggles.
func availableTools(param model.Parameter) []string {
	var tools []string
	for _, t := range model.AllTools {
		if t == model.ToolWebSearch && !param.WebSearch {
			continue
		}
		tools = append(tools, t)
	}
	return tools
}

// =============================================================================
// ONE-SHOT MODE
// =============================================================================

func runOneShot(ctx context.Context, orch *chat.Orchestrator, st *store.Store, message string) error {
	st.ResetConversation()
	st.SetUserInput(message)
	if err := orch.SubmitTurn(ctx); err != nil {
		return err
	}
	fmt.Println()
	return nil
}

// =============================================================================
// INTERACTIVE MODE
// =============================================================================

func runInteractive(ctx context.Context, orch *chat.Orchestrator, st *store.Store, param model.Parameter) error {
	if err := orch.InitialLoad(ctx); err != nil {
		return err
	}

	mdl := st.Model()
	fmt.Printf("strands-chat %s  model: %s  (/help for commands)\n", Version, mdl.DisplayName)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := handleCommand(ctx, orch, st, param, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		st.SetUserInput(line)
		if err := orch.SubmitTurn(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Println()
	}
}

// handleCommand dispatches a slash command. It returns true when the session
// should end.
func handleCommand(ctx context.Context, orch *chat.Orchestrator, st *store.Store, param model.Parameter, line string) (bool, error) {
	fields := strings.Fields(line)
	cmd, rest := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/help":
		printChatHelp()
		return false, nil

	case "/new":
		orch.NewConversation()
		fmt.Println("Started a new conversation.")
		return false, nil

	case "/list":
		printConversations(st)
		return false, nil

	case "/more":
		if !orch.CanLoadMoreConversations() {
			fmt.Println("No more conversations.")
			return false, nil
		}
		if err := orch.LoadMoreConversations(ctx); err != nil {
			return false, err
		}
		printConversations(st)
		return false, nil

	case "/open":
		if len(rest) != 1 {
			return false, fmt.Errorf("usage: /open <number>")
		}
		n, err := strconv.Atoi(rest[0])
		convs := st.Conversations()
		if err != nil || n < 1 || n > len(convs) {
			return false, fmt.Errorf("no such conversation: %s", rest[0])
		}
		if err := orch.SelectConversation(ctx, convs[n-1].ResourceID); err != nil {
			return false, err
		}
		printTranscript(st)
		return false, nil

	case "/model":
		if len(rest) == 0 {
			for i, m := range param.Models {
				marker := " "
				if m.ID == st.Model().ID {
					marker = "*"
				}
				fmt.Printf("%s %2d  %s (%s)\n", marker, i+1, m.DisplayName, m.Region)
			}
			return false, nil
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 1 || n > len(param.Models) {
			return false, fmt.Errorf("no such model: %s", rest[0])
		}
		st.SetModel(param.Models[n-1])
		fmt.Printf("Model: %s\n", param.Models[n-1].DisplayName)
		return false, nil

	case "/tools":
		enabled := st.Tools()
		if len(enabled) == 0 {
			fmt.Println("No tools pinned; selection is automatic per turn.")
		}
		for _, t := range availableTools(param) {
			marker := " "
			for _, e := range enabled {
				if e == t {
					marker = "*"
				}
			}
			fmt.Printf("%s %s\n", marker, t)
		}
		return false, nil

	case "/tool":
		if len(rest) != 1 {
			return false, fmt.Errorf("usage: /tool <name>")
		}
		return false, toggleTool(st, param, rest[0])

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

// toggleTool pins or unpins a tool mode for subsequent turns.
func toggleTool(st *store.Store, param model.Parameter, name string) error {
	if !model.ValidTool(name) {
		return fmt.Errorf("unknown tool: %s", name)
	}
	for _, t := range availableTools(param) {
		if t != name {
			continue
		}
		tools := st.Tools()
		for i, e := range tools {
			if e == name {
				st.SetTools(append(tools[:i], tools[i+1:]...))
				fmt.Printf("Unpinned %s.\n", name)
				return nil
			}
		}
		st.SetTools(append(tools, name))
		fmt.Printf("Pinned %s.\n", name)
		return nil
	}
	return fmt.Errorf("tool not available in this deployment: %s", name)
}

func printConversations(st *store.Store) {
	convs := st.Conversations()
	if len(convs) == 0 {
		fmt.Println("No conversations.")
		return
	}
	for i, conv := range convs {
		marker := " "
		if conv.ResourceID == st.ConversationID() {
			marker = "*"
		}
		fmt.Printf("%s %2d  %s\n", marker, i+1, util.TruncateRunes(conv.Title, 60))
	}
}

func printTranscript(st *store.Store) {
	for _, msg := range st.Messages() {
		switch msg.Role {
		case model.RoleUser:
			fmt.Printf("> %s\n", msg.Text())
		case model.RoleAssistant:
			fmt.Printf("%s\n", msg.Text())
		}
	}
}

func printChatHelp() {
	fmt.Print(`Commands:
  /new            Start a new conversation
  /list           List loaded conversations
  /more           Load the next page of conversations
  /open <n>       Switch to conversation n and print its transcript
  /model [n]      List models, or select model n
  /tools          Show tool modes (* = pinned)
  /tool <name>    Pin or unpin a tool mode
  /quit           Exit
`)
}
