// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/strands-chat/internal/api"
	"github.com/jeranaias/strands-chat/internal/model"
	"github.com/jeranaias/strands-chat/internal/store"
	"github.com/jeranaias/strands-chat/internal/stream"
)

// =============================================================================
// ERRORS AND CONSTANTS
// =============================================================================

var (
	// ErrTurnInFlight indicates a turn is already streaming.
	ErrTurnInFlight = errors.New("a turn is already in flight")

	// ErrEmptyInput indicates the draft has neither text nor attachments.
	ErrEmptyInput = errors.New("empty input")

	// ErrNoModel indicates no model has been selected.
	ErrNoModel = errors.New("no model selected")
)

// reconcileTimeout bounds the post-stream reconciliation fetch. Reconcile
// runs on a detached context so a cancelled turn still reconciles.
const reconcileTimeout = 30 * time.Second

// =============================================================================
// INTERFACES
// =============================================================================

// Repository is the backend surface the orchestrator drives.
type Repository interface {
	CreateChat(ctx context.Context) (model.Conversation, error)
	ListChats(ctx context.Context, cursor string) (api.Page[model.Conversation], error)
	GetMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	CreateTitle(ctx context.Context, conversationID string, msgs []model.Message) (string, error)
	OpenStream(ctx context.Context, sr api.StreamRequest) (io.ReadCloser, error)
}

// ToolSelector decides which tool modes a prompt should run with.
type ToolSelector interface {
	SelectTools(ctx context.Context, prompt string) ([]string, error)
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator drives conversation turns against a Repository, folding all
// state changes into the session store.
type Orchestrator struct {
	repo     Repository
	selector ToolSelector
	store    *store.Store
	logger   *slog.Logger

	// onChunk is invoked for every decoded chunk, after it has been folded
	// into the store. Used for live rendering.
	onChunk func(text string)

	// onConversationsChanged fires after the background conversation-list
	// refresh triggered by a turn's first chunk.
	onConversationsChanged func()

	// Conversation list pagination. Guarded by convMu: the first-chunk
	// refresh updates the cursor from its own goroutine.
	convMu     sync.Mutex
	convCursor string
	convLoaded bool
	convDone   bool
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithToolSelector sets the tool selector consulted before each turn.
func WithToolSelector(sel ToolSelector) OrchestratorOption {
	return func(o *Orchestrator) { o.selector = sel }
}

// WithChunkHandler sets the live chunk callback.
func WithChunkHandler(fn func(text string)) OrchestratorOption {
	return func(o *Orchestrator) { o.onChunk = fn }
}

// WithConversationsChangedHandler sets the callback fired when a background
// refresh replaces the conversation list.
func WithConversationsChangedHandler(fn func()) OrchestratorOption {
	return func(o *Orchestrator) { o.onConversationsChanged = fn }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = logger }
}

// NewOrchestrator creates an orchestrator over the given repository and
// session store.
func NewOrchestrator(repo Repository, st *store.Store, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		repo:   repo,
		store:  st,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// =============================================================================
// TURN SUBMISSION
// =============================================================================

// SubmitTurn submits the current draft as a conversation turn and streams
// the assistant's reply into the store.
//
// The pending user and assistant messages are appended before the stream
// opens, so the transcript shows the turn immediately. Whatever happens to
// the stream afterwards, the streaming flag is cleared and the transcript is
// reconciled against the server before SubmitTurn returns.
//
// A decode failure ends the turn with the error sentinel visible in the
// assistant message; it is not returned as an error. Failing to open the
// stream is.
func (o *Orchestrator) SubmitTurn(ctx context.Context) error {
	if o.store.Streaming() {
		return ErrTurnInFlight
	}

	text := o.store.UserInput()
	files := o.store.InputFiles()
	trimmed := strings.TrimSpace(text)
	if trimmed == "" && len(files) == 0 {
		return ErrEmptyInput
	}

	mdl := o.store.Model()
	if mdl.IsZero() {
		return ErrNoModel
	}

	conversationID, created, err := o.ensureConversation(ctx)
	if err != nil {
		return err
	}

	tools := o.store.Tools()
	if len(tools) == 0 && o.selector != nil {
		tools = o.selectTools(ctx, trimmed)
	}

	userMsg := model.NewUserMessage(text, files, tools)
	asstMsg := model.NewAssistantMessage()
	asstMsg.Tools = append([]string(nil), tools...)

	o.store.AppendMessages(userMsg, asstMsg)
	o.store.ClearDraft()
	o.store.SetStreaming(true)

	defer func() {
		o.store.SetStreaming(false)
		o.reconcile(ctx, conversationID)
	}()

	if created {
		go o.generateTitle(context.WithoutCancel(ctx), conversationID, userMsg)
	}

	body, err := o.repo.OpenStream(ctx, api.StreamRequest{
		ConversationID:   conversationID,
		ModelID:          mdl.ID,
		ModelRegion:      mdl.Region,
		UserMessage:      userMsg,
		AssistantMessage: asstMsg,
	})
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	defer body.Close()

	dec := stream.NewDecoder(body)
	firstChunk := true
	for {
		chunk, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream failed: %w", err)
		}

		if firstChunk {
			firstChunk = false
			// The server wrote the turn; pick up its ordering and any
			// title change without blocking the stream.
			go o.refreshConversations(context.WithoutCancel(ctx))
		}

		o.store.AppendToLastMessage(chunk.Text)
		if o.onChunk != nil {
			o.onChunk(chunk.Text)
		}
		if chunk.Err != nil {
			o.logger.WarnContext(ctx, "stream decode failed", "error", chunk.Err)
			return nil
		}
	}
}

// ensureConversation returns the active conversation ID, creating a server
// conversation first when the session is still unsaved.
func (o *Orchestrator) ensureConversation(ctx context.Context) (id string, created bool, err error) {
	id = o.store.ConversationID()
	if id != store.NewConversationID {
		return id, false, nil
	}

	conv, err := o.repo.CreateChat(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to create conversation: %w", err)
	}

	o.store.SetConversationID(conv.ResourceID)
	o.store.SetConversations(append([]model.Conversation{conv}, o.store.Conversations()...))
	return conv.ResourceID, true, nil
}

// selectTools consults the selector. Any failure degrades to no tools.
func (o *Orchestrator) selectTools(ctx context.Context, prompt string) []string {
	tools, err := o.selector.SelectTools(ctx, prompt)
	if err != nil {
		o.logger.WarnContext(ctx, "tool selection failed", "error", err)
		return nil
	}
	return tools
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// reconcile replaces every in-memory message that has a committed server
// copy, covering pending messages left behind by earlier failed turns as
// well as the current one. The table does not persist tool metadata, so a
// committed message whose tools field is absent inherits them from the
// in-memory copy; an explicitly empty list stays empty. Reconcile failures
// are logged and swallowed; the transcript stays on the optimistic local
// copy.
func (o *Orchestrator) reconcile(ctx context.Context, conversationID string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reconcileTimeout)
	defer cancel()

	committed, err := o.repo.GetMessages(rctx, conversationID)
	if err != nil {
		o.logger.WarnContext(ctx, "reconcile failed", "conversation", conversationID, "error", err)
		return
	}

	byResource := make(map[string]model.Message, len(committed))
	for _, m := range committed {
		byResource[m.ResourceID] = m
	}

	for _, local := range o.store.Messages() {
		srv, ok := byResource[local.ResourceID]
		if !ok {
			continue
		}
		if srv.Tools == nil {
			srv.Tools = local.Tools
		}
		o.store.ReplaceMessage(local.ResourceID, srv)
	}
}

// =============================================================================
// LOADING
// =============================================================================

// InitialLoad populates the store for a fresh session: the first page of
// conversations, and the active conversation's transcript when one is set.
func (o *Orchestrator) InitialLoad(ctx context.Context) error {
	page, err := o.repo.ListChats(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to load conversations: %w", err)
	}
	o.store.SetConversations(page.Items)
	o.setConvCursor(page.NextCursor, !page.HasMore())

	if id := o.store.ConversationID(); id != store.NewConversationID {
		return o.LoadMessages(ctx)
	}
	return nil
}

// LoadMessages fetches the active conversation's transcript. The fetched
// copy replaces the in-memory list only when it is at least as long, so a
// stale read never erases messages appended locally in the meantime.
func (o *Orchestrator) LoadMessages(ctx context.Context) error {
	id := o.store.ConversationID()
	if id == store.NewConversationID {
		return nil
	}

	msgs, err := o.repo.GetMessages(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}

	if len(msgs) >= o.store.MessageCount() {
		o.store.SetMessages(msgs)
	} else {
		o.logger.Debug("skipping stale transcript",
			"conversation", id,
			"fetched", len(msgs),
			"in_memory", o.store.MessageCount())
	}
	return nil
}

// LoadMoreConversations appends the next page of the conversation list.
func (o *Orchestrator) LoadMoreConversations(ctx context.Context) error {
	if !o.CanLoadMoreConversations() {
		return nil
	}

	o.convMu.Lock()
	cursor := o.convCursor
	o.convMu.Unlock()

	page, err := o.repo.ListChats(ctx, cursor)
	if err != nil {
		return fmt.Errorf("failed to load conversations: %w", err)
	}
	o.store.AppendConversations(page.Items)
	o.setConvCursor(page.NextCursor, !page.HasMore())
	return nil
}

// CanLoadMoreConversations reports whether another conversation page exists.
func (o *Orchestrator) CanLoadMoreConversations() bool {
	o.convMu.Lock()
	defer o.convMu.Unlock()
	return o.convLoaded && !o.convDone
}

func (o *Orchestrator) setConvCursor(cursor string, done bool) {
	o.convMu.Lock()
	o.convCursor = cursor
	o.convLoaded = true
	o.convDone = done
	o.convMu.Unlock()
}

// refreshConversations refetches the first page of the conversation list,
// picking up server-side ordering and title changes made by the turn in
// flight. Failures are logged and dropped.
func (o *Orchestrator) refreshConversations(ctx context.Context) {
	rctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	page, err := o.repo.ListChats(rctx, "")
	if err != nil {
		o.logger.Warn("conversation list refresh failed", "error", err)
		return
	}
	o.store.SetConversations(page.Items)
	o.setConvCursor(page.NextCursor, !page.HasMore())
	if o.onConversationsChanged != nil {
		o.onConversationsChanged()
	}
}

// SelectConversation switches to an existing conversation and loads its
// transcript.
func (o *Orchestrator) SelectConversation(ctx context.Context, conversationID string) error {
	o.store.SetConversationID(conversationID)
	o.store.SetMessages(nil)
	return o.LoadMessages(ctx)
}

// NewConversation resets the session to an unsaved conversation.
func (o *Orchestrator) NewConversation() {
	o.store.ResetConversation()
}

// =============================================================================
// TITLES
// =============================================================================

// generateTitle derives a title for a just-created conversation from its
// opening user message and folds it into the conversation list. Failures
// are logged and dropped.
func (o *Orchestrator) generateTitle(ctx context.Context, conversationID string, firstMessage model.Message) {
	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	title, err := o.repo.CreateTitle(ctx, conversationID, []model.Message{firstMessage})
	if err != nil {
		o.logger.WarnContext(ctx, "title generation failed", "conversation", conversationID, "error", err)
		return
	}
	if title == "" {
		return
	}

	convs := o.store.Conversations()
	for i := range convs {
		if convs[i].ResourceID == conversationID {
			convs[i].Title = title
			o.store.SetConversations(convs)
			return
		}
	}
}
