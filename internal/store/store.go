// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"

	"github.com/jeranaias/strands-chat/internal/model"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// NewConversationID marks a conversation that has not yet been created on
// the server. Submitting a turn against it allocates a real ID first.
const NewConversationID = "NEW"

// =============================================================================
// SESSION STATE
// =============================================================================

// sessionState holds everything scoped to one conversation. Each
// conversation ID owns its own instance; nothing here is shared across
// conversations.
type sessionState struct {
	messages  []model.Message
	streaming bool

	// Draft fields, persisted across restarts.
	userInput  string
	inputFiles []model.ContentBlock
	tools      []string
	model      model.Model
}

// =============================================================================
// STORE
// =============================================================================

// Store is the session state container, keyed by conversation ID with one
// active conversation at a time. Accessor methods read and write the active
// conversation's state; switching conversations never carries drafts,
// messages, or flags from one ID to another. All access goes through
// accessor methods; the zero value is not usable, construct with New.
type Store struct {
	mu sync.Mutex

	active string
	states map[string]*sessionState

	// Conversation list (server-owned, shared across conversations)
	conversations []model.Conversation

	// Persistence
	persister      Persister
	onPersistError func(error)

	// Change notification
	onChange func()
}

// Option configures a Store.
type Option func(*Store)

// WithPersister attaches a persister for draft state. Draft setters write
// through it; persistence failures are reported via the error callback and
// never block a setter.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithPersistErrorHandler sets the callback invoked when a write-through
// persist fails.
func WithPersistErrorHandler(fn func(error)) Option {
	return func(s *Store) { s.onPersistError = fn }
}

// WithChangeHandler sets a callback invoked after every state mutation.
// The callback runs outside the store lock.
func WithChangeHandler(fn func()) Option {
	return func(s *Store) { s.onChange = fn }
}

// New creates a Store for a fresh session. If a persister is attached and
// holds a previous snapshot, the per-conversation draft fields are restored
// from it.
func New(opts ...Option) *Store {
	s := &Store{
		active: NewConversationID,
		states: make(map[string]*sessionState),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.persister != nil {
		if snap, err := s.persister.Load(); err == nil && snap != nil {
			for id, sess := range snap.Sessions {
				s.states[id] = &sessionState{
					userInput:  sess.UserInput,
					inputFiles: model.CloneBlocks(sess.InputFiles),
					tools:      append([]string(nil), sess.Tools...),
					model:      sess.Model,
				}
			}
		}
	}
	return s
}

// state returns the active conversation's state, creating a default empty
// one on first access. Caller must hold s.mu.
func (s *Store) state() *sessionState {
	st, ok := s.states[s.active]
	if !ok {
		st = &sessionState{}
		s.states[s.active] = st
	}
	return st
}

// =============================================================================
// CONVERSATION STATE
// =============================================================================

// ConversationID returns the active conversation ID, or NewConversationID
// when no server conversation exists yet.
func (s *Store) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetConversationID switches the active conversation. A conversation seen
// for the first time starts with default empty state, except that switching
// away from the unsaved sentinel to a brand-new ID moves the unsaved draft
// with it: that is the create-on-first-turn path, and the draft belongs to
// the conversation just created. The model selection carries over so a
// freshly opened conversation is immediately usable.
func (s *Store) SetConversationID(id string) {
	s.mu.Lock()
	prev := s.state()
	if _, ok := s.states[id]; !ok {
		if s.active == NewConversationID {
			s.states[id] = prev
			delete(s.states, NewConversationID)
		} else {
			s.states[id] = &sessionState{model: prev.model}
		}
	}
	s.active = id
	s.mu.Unlock()
	s.persist()
	s.notify()
}

// ResetConversation switches back to the unsaved sentinel with an empty
// transcript. The sentinel keeps its own draft; only the model selection is
// carried over when it has none.
func (s *Store) ResetConversation() {
	s.mu.Lock()
	prev := s.state()
	s.active = NewConversationID
	st := s.state()
	st.messages = nil
	st.streaming = false
	if st.model.IsZero() {
		st.model = prev.model
	}
	s.mu.Unlock()
	s.persist()
	s.notify()
}

// Conversations returns a copy of the conversation list.
func (s *Store) Conversations() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Conversation(nil), s.conversations...)
}

// SetConversations replaces the conversation list.
func (s *Store) SetConversations(convs []model.Conversation) {
	s.mu.Lock()
	s.conversations = append([]model.Conversation(nil), convs...)
	s.mu.Unlock()
	s.notify()
}

// AppendConversations adds a page of conversations to the end of the list.
func (s *Store) AppendConversations(convs []model.Conversation) {
	s.mu.Lock()
	s.conversations = append(s.conversations, convs...)
	s.mu.Unlock()
	s.notify()
}

// Streaming reports whether a turn is in flight on the active conversation.
func (s *Store) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state().streaming
}

// SetStreaming marks a turn in flight or finished.
func (s *Store) SetStreaming(v bool) {
	s.mu.Lock()
	s.state().streaming = v
	s.mu.Unlock()
	s.notify()
}

// =============================================================================
// MESSAGES
// =============================================================================

// Messages returns a deep copy of the active conversation's message list.
func (s *Store) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneMessages(s.state().messages)
}

// MessageCount returns the number of in-memory messages.
func (s *Store) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state().messages)
}

// SetMessages replaces the active conversation's message list.
func (s *Store) SetMessages(msgs []model.Message) {
	s.mu.Lock()
	s.state().messages = model.CloneMessages(msgs)
	s.mu.Unlock()
	s.notify()
}

// AppendMessages adds messages to the end of the list.
func (s *Store) AppendMessages(msgs ...model.Message) {
	s.mu.Lock()
	st := s.state()
	st.messages = append(st.messages, model.CloneMessages(msgs)...)
	s.mu.Unlock()
	s.notify()
}

// AppendToLastMessage appends text to the first content block of the most
// recent message. It is a no-op on an empty list.
func (s *Store) AppendToLastMessage(text string) {
	s.mu.Lock()
	st := s.state()
	if n := len(st.messages); n > 0 {
		st.messages[n-1].AppendText(text)
	}
	s.mu.Unlock()
	s.notify()
}

// ReplaceMessage swaps the message with the given resource ID for the
// provided one. It returns false if no message matches.
func (s *Store) ReplaceMessage(resourceID string, msg model.Message) bool {
	s.mu.Lock()
	st := s.state()
	replaced := false
	for i := range st.messages {
		if st.messages[i].ResourceID == resourceID {
			st.messages[i] = msg.Clone()
			replaced = true
			break
		}
	}
	s.mu.Unlock()
	if replaced {
		s.notify()
	}
	return replaced
}

// MessageByResourceID returns a copy of the message with the given resource
// ID, and whether it exists.
func (s *Store) MessageByResourceID(resourceID string) (model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state()
	for i := range st.messages {
		if st.messages[i].ResourceID == resourceID {
			return st.messages[i].Clone(), true
		}
	}
	return model.Message{}, false
}

// =============================================================================
// DRAFT STATE
// =============================================================================

// UserInput returns the active conversation's draft text.
func (s *Store) UserInput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state().userInput
}

// SetUserInput updates the draft text and writes through to the persister.
func (s *Store) SetUserInput(text string) {
	s.mu.Lock()
	s.state().userInput = text
	s.mu.Unlock()
	s.persist()
	s.notify()
}

// InputFiles returns a copy of the attached file blocks.
func (s *Store) InputFiles() []model.ContentBlock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneBlocks(s.state().inputFiles)
}

// SetInputFiles replaces the attached file blocks.
func (s *Store) SetInputFiles(files []model.ContentBlock) {
	s.mu.Lock()
	s.state().inputFiles = model.CloneBlocks(files)
	s.mu.Unlock()
	s.persist()
	s.notify()
}

// Tools returns a copy of the enabled tool modes.
func (s *Store) Tools() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.state().tools...)
}

// SetTools replaces the enabled tool modes.
func (s *Store) SetTools(tools []string) {
	s.mu.Lock()
	s.state().tools = append([]string(nil), tools...)
	s.mu.Unlock()
	s.persist()
	s.notify()
}

// Model returns the selected model.
func (s *Store) Model() model.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state().model
}

// SetModel updates the selected model.
func (s *Store) SetModel(m model.Model) {
	s.mu.Lock()
	s.state().model = m
	s.mu.Unlock()
	s.persist()
	s.notify()
}

// ClearDraft empties the draft text and attached files after a turn is
// submitted. Tool modes and model selection are kept.
func (s *Store) ClearDraft() {
	s.mu.Lock()
	st := s.state()
	st.userInput = ""
	st.inputFiles = nil
	s.mu.Unlock()
	s.persist()
	s.notify()
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Flush writes the current draft state through the persister. It is a no-op
// without one.
func (s *Store) Flush() error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Save(s.snapshot())
}

func (s *Store) snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &Snapshot{Sessions: make(map[string]SessionSnapshot, len(s.states))}
	for id, st := range s.states {
		if st.userInput == "" && len(st.inputFiles) == 0 && len(st.tools) == 0 && st.model.IsZero() {
			continue
		}
		snap.Sessions[id] = SessionSnapshot{
			UserInput:  st.userInput,
			InputFiles: model.CloneBlocks(st.inputFiles),
			Tools:      append([]string(nil), st.tools...),
			Model:      st.model,
		}
	}
	return snap
}

func (s *Store) persist() {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(s.snapshot()); err != nil && s.onPersistError != nil {
		s.onPersistError(err)
	}
}

func (s *Store) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}
