// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jeranaias/strands-chat/internal/model"
)

func TestNewStoreStartsUnsaved(t *testing.T) {
	s := New()
	if s.ConversationID() != NewConversationID {
		t.Errorf("got %q, want %q", s.ConversationID(), NewConversationID)
	}
	if len(s.Messages()) != 0 {
		t.Errorf("expected empty message list")
	}
}

func TestResetConversation(t *testing.T) {
	s := New()
	s.SetConversationID("conv-1")
	s.AppendMessages(model.NewUserMessage("hi", nil, nil))

	s.ResetConversation()

	if s.ConversationID() != NewConversationID {
		t.Errorf("got %q, want %q", s.ConversationID(), NewConversationID)
	}
	if s.MessageCount() != 0 {
		t.Errorf("got %d messages, want 0", s.MessageCount())
	}
}

func TestMessagesReturnsDeepCopy(t *testing.T) {
	s := New()
	s.AppendMessages(model.NewUserMessage("original", nil, nil))

	msgs := s.Messages()
	msgs[0].AppendText(" mutated")

	if got := s.Messages()[0].Text(); got != "original" {
		t.Errorf("store message mutated through copy: %q", got)
	}
}

func TestAppendToLastMessage(t *testing.T) {
	s := New()
	s.AppendMessages(model.NewUserMessage("q", nil, nil), model.NewAssistantMessage())

	s.AppendToLastMessage("Here")
	s.AppendToLastMessage(" you go")

	msgs := s.Messages()
	if got := msgs[1].Text(); got != "Here you go" {
		t.Errorf("got %q, want %q", got, "Here you go")
	}
	if got := msgs[0].Text(); got != "q" {
		t.Errorf("user message changed: %q", got)
	}
}

func TestAppendToLastMessageEmptyList(t *testing.T) {
	s := New()
	s.AppendToLastMessage("ignored")
	if s.MessageCount() != 0 {
		t.Errorf("append on empty list created a message")
	}
}

func TestReplaceMessage(t *testing.T) {
	s := New()
	pending := model.NewAssistantMessage()
	s.AppendMessages(model.NewUserMessage("q", nil, nil), pending)

	committed := pending.Clone()
	committed.QueryID = "qid-1"
	committed.Content = []model.ContentBlock{model.TextBlock("answer")}

	if !s.ReplaceMessage(pending.ResourceID, committed) {
		t.Fatal("ReplaceMessage returned false")
	}

	got, ok := s.MessageByResourceID(pending.ResourceID)
	if !ok {
		t.Fatal("message lost after replace")
	}
	if got.QueryID != "qid-1" || got.Text() != "answer" {
		t.Errorf("got %+v", got)
	}

	if s.ReplaceMessage("no-such-id", committed) {
		t.Error("ReplaceMessage matched a missing resource ID")
	}
}

func TestChangeHandlerFires(t *testing.T) {
	var calls int
	s := New(WithChangeHandler(func() { calls++ }))

	s.SetUserInput("draft")
	s.SetStreaming(true)
	s.AppendMessages(model.NewUserMessage("q", nil, nil))

	if calls != 3 {
		t.Errorf("got %d change notifications, want 3", calls)
	}
}

func TestDraftPersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	p := NewFilePersister(path)

	s := New(WithPersister(p))
	s.SetUserInput("half-typed question")
	s.SetTools([]string{"webSearch", "reasoning"})
	s.SetModel(model.Model{ID: "m1", Region: "us-east-1", DisplayName: "Model One"})

	restored := New(WithPersister(p))
	if got := restored.UserInput(); got != "half-typed question" {
		t.Errorf("user input: got %q", got)
	}
	if tools := restored.Tools(); len(tools) != 2 || tools[0] != "webSearch" {
		t.Errorf("tools: got %v", tools)
	}
	if m := restored.Model(); m.ID != "m1" {
		t.Errorf("model: got %+v", m)
	}
}

func TestPersistRestoresEveryConversation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	p := NewFilePersister(path)

	s := New(WithPersister(p))
	s.SetConversationID("conv-1")
	s.SetUserInput("draft one")
	s.SetConversationID("conv-2")
	s.SetUserInput("draft two")

	restored := New(WithPersister(p))
	restored.SetConversationID("conv-1")
	if got := restored.UserInput(); got != "draft one" {
		t.Errorf("conv-1: got %q", got)
	}
	restored.SetConversationID("conv-2")
	if got := restored.UserInput(); got != "draft two" {
		t.Errorf("conv-2: got %q", got)
	}
}

func TestClearDraftKeepsToolsAndModel(t *testing.T) {
	s := New()
	s.SetUserInput("text")
	s.SetInputFiles([]model.ContentBlock{model.FileBlock("image", "png", "a.png", "k", "a.png")})
	s.SetTools([]string{"reasoning"})
	s.SetModel(model.Model{ID: "m1"})

	s.ClearDraft()

	if s.UserInput() != "" || len(s.InputFiles()) != 0 {
		t.Error("draft not cleared")
	}
	if len(s.Tools()) != 1 || s.Model().ID != "m1" {
		t.Error("tools or model cleared with draft")
	}
}

func TestNoCrossConversationLeakage(t *testing.T) {
	s := New()
	s.SetConversationID("conv-1")
	s.SetUserInput("draft for one")
	s.SetTools([]string{"reasoning"})
	s.AppendMessages(model.NewUserMessage("hi", nil, nil))

	s.SetConversationID("conv-2")

	if got := s.UserInput(); got != "" {
		t.Errorf("draft leaked into conv-2: %q", got)
	}
	if len(s.Tools()) != 0 {
		t.Errorf("tools leaked into conv-2: %v", s.Tools())
	}
	if s.MessageCount() != 0 {
		t.Errorf("messages leaked into conv-2: %d", s.MessageCount())
	}

	s.SetConversationID("conv-1")
	if got := s.UserInput(); got != "draft for one" {
		t.Errorf("conv-1 draft lost: %q", got)
	}
	if s.MessageCount() != 1 {
		t.Errorf("conv-1 messages lost: %d", s.MessageCount())
	}
}

func TestModelCarriesToNewlyOpenedConversation(t *testing.T) {
	s := New()
	s.SetConversationID("conv-1")
	s.SetModel(model.Model{ID: "m1", Region: "us-east-1"})

	s.SetConversationID("conv-2")
	if s.Model().ID != "m1" {
		t.Errorf("model not carried: %+v", s.Model())
	}
}

func TestUnsavedDraftMovesWithCreatedConversation(t *testing.T) {
	s := New()
	s.SetUserInput("first question")
	s.SetTools([]string{"webSearch"})
	s.SetModel(model.Model{ID: "m1"})

	// Create-on-first-turn: the unsaved session becomes conv-1.
	s.SetConversationID("conv-1")

	if got := s.UserInput(); got != "first question" {
		t.Errorf("draft did not move: %q", got)
	}
	if tools := s.Tools(); len(tools) != 1 || tools[0] != "webSearch" {
		t.Errorf("tools did not move: %v", tools)
	}

	s.ResetConversation()
	if got := s.UserInput(); got != "" {
		t.Errorf("new unsaved session inherited old draft: %q", got)
	}
	if s.Model().ID != "m1" {
		t.Errorf("new unsaved session lost model: %+v", s.Model())
	}
}

func TestFilePersisterMissingFile(t *testing.T) {
	p := NewFilePersister(filepath.Join(t.TempDir(), "absent.json"))
	snap, err := p.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if snap != nil {
		t.Errorf("got %+v, want nil", snap)
	}
}

func TestPersistErrorHandler(t *testing.T) {
	var got error
	s := New(
		WithPersister(failingPersister{}),
		WithPersistErrorHandler(func(err error) { got = err }),
	)

	s.SetUserInput("x")
	if got == nil {
		t.Error("persist error not reported")
	}
}

type failingPersister struct{}

func (failingPersister) Save(*Snapshot) error     { return errors.New("save failed") }
func (failingPersister) Load() (*Snapshot, error) { return nil, nil }
