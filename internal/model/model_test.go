// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"
)

// =============================================================================
// CONTENT BLOCK TESTS
// =============================================================================

func TestTextBlockMarshal(t *testing.T) {
	data, err := json.Marshal(TextBlock(""))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	// The empty text field must survive marshaling: a pending assistant
	// message starts with {"text": ""}, not with an empty object.
	if string(data) != `{"text":""}` {
		t.Errorf("Marshal = %s, want {\"text\":\"\"}", data)
	}
}

func TestFileBlockMarshal(t *testing.T) {
	b := FileBlock(FileTypeImage, "png", "cat", "user/cat.png", "cat.png")
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if _, hasText := got["text"]; hasText {
		t.Error("file block should not carry a text field")
	}
	if got["s3Key"] != "user/cat.png" || got["type"] != "image" {
		t.Errorf("unexpected file block fields: %v", got)
	}
}

func TestAppendText(t *testing.T) {
	b := TextBlock("Here")
	b.AppendText(" you")
	b.AppendText(" go")
	if *b.Text != "Here you go" {
		t.Errorf("AppendText result = %q, want %q", *b.Text, "Here you go")
	}

	f := FileBlock(FileTypeDocument, "pdf", "doc", "k", "doc.pdf")
	f.AppendText("ignored")
	if f.Text != nil {
		t.Error("AppendText on a file block should be a no-op")
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage(t *testing.T) {
	files := []ContentBlock{FileBlock(FileTypeImage, "png", "a", "k", "a.png")}
	m := NewUserMessage("draw a cat", files, []string{"imageGeneration"})

	if m.Role != RoleUser {
		t.Errorf("Role = %q, want user", m.Role)
	}
	if len(m.Content) != 2 {
		t.Fatalf("Content length = %d, want 2", len(m.Content))
	}
	if !m.Content[0].IsText() || *m.Content[0].Text != "draw a cat" {
		t.Error("first content block should be the text block")
	}
	if m.ResourceID == "" {
		t.Error("ResourceID should be generated")
	}
	if m.Committed() {
		t.Error("a fresh message must not be committed")
	}
}

func TestNewUserMessageOmitsEmptyTools(t *testing.T) {
	m := NewUserMessage("hi", nil, nil)
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if _, ok := got["tools"]; ok {
		t.Error("tools should be omitted when no tools were selected")
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	m := NewAssistantMessage()
	c := m.Clone()
	c.Content[0].AppendText("mutated")

	if m.Text() != "" {
		t.Errorf("original mutated through clone: %q", m.Text())
	}
}

func TestClonePreservesToolsNilness(t *testing.T) {
	// nil means the field was absent; an empty list is a committed value.
	// Cloning must not collapse one into the other.
	withEmpty := Message{Role: RoleAssistant, Tools: []string{}}
	if withEmpty.Clone().Tools == nil {
		t.Error("explicitly empty tools became nil")
	}

	withNil := Message{Role: RoleAssistant}
	if withNil.Clone().Tools != nil {
		t.Error("absent tools became non-nil")
	}
}

// =============================================================================
// PARAMETER TESTS
// =============================================================================

func TestParameterValidModel(t *testing.T) {
	p := Parameter{Models: []Model{
		{ID: "model-a", Region: "us-east-1", DisplayName: "A"},
		{ID: "model-b", Region: "us-west-2", DisplayName: "B"},
	}}

	if !p.ValidModel(Model{ID: "model-b"}) {
		t.Error("model-b should be valid")
	}
	if p.ValidModel(Model{ID: "model-c"}) {
		t.Error("model-c should not be valid")
	}

	def, ok := p.DefaultModel()
	if !ok || def.ID != "model-a" {
		t.Errorf("DefaultModel = %v, %v; want model-a", def, ok)
	}

	var empty Parameter
	if _, ok := empty.DefaultModel(); ok {
		t.Error("DefaultModel on empty parameter should report false")
	}
}
