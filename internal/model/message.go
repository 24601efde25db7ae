// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// =============================================================================
// CONTENT BLOCKS
// =============================================================================

// FileType categorizes a file-reference content block.
type FileType string

const (
	FileTypeImage    FileType = "image"
	FileTypeVideo    FileType = "video"
	FileTypeDocument FileType = "document"
)

// ContentBlock is one unit of message content: either a text block or a
// file-reference block. Text is non-nil for text blocks (a pending assistant
// message starts with an empty, but present, text field); the remaining
// fields are set for file references.
type ContentBlock struct {
	Text *string `json:"text,omitempty"`

	Type        FileType `json:"type,omitempty"`
	Extension   string   `json:"extension,omitempty"`
	Name        string   `json:"name,omitempty"`
	S3Key       string   `json:"s3Key,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
}

// TextBlock creates a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Text: &text}
}

// FileBlock creates a file-reference content block.
func FileBlock(ft FileType, extension, name, s3Key, displayName string) ContentBlock {
	return ContentBlock{
		Type:        ft,
		Extension:   extension,
		Name:        name,
		S3Key:       s3Key,
		DisplayName: displayName,
	}
}

// IsText reports whether the block is a text block.
func (b ContentBlock) IsText() bool {
	return b.Text != nil
}

// AppendText appends to a text block's content. No-op for file blocks.
func (b *ContentBlock) AppendText(s string) {
	if b.Text == nil {
		return
	}
	joined := *b.Text + s
	b.Text = &joined
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// A pending message has only Role, Content, optional Tools, and a
// client-generated ResourceID. Once the backend persists it, the
// table-assigned fields are populated and the content is immutable.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`

	// Tools lists the tool names used to produce the message, omitted when
	// none were selected.
	Tools []string `json:"tools,omitempty"`

	// ResourceID is unique within the conversation, assigned client-side.
	ResourceID string `json:"resourceId,omitempty"`

	// Table-assigned fields, zero until the message is committed.
	QueryID  string `json:"queryId,omitempty"`
	OrderBy  string `json:"orderBy,omitempty"`
	DataType string `json:"dataType,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

// NewUserMessage creates a pending user message with a fresh resource ID.
// The text block always comes first, followed by any file references.
func NewUserMessage(text string, files []ContentBlock, tools []string) Message {
	content := make([]ContentBlock, 0, len(files)+1)
	content = append(content, TextBlock(text))
	content = append(content, files...)

	m := Message{
		Role:       RoleUser,
		Content:    content,
		ResourceID: uuid.NewString(),
	}
	if len(tools) > 0 {
		m.Tools = tools
	}
	return m
}

// NewAssistantMessage creates a pending assistant message with an empty text
// block, ready for streamed content to be folded in.
func NewAssistantMessage() Message {
	return Message{
		Role:       RoleAssistant,
		Content:    []ContentBlock{TextBlock("")},
		ResourceID: uuid.NewString(),
	}
}

// AppendText appends streamed text to the message's first text block. It is
// a no-op when the message has no text block.
func (m *Message) AppendText(s string) {
	for i := range m.Content {
		if m.Content[i].IsText() {
			m.Content[i].AppendText(s)
			return
		}
	}
}

// Committed reports whether the message carries table-assigned fields.
func (m Message) Committed() bool {
	return m.QueryID != ""
}

// Text returns the concatenated text content of the message.
func (m Message) Text() string {
	var sb strings.Builder
	for _, b := range m.Content {
		if b.Text != nil {
			sb.WriteString(*b.Text)
		}
	}
	return sb.String()
}

// Clone returns a deep copy of the message. Content and tool slices are
// copied so mutating the clone never aliases the original.
func (m Message) Clone() Message {
	out := m
	out.Content = make([]ContentBlock, len(m.Content))
	for i, b := range m.Content {
		if b.Text != nil {
			text := *b.Text
			b.Text = &text
		}
		out.Content[i] = b
	}
	if m.Tools != nil {
		out.Tools = make([]string, len(m.Tools))
		copy(out.Tools, m.Tools)
	}
	return out
}

// CloneMessages deep-copies a message list.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// CloneBlocks deep-copies a content block list.
func CloneBlocks(blocks []ContentBlock) []ContentBlock {
	if blocks == nil {
		return nil
	}
	out := make([]ContentBlock, len(blocks))
	for i, b := range blocks {
		if b.Text != nil {
			text := *b.Text
			b.Text = &text
		}
		out[i] = b
	}
	return out
}

// =============================================================================
// STREAM CHUNK
// =============================================================================

// StreamErrorText is the text of the locally synthesized sentinel chunk
// emitted when the stream payload cannot be decoded.
const StreamErrorText = "ERROR"

// StreamChunk is a single decoded unit of streamed assistant output.
type StreamChunk struct {
	Text string `json:"text"`

	// Err is set on the terminal sentinel chunk when decoding failed.
	Err error `json:"-"`
}
