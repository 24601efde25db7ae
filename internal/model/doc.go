// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the wire-level domain types shared by the API client,
// the session store, and the chat engine.
//
// # Key Types
//
//   - Conversation: A chat thread as stored by the backend
//   - Message: Single message with role, content blocks, and optional tools
//   - ContentBlock: Text or file-reference content within a message
//   - Model: An invokable LLM (identifier, region, display name)
//   - Parameter: Backend-advertised deployment parameters
//   - StreamChunk: A single decoded unit of streamed assistant output
//
// Messages exist in two lifecycle forms. A pending message carries only a
// client-generated resource identifier; a committed message additionally
// carries the table-assigned fields the backend fills in on persistence.
package model
