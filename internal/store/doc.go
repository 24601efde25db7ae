// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the mutable session state for a chat client: the
// in-memory message list, draft input, attached files, enabled tool modes,
// and the selected model, each keyed by conversation ID. Accessors operate
// on the active conversation; switching conversations never carries state
// from one ID to another, with two deliberate exceptions: the unsaved
// session's draft moves into the conversation created from it, and the
// model selection seeds newly opened conversations.
//
// The Store is safe for concurrent use. Readers always see a consistent
// snapshot; message accessors return deep copies so callers can never
// mutate shared state through a returned slice.
//
// Draft-related fields (user input, attached files, tool modes, model)
// survive restarts through an optional Persister, one snapshot entry per
// conversation. Conversation and message state is server-owned and is
// never persisted locally.
package store
