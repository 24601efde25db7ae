// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat coordinates a streamed conversation turn end to end.
//
// The Orchestrator owns the turn lifecycle: it appends the pending user and
// assistant messages to the session store, opens the response stream, folds
// decoded chunks into the assistant message as they arrive, and reconciles
// the in-memory transcript against the server's committed copy once the
// stream closes. Reconciliation always runs, even when opening the stream
// failed, and its own failures never surface to the caller.
//
// Tool selection (which tool modes a prompt should run with) is behind the
// ToolSelector interface. The backend endpoint is the primary implementation;
// KeywordSelector is the offline fallback. Selector failures degrade to an
// empty tool set rather than blocking the turn.
package chat
