// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the chat backend.
//
// All endpoints share a bearer-token scheme: a TokenProvider supplies the
// token per request, so expiring credentials refresh transparently. Request
// and streaming traffic use separate pooled HTTP clients; the streaming
// client carries no timeout and is bounded only by the request context.
//
// List endpoints are cursor-paginated. Page carries one page plus the opaque
// cursor for the next; Paginator wraps the fetch-next loop.
package api
