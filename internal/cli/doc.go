// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the strands-chat command line interface.
//
// The entry point is Parse plus one Handle function per command. The chat
// command runs an interactive line-based session; list, gallery, and config
// are one-shot commands.
package cli
