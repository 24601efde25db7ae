// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates strands-chat configuration.
//
// Configuration comes from three layers, later winning over earlier:
//
//  1. Built-in defaults
//  2. ~/.strands-chat/config.toml
//  3. STRANDS_CHAT_* environment variables
//
// Load fails fast on an invalid result; every problem is reported at once
// via ValidateErrors rather than one at a time.
package config
