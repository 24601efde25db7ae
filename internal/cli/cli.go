// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command identifies a top-level CLI command.
type Command string

const (
	CmdChat    Command = "chat"
	CmdList    Command = "list"
	CmdGallery Command = "gallery"
	CmdConfig  Command = "config"
	CmdVersion Command = "version"
	CmdHelp    Command = "help"
)

// Parse splits os.Args into a command and its arguments. No arguments means
// an interactive chat session.
func Parse() (Command, []string) {
	args := os.Args[1:]
	if len(args) == 0 {
		return CmdChat, nil
	}

	switch args[0] {
	case "chat":
		return CmdChat, args[1:]
	case "list", "ls":
		return CmdList, args[1:]
	case "gallery":
		return CmdGallery, args[1:]
	case "config":
		return CmdConfig, args[1:]
	case "version", "--version", "-v":
		return CmdVersion, nil
	case "help", "--help", "-h":
		return CmdHelp, nil
	default:
		// Unknown word: treat the whole line as a one-shot chat message.
		return CmdChat, args
	}
}

// HandleVersion prints version information.
func HandleVersion() {
	fmt.Printf("strands-chat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}

// PrintUsage prints top-level usage help.
func PrintUsage() {
	fmt.Print(`strands-chat - streaming chat client

Usage:
  strands-chat              Interactive chat session
  strands-chat <message>    One-shot message, streams the reply and exits
  strands-chat list         List conversations (--all for every page)
  strands-chat gallery      List generated images
  strands-chat config       Show resolved configuration
  strands-chat version      Print version

Configuration is read from ~/.strands-chat/config.toml and STRANDS_CHAT_*
environment variables. STRANDS_CHAT_TOKEN must be set.
`)
}
