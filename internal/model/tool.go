// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// TOOL IDENTIFIERS
// =============================================================================

// Tool mode identifiers as they appear on the wire and in message metadata.
const (
	ToolReasoning        = "reasoning"
	ToolImageGeneration  = "imageGeneration"
	ToolWebSearch        = "webSearch"
	ToolAWSDocumentation = "awsDocumentation"
	ToolCodeInterpreter  = "codeInterpreter"
	ToolWebBrowser       = "webBrowser"
)

// AllTools lists every known tool mode in display order.
var AllTools = []string{
	ToolReasoning,
	ToolImageGeneration,
	ToolWebSearch,
	ToolAWSDocumentation,
	ToolCodeInterpreter,
	ToolWebBrowser,
}

// ValidTool reports whether name is a known tool mode.
func ValidTool(name string) bool {
	for _, t := range AllTools {
		if t == name {
			return true
		}
	}
	return false
}
