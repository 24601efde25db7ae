// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/jeranaias/strands-chat/internal/model"
)

// =============================================================================
// KEYWORD SELECTOR
// =============================================================================

// KeywordSelector picks tool modes from prompt text with keyword matching.
// It is the offline fallback when the backend selector is unreachable, and
// deliberately favors precision over recall: an unmatched prompt runs with
// no tools at all.
type KeywordSelector struct {
	// Available restricts selection to these tool modes. Empty means all
	// known tools are available.
	Available []string
}

// toolKeywords maps each tool mode to the phrases that suggest it.
var toolKeywords = map[string][]string{
	model.ToolWebSearch: {
		"search the web", "search for", "look up", "latest", "news",
		"current", "today", "recent", "as of",
	},
	model.ToolImageGeneration: {
		"draw", "generate an image", "generate a picture", "create an image",
		"make an image", "illustration", "sketch",
	},
	model.ToolAWSDocumentation: {
		"aws", "amazon web services", "s3", "dynamodb", "lambda", "ec2",
		"cloudformation", "bedrock", "iam policy",
	},
	model.ToolCodeInterpreter: {
		"run this code", "execute", "calculate", "compute", "plot",
		"csv", "dataset", "analyze the data",
	},
	model.ToolWebBrowser: {
		"open the page", "this url", "http://", "https://", "browse",
		"read the page",
	},
	model.ToolReasoning: {
		"step by step", "think through", "prove", "trade-off", "pros and cons",
		"compare", "why does", "explain carefully",
	},
}

// SelectTools implements ToolSelector. It never fails.
func (s *KeywordSelector) SelectTools(_ context.Context, prompt string) ([]string, error) {
	p := strings.ToLower(prompt)

	var tools []string
	for _, tool := range model.AllTools {
		if !s.available(tool) {
			continue
		}
		for _, kw := range toolKeywords[tool] {
			if strings.Contains(p, kw) {
				tools = append(tools, tool)
				break
			}
		}
	}
	return tools, nil
}

func (s *KeywordSelector) available(tool string) bool {
	if len(s.Available) == 0 {
		return true
	}
	for _, t := range s.Available {
		if t == tool {
			return true
		}
	}
	return false
}

// =============================================================================
// FALLBACK SELECTOR
// =============================================================================

// FallbackSelector tries a primary selector and falls back to a secondary
// one when the primary fails.
type FallbackSelector struct {
	Primary   ToolSelector
	Secondary ToolSelector
}

// SelectTools implements ToolSelector.
func (s *FallbackSelector) SelectTools(ctx context.Context, prompt string) ([]string, error) {
	tools, err := s.Primary.SelectTools(ctx, prompt)
	if err == nil {
		return tools, nil
	}
	if s.Secondary == nil {
		return nil, err
	}
	return s.Secondary.SelectTools(ctx, prompt)
}
