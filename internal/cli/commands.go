// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jeranaias/strands-chat/internal/api"
	"github.com/jeranaias/strands-chat/internal/config"
	"github.com/jeranaias/strands-chat/internal/model"
	"github.com/jeranaias/strands-chat/internal/util"
)

// buildClient creates the backend client from config.
func buildClient(cfg *config.Config, logger *slog.Logger) *api.Client {
	opts := []api.Option{api.WithLogger(logger)}
	if cfg.API.RateLimit > 0 {
		opts = append(opts, api.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst))
	}
	return api.NewClient(cfg.API.BaseURL, api.StaticToken(cfg.API.Token), opts...)
}

// HandleList lists the caller's conversations, one page at a time unless
// --all is given.
func HandleList(args []string) error {
	parser := NewArgParser(args)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client := buildClient(cfg, newLogger(cfg))
	ctx := context.Background()

	p := api.NewPaginator(func(ctx context.Context, cursor string) (api.Page[model.Conversation], error) {
		return client.ListChats(ctx, cursor)
	})

	n := 0
	for p.HasMore() {
		convs, err := p.Next(ctx)
		if err != nil {
			return err
		}
		for _, conv := range convs {
			n++
			fmt.Printf("%3d  %-50s %s\n", n, util.TruncateRunes(conv.Title, 50), conv.ResourceID)
		}
		if !parser.BoolFlag("all") {
			break
		}
	}

	if n == 0 {
		fmt.Println("No conversations.")
	} else if p.HasMore() {
		fmt.Println("  … more available (use --all)")
	}
	return nil
}

// HandleGallery lists generated images.
func HandleGallery(args []string) error {
	parser := NewArgParser(args)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client := buildClient(cfg, newLogger(cfg))
	ctx := context.Background()

	p := api.NewPaginator(func(ctx context.Context, cursor string) (api.Page[model.GalleryItem], error) {
		return client.ListGallery(ctx, cursor)
	})

	n := 0
	for p.HasMore() {
		items, err := p.Next(ctx)
		if err != nil {
			return err
		}
		for _, item := range items {
			n++
			fmt.Printf("%3d  %-40s s3://%s/%s\n", n, item.Filename, item.Bucket, item.Key)
		}
		if !parser.BoolFlag("all") {
			break
		}
	}

	if n == 0 {
		fmt.Println("No images.")
	}
	return nil
}

// HandleConfig prints the resolved configuration with the token redacted.
func HandleConfig(args []string) error {
	parser := NewArgParser(args)

	if parser.Subcommand() == "path" {
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	token := "[not set]"
	if cfg.API.Token != "" {
		token = fmt.Sprintf("[set, length=%d]", len(cfg.API.Token))
	}

	sessionPath, err := cfg.SessionFilePath()
	if err != nil {
		return err
	}

	fmt.Printf("api.base_url        = %s\n", cfg.API.BaseURL)
	fmt.Printf("api.token           = %s\n", token)
	fmt.Printf("api.rate_limit      = %g\n", cfg.API.RateLimit)
	fmt.Printf("chat.default_model  = %s\n", cfg.Chat.DefaultModel)
	fmt.Printf("chat.tool_selection = %s\n", cfg.Chat.ToolSelection)
	fmt.Printf("session.file        = %s\n", sessionPath)
	fmt.Printf("log.level           = %s\n", cfg.Log.Level)
	fmt.Printf("log.format          = %s\n", cfg.Log.Format)
	return nil
}
