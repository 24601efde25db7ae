// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeranaias/strands-chat/internal/model"
	"github.com/jeranaias/strands-chat/internal/util"
)

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is the subset of session state that survives restarts, keyed by
// conversation ID. Messages and in-flight flags are never persisted.
type Snapshot struct {
	Sessions map[string]SessionSnapshot `json:"sessions"`
}

// SessionSnapshot holds one conversation's persistable draft fields.
type SessionSnapshot struct {
	UserInput  string               `json:"userInput,omitempty"`
	InputFiles []model.ContentBlock `json:"inputFiles,omitempty"`
	Tools      []string             `json:"tools,omitempty"`
	Model      model.Model          `json:"model"`
}

// Persister saves and restores draft snapshots.
type Persister interface {
	// Save writes the snapshot. Implementations must be safe to call from
	// multiple goroutines.
	Save(*Snapshot) error

	// Load returns the last saved snapshot, or (nil, nil) when none exists.
	Load() (*Snapshot, error)
}

// =============================================================================
// FILE PERSISTER
// =============================================================================

// FilePersister stores snapshots as a JSON file, written atomically so a
// crash mid-save never corrupts the previous snapshot.
type FilePersister struct {
	path string
}

// NewFilePersister creates a persister backed by the given file path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Save writes the snapshot to disk.
func (p *FilePersister) Save(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session snapshot: %w", err)
	}
	if err := util.AtomicWriteFile(p.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session snapshot: %w", err)
	}
	return nil
}

// Load reads the last saved snapshot. A missing file is not an error.
func (p *FilePersister) Load() (*Snapshot, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode session snapshot: %w", err)
	}
	return &snap, nil
}
