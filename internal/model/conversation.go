// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a chat thread as stored by the backend. The title is
// mutable: it is derived asynchronously after the first turn and arrives on a
// later listing.
type Conversation struct {
	Title string `json:"title"`

	// Table-assigned fields.
	QueryID    string `json:"queryId"`
	OrderBy    string `json:"orderBy"`
	ResourceID string `json:"resourceId"`
	DataType   string `json:"dataType"`
	UserID     string `json:"userId"`
}

// =============================================================================
// MODEL AND PARAMETER TYPES
// =============================================================================

// Model identifies an invokable LLM.
type Model struct {
	ID          string `json:"id"`
	Region      string `json:"region"`
	DisplayName string `json:"displayName"`
}

// IsZero reports whether no model has been selected.
func (m Model) IsZero() bool {
	return m.ID == ""
}

// Parameter is the deployment parameter document advertised by the backend.
// It is fetched once at startup, before any dependent client is constructed.
type Parameter struct {
	Models    []Model `json:"models"`
	WebSearch bool    `json:"webSearch"`
}

// ValidModel reports whether m is one of the advertised models.
func (p Parameter) ValidModel(m Model) bool {
	for _, am := range p.Models {
		if am.ID == m.ID {
			return true
		}
	}
	return false
}

// DefaultModel returns the first advertised model.
func (p Parameter) DefaultModel() (Model, bool) {
	if len(p.Models) == 0 {
		return Model{}, false
	}
	return p.Models[0], true
}

// =============================================================================
// GALLERY TYPE
// =============================================================================

// GalleryItem describes one generated image stored by the backend.
type GalleryItem struct {
	Bucket       string `json:"bucket"`
	Key          string `json:"key"`
	BucketRegion string `json:"bucketRegion"`
	Filename     string `json:"filename"`
	UploadedAt   string `json:"uploadedAt"`
	UserID       string `json:"userId"`
}
