// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "context"

// =============================================================================
// PAGINATION
// =============================================================================

// Page is one page of a cursor-paginated list. NextCursor is the opaque
// key for the following page; empty means the list is exhausted.
type Page[T any] struct {
	Items      []T
	NextCursor string
}

// HasMore reports whether another page exists after this one.
func (p Page[T]) HasMore() bool {
	return p.NextCursor != ""
}

// FetchFunc loads one page starting at the given cursor.
type FetchFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Paginator walks a cursor-paginated list page by page. It is not safe for
// concurrent use.
type Paginator[T any] struct {
	fetch  FetchFunc[T]
	cursor string
	done   bool
}

// NewPaginator creates a paginator over fetch, positioned before the first
// page.
func NewPaginator[T any](fetch FetchFunc[T]) *Paginator[T] {
	return &Paginator[T]{fetch: fetch}
}

// Next loads the next page of items. It returns (nil, nil) once the list is
// exhausted. A fetch error does not advance the cursor; Next may be retried.
func (p *Paginator[T]) Next(ctx context.Context) ([]T, error) {
	if p.done {
		return nil, nil
	}

	page, err := p.fetch(ctx, p.cursor)
	if err != nil {
		return nil, err
	}

	p.cursor = page.NextCursor
	if !page.HasMore() {
		p.done = true
	}
	return page.Items, nil
}

// HasMore reports whether Next may yield more items. It is true before the
// first fetch.
func (p *Paginator[T]) HasMore() bool {
	return !p.done
}

// Reset rewinds the paginator to the first page.
func (p *Paginator[T]) Reset() {
	p.cursor = ""
	p.done = false
}

// All drains the remaining pages into a single slice.
func (p *Paginator[T]) All(ctx context.Context) ([]T, error) {
	var out []T
	for p.HasMore() {
		items, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}
