// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"testing"
)

func pagedFetch(pages map[string]Page[int]) FetchFunc[int] {
	return func(_ context.Context, cursor string) (Page[int], error) {
		page, ok := pages[cursor]
		if !ok {
			return Page[int]{}, errors.New("unknown cursor")
		}
		return page, nil
	}
}

func TestPaginatorWalksAllPages(t *testing.T) {
	p := NewPaginator(pagedFetch(map[string]Page[int]{
		"":   {Items: []int{1, 2}, NextCursor: "k1"},
		"k1": {Items: []int{3}, NextCursor: "k2"},
		"k2": {Items: []int{4}},
	}))

	var got []int
	for p.HasMore() {
		items, err := p.Next(context.Background())
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		got = append(got, items...)
	}

	want := []int{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPaginatorExhausted(t *testing.T) {
	p := NewPaginator(pagedFetch(map[string]Page[int]{
		"": {Items: []int{1}},
	}))

	if _, err := p.Next(context.Background()); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if p.HasMore() {
		t.Error("HasMore true after final page")
	}

	items, err := p.Next(context.Background())
	if err != nil || items != nil {
		t.Errorf("exhausted Next: got %v, %v", items, err)
	}
}

func TestPaginatorErrorDoesNotAdvance(t *testing.T) {
	calls := 0
	fetchErr := errors.New("transient")
	p := NewPaginator(func(_ context.Context, cursor string) (Page[int], error) {
		calls++
		if calls == 1 {
			return Page[int]{}, fetchErr
		}
		if cursor != "" {
			return Page[int]{}, errors.New("cursor advanced past failed fetch")
		}
		return Page[int]{Items: []int{7}}, nil
	})

	if _, err := p.Next(context.Background()); !errors.Is(err, fetchErr) {
		t.Fatalf("got %v, want fetch error", err)
	}

	items, err := p.Next(context.Background())
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if len(items) != 1 || items[0] != 7 {
		t.Errorf("got %v", items)
	}
}

func TestPaginatorReset(t *testing.T) {
	p := NewPaginator(pagedFetch(map[string]Page[int]{
		"": {Items: []int{1}},
	}))

	if _, err := p.Next(context.Background()); err != nil {
		t.Fatal(err)
	}
	p.Reset()
	if !p.HasMore() {
		t.Error("HasMore false after Reset")
	}

	items, err := p.All(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Errorf("got %v", items)
	}
}
