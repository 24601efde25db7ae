// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/strands-chat/internal/model"
)

// =============================================================================
// DECODER CONSTANTS
// =============================================================================

// frameBufferSize is the read buffer for a single network frame.
const frameBufferSize = 32 * 1024

// ErrMalformedChunk indicates a stream segment that is not valid JSON. It is
// carried on the sentinel chunk, terminal for the stream.
var ErrMalformedChunk = errors.New("malformed stream chunk")

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns a raw response body into a finite, non-restartable sequence
// of chunks. Each Read on the underlying reader is one frame; the frame text
// is split on newlines and every non-empty segment is parsed as one chunk.
type Decoder struct {
	r       io.Reader
	buf     []byte
	pending []model.StreamChunk
	done    bool
}

// NewDecoder creates a decoder over a response body. The decoder does not
// close the reader.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, frameBufferSize),
	}
}

// Next returns the next decoded chunk. It returns io.EOF once the stream is
// exhausted, and a non-nil error only for transport read failures. A decode
// failure is not an error here: it yields the sentinel chunk (Err set,
// Text = model.StreamErrorText) followed by io.EOF.
func (d *Decoder) Next() (model.StreamChunk, error) {
	for len(d.pending) == 0 {
		if d.done {
			return model.StreamChunk{}, io.EOF
		}

		n, err := d.r.Read(d.buf)
		if n > 0 {
			d.decodeFrame(string(d.buf[:n]))
		}
		if err != nil {
			d.done = true
			if err != io.EOF && len(d.pending) == 0 {
				return model.StreamChunk{}, fmt.Errorf("stream read failed: %w", err)
			}
		}
	}

	chunk := d.pending[0]
	d.pending = d.pending[1:]
	return chunk, nil
}

// decodeFrame splits one frame on newlines and parses each non-empty segment.
// Chunks parsed before a malformed segment are still delivered; the malformed
// segment itself becomes the terminal sentinel.
func (d *Decoder) decodeFrame(frame string) {
	for _, segment := range strings.Split(frame, "\n") {
		if len(segment) == 0 {
			continue
		}

		var chunk model.StreamChunk
		if err := json.Unmarshal([]byte(segment), &chunk); err != nil {
			d.pending = append(d.pending, model.StreamChunk{
				Text: model.StreamErrorText,
				Err:  fmt.Errorf("%w: %v", ErrMalformedChunk, err),
			})
			d.done = true
			return
		}
		d.pending = append(d.pending, chunk)
	}
}

// Chunks drains the decoder into a channel. The channel is closed when the
// stream ends, a sentinel is emitted, or ctx is cancelled. Transport read
// failures are delivered as a chunk with Err set and empty text.
func (d *Decoder) Chunks(ctx context.Context) <-chan model.StreamChunk {
	out := make(chan model.StreamChunk, 64)

	go func() {
		defer close(out)
		for {
			chunk, err := d.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				chunk = model.StreamChunk{Err: err}
			}

			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
			if chunk.Err != nil {
				return
			}
		}
	}()

	return out
}
