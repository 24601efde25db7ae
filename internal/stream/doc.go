// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the chunked chat response body into chunks.
//
// The backend answers a streaming request with a chunked byte stream whose
// payload is newline-delimited JSON. Each network frame may contain zero, one,
// or many complete objects; frame boundaries are not guaranteed to align with
// object boundaries.
//
// The decoder is deliberately fail-fast: the first segment that does not
// parse as JSON terminates the stream with a single sentinel error chunk.
// In particular a JSON object split across two frames is treated as a decode
// failure rather than buffered for reassembly. Downstream code relies on
// "stream ends on first malformed segment", so the policy must not be
// loosened here.
//
// # Usage
//
//	dec := stream.NewDecoder(resp.Body)
//	for {
//	    chunk, err := dec.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    handle(chunk)
//	}
package stream
