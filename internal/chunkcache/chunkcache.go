// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package chunkcache implements the single-entry cache slot a distributed
// column keeps for its most recently fetched chunk (§4.6). It is a
// specialization of the teacher's general-purpose LRU cache
// (pkg/lrucache): capacity is fixed at one entry, there is no TTL or
// memory-size eviction, but the same mutex/condition-variable pattern is
// kept so that two goroutines racing to fetch the same chunk coalesce
// onto a single underlying Fetch call instead of both hitting the KV
// store.
package chunkcache

import "sync"

// Fetch retrieves the authoritative bytes for a chunk index. It must not
// call back into the owning Slot.
type Fetch func(index int) ([]byte, error)

// Slot holds at most one fetched chunk. A distributed column embeds two —
// one for value chunks, one for missing-bit chunks.
type Slot struct {
	mu    sync.Mutex
	cond  *sync.Cond
	valid bool
	index int
	data  []byte

	// computing is set while a Fetch for index is in flight so that a
	// concurrent Get for the same index waits for it instead of issuing
	// a second redundant fetch.
	computing bool
}

// New returns an empty slot.
func New() *Slot {
	s := &Slot{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Get returns the bytes for index, using the cached copy when the slot
// already holds it. Otherwise fetch is called once (even if multiple
// goroutines call Get for the same index concurrently) and the result is
// cached before being returned.
func (s *Slot) Get(index int, fetch Fetch) ([]byte, error) {
	s.mu.Lock()
	for s.computing && s.index == index {
		s.cond.Wait()
	}

	if s.valid && s.index == index {
		data := append([]byte(nil), s.data...)
		s.mu.Unlock()
		return data, nil
	}

	s.computing = true
	s.index = index
	s.valid = false
	s.mu.Unlock()

	data, err := fetch(index)

	s.mu.Lock()
	s.computing = false
	if err == nil {
		s.valid = true
		s.index = index
		s.data = append([]byte(nil), data...)
	}
	s.cond.Broadcast()
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

// Put seeds the slot directly, e.g. right after a write-back so the next
// Get for the same index is free. Safe to call with a stale index; it
// simply replaces whatever the slot held.
func (s *Slot) Put(index int, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid = true
	s.index = index
	s.data = append([]byte(nil), data...)
}

// Invalidate clears the slot, as required after any write to the column
// (§4.6): "After any write, the cache is invalidated ... so a subsequent
// read refetches authoritative state."
func (s *Slot) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid = false
}
