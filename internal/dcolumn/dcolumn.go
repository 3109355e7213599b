// Package dcolumn implements the distributed column described in §4.6: a
// typed, logically unbounded sequence of cells sharded into fixed-size
// chunks, each chunk addressed by a generated key and homed by
// chunk_index mod N. All storage goes through internal/kv; a single-entry
// per-column cache (internal/chunkcache, one slot for values, one for
// missing bits) avoids refetching the same chunk on consecutive accesses.
package dcolumn

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/clusterdf/ddf/internal/cell"
	"github.com/clusterdf/ddf/internal/chunkcache"
	"github.com/clusterdf/ddf/internal/codec"
	"github.com/clusterdf/ddf/internal/kv"
	"github.com/clusterdf/ddf/internal/metrics"
)

// DefaultChunkSize is the design constant C (§3).
const DefaultChunkSize = 100

// InitialNumChunks is the chunk count every column starts with, matching
// the ground-truth constructor (original_source/src/store/dataframe/column.h:328,
// 342-351: `size_t num_chunks = 10`, eagerly materialized at construction
// time) rather than starting empty and doubling up from zero.
const InitialNumChunks = 10

// Column is one distributed, chunked column of a single cell type.
type Column struct {
	typ       cell.Type
	chunkSize int
	numNodes  int
	store     *kv.Store

	length    int
	numChunks int

	chunkKeys   []kv.Key
	missingKeys []kv.Key
	usedNames   map[string]bool

	valueCache   *chunkcache.Slot
	missingCache *chunkcache.Slot
}

// New builds a distributed column pre-allocated with InitialNumChunks
// empty chunks. numNodes is fixed for the lifetime of the column (§3:
// "home_node(chunk_keys[i]) = i mod N where N is the node count at column
// creation").
func New(t cell.Type, store *kv.Store, numNodes int) (*Column, error) {
	c := &Column{
		typ:          t,
		chunkSize:    DefaultChunkSize,
		numNodes:     numNodes,
		store:        store,
		usedNames:    make(map[string]bool),
		valueCache:   chunkcache.New(),
		missingCache: chunkcache.New(),
	}
	if err := c.allocateChunks(InitialNumChunks); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Column) Type() cell.Type { return c.typ }
func (c *Column) Length() int     { return c.length }

func (c *Column) locate(i int) (chunkIndex, offset int) {
	return i / c.chunkSize, i % c.chunkSize
}

func (c *Column) homeNode(chunkIndex int) int {
	return chunkIndex % c.numNodes
}

// generateKeyName draws a random key, retrying on collision against every
// name this column has already handed out (§4.6).
func (c *Column) generateKeyName() string {
	for {
		candidate := uuid.NewString()
		if !c.usedNames[candidate] {
			c.usedNames[candidate] = true
			return candidate
		}
	}
}

// ensureCapacity grows the chunk-key vectors (geometric doubling, §4.6)
// until index fits, allocating and initializing any newly created chunks.
func (c *Column) ensureCapacity(index int) error {
	capacity := c.numChunks * c.chunkSize
	if index < capacity {
		return nil
	}

	newNumChunks := c.numChunks * 2
	for newNumChunks*c.chunkSize <= index {
		newNumChunks *= 2
	}
	return c.allocateChunks(newNumChunks)
}

// allocateChunks grows the column up to newNumChunks, writing an empty
// (all-missing) chunk for each newly created index. A no-op if the column
// already has at least that many chunks.
func (c *Column) allocateChunks(newNumChunks int) error {
	if newNumChunks <= c.numChunks {
		return nil
	}
	for chunkIdx := c.numChunks; chunkIdx < newNumChunks; chunkIdx++ {
		home := c.homeNode(chunkIdx)
		valueKey := kv.NewKey(c.generateKeyName(), home)
		missingKey := kv.NewKey(c.generateKeyName(), home)

		if err := c.writeEmptyChunk(valueKey, missingKey); err != nil {
			return err
		}

		c.chunkKeys = append(c.chunkKeys, valueKey)
		c.missingKeys = append(c.missingKeys, missingKey)
	}
	c.numChunks = newNumChunks
	return nil
}

func (c *Column) writeEmptyChunk(valueKey, missingKey kv.Key) error {
	cells := make([]cell.Cell, c.chunkSize)
	bits := make([]bool, c.chunkSize)
	for i := range cells {
		cells[i] = cell.NewMissing(c.typ)
		bits[i] = true
	}

	values, err := codec.EncodeArray(c.typ, cells)
	if err != nil {
		return fmt.Errorf("dcolumn: encode empty chunk: %w", err)
	}
	if err := c.store.Put(valueKey, []byte(values)); err != nil {
		return fmt.Errorf("dcolumn: write empty value chunk: %w", err)
	}
	if err := c.store.Put(missingKey, []byte(codec.EncodeBoolArray(bits))); err != nil {
		return fmt.Errorf("dcolumn: write empty missing chunk: %w", err)
	}
	return nil
}

func (c *Column) fetchValueChunk(chunkIndex int) ([]cell.Cell, error) {
	hit := true
	raw, err := c.valueCache.Get(chunkIndex, func(idx int) ([]byte, error) {
		hit = false
		metrics.ChunkFetchTotal.Inc()
		return c.fetchRaw(c.chunkKeys[idx])
	})
	metrics.ObserveChunkCache(hit)
	if err != nil {
		return nil, err
	}
	return codec.DecodeArray(c.typ, string(raw))
}

func (c *Column) fetchMissingChunk(chunkIndex int) ([]bool, error) {
	hit := true
	raw, err := c.missingCache.Get(chunkIndex, func(idx int) ([]byte, error) {
		hit = false
		metrics.ChunkFetchTotal.Inc()
		return c.fetchRaw(c.missingKeys[idx])
	})
	metrics.ObserveChunkCache(hit)
	if err != nil {
		return nil, err
	}
	return codec.DecodeBoolArray(string(raw))
}

// fetchRaw reads a chunk's current bytes from the KV store. A miss here
// is a bug — every chunk is written at allocation time (§4.6's "any KV get
// returning none on an existing chunk ... is a fatal error").
func (c *Column) fetchRaw(key kv.Key) ([]byte, error) {
	v, ok, err := c.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("dcolumn: fetch chunk %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("dcolumn: chunk %s absent from KV store (chunks are always initialized)", key)
	}
	return v, nil
}

// Get returns the logical cell at index.
func (c *Column) Get(index int) (cell.Cell, error) {
	if index < 0 || index >= c.length {
		return cell.Cell{}, fmt.Errorf("dcolumn: index %d out of range [0,%d)", index, c.length)
	}
	chunkIndex, offset := c.locate(index)

	bits, err := c.fetchMissingChunk(chunkIndex)
	if err != nil {
		return cell.Cell{}, err
	}
	if bits[offset] {
		return cell.NewMissing(c.typ), nil
	}

	values, err := c.fetchValueChunk(chunkIndex)
	if err != nil {
		return cell.Cell{}, err
	}
	return values[offset], nil
}

// IsMissing reports whether the logical cell at index is missing.
func (c *Column) IsMissing(index int) (bool, error) {
	if index < 0 || index >= c.length {
		return false, fmt.Errorf("dcolumn: index %d out of range [0,%d)", index, c.length)
	}
	chunkIndex, offset := c.locate(index)
	bits, err := c.fetchMissingChunk(chunkIndex)
	if err != nil {
		return false, err
	}
	return bits[offset], nil
}

// Set overwrites the logical cell at index < Length (§4.6).
func (c *Column) Set(index int, v cell.Cell) error {
	if index < 0 || index >= c.length {
		return fmt.Errorf("dcolumn: index %d out of range [0,%d)", index, c.length)
	}
	chunkIndex, offset := c.locate(index)

	values, err := c.fetchValueChunk(chunkIndex)
	if err != nil {
		return err
	}
	bits, err := c.fetchMissingChunk(chunkIndex)
	if err != nil {
		return err
	}

	if v.IsMissing() {
		values[offset] = cell.NewMissing(c.typ)
		bits[offset] = true
	} else {
		values[offset] = v
		bits[offset] = false
	}

	if err := c.writeBack(chunkIndex, values, bits); err != nil {
		return err
	}
	c.invalidate()
	return nil
}

// PushBack appends one cell, growing the chunk chain as needed (§4.6).
func (c *Column) PushBack(v cell.Cell) error {
	if err := c.ensureCapacity(c.length); err != nil {
		return err
	}
	chunkIndex, offset := c.locate(c.length)

	values, err := c.fetchValueChunk(chunkIndex)
	if err != nil {
		return err
	}
	bits, err := c.fetchMissingChunk(chunkIndex)
	if err != nil {
		return err
	}

	if v.IsMissing() {
		values[offset] = cell.NewMissing(c.typ)
		bits[offset] = true
	} else {
		values[offset] = v
		bits[offset] = false
	}

	if err := c.writeBack(chunkIndex, values, bits); err != nil {
		return err
	}
	c.length++
	c.invalidate()
	return nil
}

func (c *Column) writeBack(chunkIndex int, values []cell.Cell, bits []bool) error {
	encodedValues, err := codec.EncodeArray(c.typ, values)
	if err != nil {
		return fmt.Errorf("dcolumn: encode chunk %d: %w", chunkIndex, err)
	}
	if err := c.store.Put(c.chunkKeys[chunkIndex], []byte(encodedValues)); err != nil {
		return fmt.Errorf("dcolumn: write chunk %d: %w", chunkIndex, err)
	}
	if err := c.store.Put(c.missingKeys[chunkIndex], []byte(codec.EncodeBoolArray(bits))); err != nil {
		return fmt.Errorf("dcolumn: write missing chunk %d: %w", chunkIndex, err)
	}
	return nil
}

// invalidate clears both cache slots — called after every write so the
// next read refetches authoritative state (§3's distributed-column
// invariant).
func (c *Column) invalidate() {
	c.valueCache.Invalidate()
	c.missingCache.Invalidate()
}

// ChunkIndexAndOffset exposes the placement function for callers (e.g.
// internal/dataframe's local_map) that need chunk_index/home_node
// directly without going through Get/Set (§8's testable placement
// property).
func (c *Column) ChunkIndexAndOffset(index int) (chunkIndex, offset int) {
	return c.locate(index)
}

// HomeNode returns the home node of the chunk holding index.
func (c *Column) HomeNode(index int) int {
	chunkIndex, _ := c.locate(index)
	return c.homeNode(chunkIndex)
}
