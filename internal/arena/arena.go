// elPrep: a high-performance tool for analyzing SAM/BAM files.
// Copyright (c) 2017-2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

// Package arena implements block-pool allocators for the node, k-mer,
// and read strings generated during one assembly run.
//
// Reads and k-mer probes both arrive at a rate many times higher than
// the rate of distinct nodes actually created, so allocating each
// string or Node individually would put a malloc/GC-pressure call on
// the hottest path of graph construction. Each pool instead hands out
// slices over a block of pre-sized, pre-zeroed backing storage, and
// only grows (by appending a fresh block) when the current block is
// exhausted. Blocks are never reallocated or moved once appended, so a
// slice handed out by Allocate remains valid for the pool's entire
// lifetime - callers may keep pointers or sub-slices of it without
// fear of the backing array being resized out from under them.
package arena

import (
	"errors"
	"fmt"
)

// ErrCapacityExceeded is wrapped into the error returned by Allocate
// once a pool has exhausted its configured block budget. Exceeding
// this budget is the one allocation failure this package treats as
// the caller's problem to size correctly up front, rather than
// something to retry or grow past transparently (see Limits).
var ErrCapacityExceeded = errors.New("arena: pool capacity exceeded")

// Node is one arena-owned graph node slot. Kept untyped here (as a
// fixed-size struct, not an interface{}) so NodePool can zero it in
// place without reflection; graph.Node is defined as an alias for it.
type Node struct {
	ID                     int
	Seq                    []byte
	Frequency              int
	ContributingRead       []byte
	HasMultipleUniqueReads bool
	ToNodes                *Link
	FromNodes              *Link
}

// Link is one singly-linked adjacency list cell.
type Link struct {
	Node *Node
	Next *Link
}

// NodePool hands out zero-valued *Node slots in blocks of nodesPerBlock.
type NodePool struct {
	blocks       [][]Node
	nodesPerBlock int
	maxBlocks    int
	blockIdx     int
	nodeIdx      int
	nextID       int
}

// NewNodePool creates a pool that allocates nodesPerBlock Nodes per
// block, refusing to grow past maxBlocks blocks.
func NewNodePool(nodesPerBlock, maxBlocks int) *NodePool {
	p := &NodePool{nodesPerBlock: nodesPerBlock, maxBlocks: maxBlocks, blockIdx: -1}
	return p
}

// Allocate returns a fresh, zero-valued Node slot with a unique,
// monotonically increasing ID. The ID doubles as a dense index usable
// with bitset-based visited sets (see assemble.path).
func (p *NodePool) Allocate() (*Node, error) {
	if p.blockIdx < 0 || p.nodeIdx >= p.nodesPerBlock {
		if p.blockIdx+1 >= p.maxBlocks {
			return nil, fmt.Errorf("node pool exceeded %d blocks of %d nodes: %w", p.maxBlocks, p.nodesPerBlock, ErrCapacityExceeded)
		}
		p.blocks = append(p.blocks, make([]Node, p.nodesPerBlock))
		p.blockIdx++
		p.nodeIdx = 0
	}
	n := &p.blocks[p.blockIdx][p.nodeIdx]
	p.nodeIdx++
	n.ID = p.nextID
	p.nextID++
	return n, nil
}

// Count returns the number of nodes allocated so far, i.e. one past
// the highest ID in use. Useful for sizing a bitset up front.
func (p *NodePool) Count() int {
	return p.nextID
}

// stringPool is the shared implementation behind KmerPool and
// ReadPool: both hand out fixed-width []byte slots, differing only in
// slot width and in whether unget is supported.
type stringPool struct {
	blocks      [][]byte
	slotWidth   int
	slotsPerBlk int
	maxBlocks   int
	blockIdx    int
	slotIdx     int
}

func newStringPool(slotWidth, slotsPerBlock, maxBlocks int) *stringPool {
	return &stringPool{slotWidth: slotWidth, slotsPerBlk: slotsPerBlock, maxBlocks: maxBlocks, blockIdx: -1}
}

func (p *stringPool) allocate() ([]byte, error) {
	if p.blockIdx < 0 || p.slotIdx >= p.slotsPerBlk {
		if p.blockIdx+1 >= p.maxBlocks {
			return nil, fmt.Errorf("string pool exceeded %d blocks of %d slots: %w", p.maxBlocks, p.slotsPerBlk, ErrCapacityExceeded)
		}
		p.blocks = append(p.blocks, make([]byte, p.slotWidth*p.slotsPerBlk))
		p.blockIdx++
		p.slotIdx = 0
	}
	start := p.slotIdx * p.slotWidth
	p.slotIdx++
	return p.blocks[p.blockIdx][start : start+p.slotWidth : start+p.slotWidth], nil
}

// unget rewinds the last allocation from this pool, provided it was
// the most recent one and the pool hasn't since crossed a block
// boundary. Used by KmerPool when a freshly-formed k-mer turns out to
// already exist in the graph.
func (p *stringPool) unget() {
	if p.slotIdx > 0 {
		start := (p.slotIdx - 1) * p.slotWidth
		end := start + p.slotWidth
		for i := start; i < end; i++ {
			p.blocks[p.blockIdx][i] = 0
		}
		p.slotIdx--
	}
}

// KmerPool hands out K-byte slots for interned k-mer strings.
type KmerPool struct{ pool *stringPool }

// NewKmerPool creates a k-mer pool of the given slot width (K).
func NewKmerPool(kmerLength, slotsPerBlock, maxBlocks int) *KmerPool {
	return &KmerPool{pool: newStringPool(kmerLength, slotsPerBlock, maxBlocks)}
}

// Allocate returns a fresh K-byte slot, contents undefined; callers
// copy the k-mer bytes in themselves.
func (p *KmerPool) Allocate() ([]byte, error) { return p.pool.allocate() }

// Unget rewinds the most recent Allocate call, freeing it for reuse.
func (p *KmerPool) Unget() { p.pool.unget() }

// ReadPool hands out L-byte slots for copied-in read strings.
type ReadPool struct{ pool *stringPool }

// NewReadPool creates a read pool of the given slot width (L).
func NewReadPool(readLength, slotsPerBlock, maxBlocks int) *ReadPool {
	return &ReadPool{pool: newStringPool(readLength, slotsPerBlock, maxBlocks)}
}

// Allocate returns a fresh L-byte slot, contents undefined.
func (p *ReadPool) Allocate() ([]byte, error) { return p.pool.allocate() }

// SameSlot reports whether a and b were handed out by the same
// Allocate call, i.e. whether they are the same arena-resident read.
// This is a pointer-identity test, not a byte-content comparison: two
// reads with identical bytes stored in distinct slots are distinct.
func SameSlot(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == 0 && len(b) == 0
	}
	return &a[0] == &b[0]
}

// Pools bundles the three arenas backing one assembly run. A Pools
// value is not safe for concurrent use from more than one goroutine;
// running several regions concurrently means constructing one Pools
// per region.
type Pools struct {
	Nodes *NodePool
	Kmers *KmerPool
	Reads *ReadPool
}

// Limits configures the block size and block-count cap of each arena.
// Defaults are generous enough that a realistic single-region run
// never hits the cap; the cap exists as a guard against runaway input
// (e.g. a corrupt read file) rather than as a normal operating limit.
type Limits struct {
	NodesPerBlock, MaxNodeBlocks int
	KmersPerBlock, MaxKmerBlocks int
	ReadsPerBlock, MaxReadBlocks int
}

// DefaultLimits mirrors the block sizing of the reference
// implementation this assembler is derived from, scaled down from its
// fixed per-process allocation to a per-region default suitable for
// many concurrent regions sharing one process's memory.
func DefaultLimits() Limits {
	return Limits{
		NodesPerBlock: 4096, MaxNodeBlocks: 1 << 16,
		KmersPerBlock: 4096, MaxKmerBlocks: 1 << 16,
		ReadsPerBlock: 4096, MaxReadBlocks: 1 << 16,
	}
}

// NewPools builds the three arenas for one assembly run. kmerLength
// and readLength fix the slot width of the k-mer and read pools
// respectively for the run's lifetime.
func NewPools(kmerLength, readLength int, limits Limits) *Pools {
	return &Pools{
		Nodes: NewNodePool(limits.NodesPerBlock, limits.MaxNodeBlocks),
		Kmers: NewKmerPool(kmerLength, limits.KmersPerBlock, limits.MaxKmerBlocks),
		Reads: NewReadPool(readLength, limits.ReadsPerBlock, limits.MaxReadBlocks),
	}
}
