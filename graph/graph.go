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

// Package graph is the de Bruijn graph store: a hash table keyed by
// k-mer byte string, holding one Node per distinct k-mer along with
// its incoming and outgoing adjacency lists.
//
// The table is a hand-rolled bucketed hash table rather than a Go
// built-in map. The built-in map's iteration order is randomized per
// process on purpose; this assembler needs the opposite property
// (root discovery, and therefore contig emission order, must be a
// deterministic function of the input alone) so it cannot be used
// here.
package graph

import (
	"bytes"

	"github.com/exascience/debralign/internal"
	"github.com/exascience/debralign/internal/arena"
)

// Node is a distinct k-mer observed at least once while building the
// graph. It is defined in package arena so that arena.NodePool can
// allocate and zero it without depending on this package.
type Node = arena.Node

// Link is one adjacency-list cell.
type Link = arena.Link

// Params holds the assembly constants that the graph store, builder,
// and pruner need: read length, k-mer length, and the minimum
// frequency a node must reach to survive pruning.
type Params struct {
	ReadLength   int
	KmerLength   int
	MinFrequency int
}

type bucketEntry struct {
	key  []byte
	node *Node
	next *bucketEntry
}

// Table is the k-mer -> *Node hash table plus adjacency-list
// bookkeeping.
type Table struct {
	buckets []*bucketEntry
	count   int
}

const initialBuckets = 1024
const maxLoadFactor = 0.75

// NewTable creates an empty graph store.
func NewTable() *Table {
	return &Table{buckets: make([]*bucketEntry, initialBuckets)}
}

// Len returns the number of distinct k-mers currently in the table.
func (t *Table) Len() int { return t.count }

func (t *Table) bucketIndex(key []byte) int {
	return int(internal.ByteStringHash(key) % uint64(len(t.buckets)))
}

// Lookup returns the Node for key, if present.
func (t *Table) Lookup(key []byte) (*Node, bool) {
	for e := t.buckets[t.bucketIndex(key)]; e != nil; e = e.next {
		if bytes.Equal(e.key, key) {
			return e.node, true
		}
	}
	return nil, false
}

// Insert adds node under key. It does not check for a pre-existing
// entry; callers must Lookup first (the builder always does, since it
// needs the lookup result to decide whether to create a new node).
func (t *Table) Insert(key []byte, node *Node) {
	if float64(t.count+1) > maxLoadFactor*float64(len(t.buckets)) {
		t.grow()
	}
	idx := t.bucketIndex(key)
	t.buckets[idx] = &bucketEntry{key: key, node: node, next: t.buckets[idx]}
	t.count++
}

// Erase removes the entry for key, if any.
func (t *Table) Erase(key []byte) {
	idx := t.bucketIndex(key)
	var prev *bucketEntry
	for e := t.buckets[idx]; e != nil; e = e.next {
		if bytes.Equal(e.key, key) {
			if prev == nil {
				t.buckets[idx] = e.next
			} else {
				prev.next = e.next
			}
			t.count--
			return
		}
		prev = e
	}
}

func (t *Table) grow() {
	newBuckets := make([]*bucketEntry, len(t.buckets)*2)
	old := t.buckets
	t.buckets = newBuckets
	for _, head := range old {
		// Re-insert preserving each bucket's original chain order, so
		// growth remains a deterministic function of insertion order.
		var chain []*bucketEntry
		for e := head; e != nil; e = e.next {
			chain = append(chain, e)
		}
		for i := len(chain) - 1; i >= 0; i-- {
			e := chain[i]
			idx := t.bucketIndex(e.key)
			e.next = t.buckets[idx]
			t.buckets[idx] = e
		}
	}
}

// ForEach visits every node currently in the table, in a deterministic
// (bucket, then chain) order for a given sequence of inserts and
// erases.
func (t *Table) ForEach(f func(*Node)) {
	for _, head := range t.buckets {
		for e := head; e != nil; e = e.next {
			f(e.node)
		}
	}
}

// Snapshot returns every node currently in the table in the same
// deterministic order as ForEach. Used by Prune, which must decide the
// fate of every node present at the start of pruning without being
// confused by entries it erases along the way.
func (t *Table) Snapshot() []*Node {
	nodes := make([]*Node, 0, t.count)
	t.ForEach(func(n *Node) { nodes = append(nodes, n) })
	return nodes
}

// Roots returns every node with no predecessors, in deterministic
// table order.
func (t *Table) Roots() []*Node {
	var roots []*Node
	t.ForEach(func(n *Node) {
		if n.FromNodes == nil {
			roots = append(roots, n)
		}
	})
	return roots
}

// isInList reports whether target already appears in list, by k-mer
// byte equality (every node in a single table is already unique by
// k-mer, so this also prevents inserting the same node twice under
// incidental aliasing).
func isInList(list *Link, target *Node) bool {
	for l := list; l != nil; l = l.Next {
		if bytes.Equal(l.Node.Seq, target.Seq) {
			return true
		}
	}
	return false
}

// LinkNodes records an edge from -> to, appending to both adjacency
// lists unless it is already present. Prepends to the head of each
// list (cheap, and the natural order for a singly-linked list),
// matching the reference implementation.
func LinkNodes(from, to *Node) {
	if !isInList(from.ToNodes, to) {
		from.ToNodes = &Link{Node: to, Next: from.ToNodes}
	}
	if !isInList(to.FromNodes, from) {
		to.FromNodes = &Link{Node: from, Next: to.FromNodes}
	}
}

// removeFromList unlinks the cell referencing target from list,
// returning the (possibly new) head. Mirrors the reference
// implementation's remove_node_from_list.
func removeFromList(list *Link, target *Node) *Link {
	var prev *Link
	for l := list; l != nil; l = l.Next {
		if bytes.Equal(l.Node.Seq, target.Seq) {
			if prev == nil {
				return l.Next
			}
			prev.Next = l.Next
			return list
		}
		prev = l
	}
	return list
}
