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

package assemble

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/exascience/debralign/graph"
)

// status mirrors the four outcomes a single enumeration pass can
// report. Only these four are handled locally; anything else
// (I/O failure, a malformed read) is an ordinary error.
type status int

const (
	statusOK status = iota
	statusTooManyPathsFromRoot
	statusTooManyContigs
	statusStoppedOnRepeat
)

func (s status) String() string {
	switch s {
	case statusOK:
		return "OK"
	case statusTooManyPathsFromRoot:
		return "TOO_MANY_PATHS_FROM_ROOT"
	case statusTooManyContigs:
		return "TOO_MANY_CONTIGS"
	case statusStoppedOnRepeat:
		return "STOPPED_ON_REPEAT"
	default:
		return "UNKNOWN"
	}
}

// path is one in-progress contig under enumeration: a growing byte
// buffer, the node being processed next, and the per-path visited set
// that makes cyclic graphs safe to explore (a cycle only aborts the
// path that walks into it a second time, not the whole graph).
type path struct {
	seq      []byte
	isRepeat bool
	currNode *graph.Node
	visited  *bitset.BitSet
}

func newPath(root *graph.Node, nodeCount int) *path {
	return &path{currNode: root, visited: bitset.New(uint(nodeCount))}
}

func (p *path) clone() *path {
	return &path{
		seq:      append([]byte(nil), p.seq...),
		isRepeat: p.isRepeat,
		currNode: p.currNode,
		visited:  p.visited.Clone(),
	}
}

// enumerator carries the run-wide constants an enumeration pass needs:
// the k-mer length and the oversize-contig guard. The per-root
// explored-path counter is local to each enumerateFromRoot call.
type enumerator struct {
	kmerLength     int
	maxContigBytes int
}

// overflowError is returned when a path's buffer would exceed
// maxContigBytes. The reference implementation treats this as a
// process-fatal condition; enumerateFromRoot returns it as an error,
// and Assemble turns it into a log.Panic that main's runRecovered
// converts back into an error, so the process exits non-zero.
type overflowError struct {
	node *graph.Node
}

func (e *overflowError) Error() string {
	return fmt.Sprintf("assemble: contig buffer exceeded max size at node %q", string(e.node.Seq))
}

// emitFunc is called once per terminated path that clears the
// minimum-length threshold during an emission pass. A shadow pass
// never calls it, but still counts every such path (see terminate),
// so it validates maxContigs against the same count an emission pass
// would produce, without writing anything.
type emitFunc func(seq []byte, isRepeat bool)

// runParams bounds one enumeration pass over one root.
type runParams struct {
	maxPathsFromRoot int
	maxContigs       int
	stopOnRepeat     bool
	shadow           bool
	minContigLength  int
}

// enumerateFromRoot performs the explicit-stack depth-first walk
// described for this package: peek the top path; if its current node
// was already visited on this path, tag it a repeat and terminate; if
// it's a sink, append its full k-mer and terminate; otherwise append
// the node's first byte, mark it visited, advance to its first
// successor, and push a clone of the path for each additional
// successor. contigCount is shared across the whole pass (and, for an
// emission pass, across every root in the assembly) so maxContigs
// bounds the run as a whole, not each root individually.
func (e *enumerator) enumerateFromRoot(root *graph.Node, nodeCount int, rp runParams, contigCount *int, emit emitFunc) (status, error) {
	stack := []*path{newPath(root, nodeCount)}
	pathsFromRoot := 1
	st := statusOK

	for len(stack) > 0 && st == statusOK {
		top := stack[len(stack)-1]

		switch {
		case top.visited.Test(uint(top.currNode.ID)):
			top.isRepeat = true
			if rp.stopOnRepeat {
				st = statusStoppedOnRepeat
			} else {
				e.terminate(top, contigCount, rp, emit)
			}
			stack = stack[:len(stack)-1]

		case top.currNode.ToNodes == nil:
			top.seq = append(top.seq, top.currNode.Seq...)
			e.terminate(top, contigCount, rp, emit)
			stack = stack[:len(stack)-1]

		default:
			top.seq = append(top.seq, top.currNode.Seq[0])
			if len(top.seq) >= e.maxContigBytes {
				return st, &overflowError{node: top.currNode}
			}
			top.visited.Set(uint(top.currNode.ID))

			successors := top.currNode.ToNodes
			top.currNode = successors.Node
			pathsFromRoot++

			for l := successors.Next; l != nil; l = l.Next {
				branch := top.clone()
				branch.currNode = l.Node
				stack = append(stack, branch)
				pathsFromRoot++
			}
		}

		if st == statusOK && rp.maxContigs > 0 && *contigCount >= rp.maxContigs {
			st = statusTooManyContigs
		}
		if st == statusOK && rp.maxPathsFromRoot > 0 && pathsFromRoot >= rp.maxPathsFromRoot {
			st = statusTooManyPathsFromRoot
		}
	}

	return st, nil
}

// terminate applies the emission-threshold rule to a path that has
// just reached a sink or a repeat, and (if it clears the threshold)
// counts and emits it. Repeats terminated with stopOnRepeat are
// handled by the caller before terminate is reached.
func (e *enumerator) terminate(p *path, contigCount *int, rp runParams, emit emitFunc) {
	if len(p.seq) < rp.minContigLength {
		return
	}
	*contigCount++
	if !rp.shadow {
		emit(p.seq, p.isRepeat)
	}
}
