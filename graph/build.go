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

package graph

import (
	"errors"
	"fmt"
	"io"

	"github.com/exascience/debralign/internal/arena"
)

// ReadSource is the minimal shape BuildFromReads needs from a read
// file reader. Defined locally, rather than importing package reads,
// so that graph does not depend on how reads are actually read from
// disk; any source of fixed-length byte slices works, including one
// built entirely in a test.
type ReadSource interface {
	// Next returns the next read's bytes, or io.EOF once exhausted.
	// The returned slice is only valid until the following call to
	// Next; BuildFromReads copies it into the read arena immediately.
	Next() ([]byte, error)
}

// BuildFromReads consumes every read from src, sliding a params.KmerLength
// window over each one, interning each k-mer into table (backed by
// pools), bumping frequency and the distinct-read flag on collision,
// and linking consecutive k-mers within a read.
func BuildFromReads(pools *arena.Pools, table *Table, src ReadSource, params Params) error {
	for {
		raw, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(raw) != params.ReadLength {
			return fmt.Errorf("graph: read has length %d, want %d", len(raw), params.ReadLength)
		}
		readSlot, err := pools.Reads.Allocate()
		if err != nil {
			return err
		}
		copy(readSlot, raw)

		if err := addReadToGraph(pools, table, readSlot, params); err != nil {
			return err
		}
	}
}

// addReadToGraph slides the k-mer window over one arena-resident read
// and links each k-mer to the one before it, mirroring the reference
// implementation's add_to_graph.
func addReadToGraph(pools *arena.Pools, table *Table, read []byte, params Params) error {
	var prev *Node
	last := len(read) - params.KmerLength
	for i := 0; i <= last; i++ {
		window := read[i : i+params.KmerLength]

		kmerSlot, err := pools.Kmers.Allocate()
		if err != nil {
			return err
		}
		copy(kmerSlot, window)

		node, existed := table.Lookup(kmerSlot)
		if existed {
			// The freshly-copied k-mer was never needed; give its slot
			// back so the pool can reuse it on the next window.
			pools.Kmers.Unget()
			node.Frequency++
			if !arena.SameSlot(node.ContributingRead, read) {
				node.HasMultipleUniqueReads = true
			}
		} else {
			node, err = pools.Nodes.Allocate()
			if err != nil {
				return err
			}
			node.Seq = kmerSlot
			node.Frequency = 1
			node.ContributingRead = read
			node.HasMultipleUniqueReads = false
			table.Insert(kmerSlot, node)
		}

		if prev != nil {
			LinkNodes(prev, node)
		}
		prev = node
	}
	return nil
}
