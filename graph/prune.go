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

// isWeak reports whether node falls below the survival floor: either
// it never reached the minimum observation frequency, or every
// observation of it came from the same read.
//
// When MinFrequency is 1, frequency alone already gates survival (a
// node present at all has met the floor), so the unique-read check is
// skipped: requiring two distinct reads would reject single-read
// k-mers that a MinFrequency of 1 is meant to accept. Production
// parameters keep MinFrequency above 1, where both checks apply.
func isWeak(node *Node, params Params) bool {
	if node.Frequency < params.MinFrequency {
		return true
	}
	return params.MinFrequency > 1 && !node.HasMultipleUniqueReads
}

// Prune removes every weak node from table, unlinking it from its
// neighbors' adjacency lists so survivors never point at a removed
// node. Removed nodes stay arena-resident (tombstoned) rather than
// freed; only the table entry and the adjacency links are torn down.
//
// Pruning is a single pass over the node set present when Prune is
// called: a node's fate is decided by the frequency and uniqueness it
// had accumulated by the end of graph construction, not recomputed
// as neighbors are removed. A node can end up with no predecessors
// after its weak parents are pruned away; that is an expected outcome
// (it becomes a new root for the enumerator), not a reason to re-scan.
func Prune(table *Table, params Params) {
	for _, node := range table.Snapshot() {
		if !isWeak(node, params) {
			continue
		}
		for l := node.FromNodes; l != nil; l = l.Next {
			l.Node.ToNodes = removeFromList(l.Node.ToNodes, node)
		}
		for l := node.ToNodes; l != nil; l = l.Next {
			l.Node.FromNodes = removeFromList(l.Node.FromNodes, node)
		}
		node.FromNodes = nil
		node.ToNodes = nil
		table.Erase(node.Seq)
	}
}
