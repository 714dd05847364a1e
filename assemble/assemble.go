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

// Package assemble drives one region's graph build, prune, and
// two-pass (shadow then emission) contig enumeration, and the
// concurrent fan-out over several independent regions.
package assemble

import (
	"errors"
	"fmt"
	"log"

	"github.com/exascience/pargo/parallel"

	"github.com/exascience/debralign/contigio"
	"github.com/exascience/debralign/graph"
	"github.com/exascience/debralign/internal/arena"
	"github.com/exascience/debralign/reads"
)

// Params fixes the assembly constants for one run: read length,
// k-mer length, and the node survival floor (shared with package
// graph), plus the two contig-shaping bounds that belong to
// enumeration rather than graph construction.
type Params struct {
	graph.Params
	MinContigLength int
	MaxContigBytes  int
}

// Unbounded is the sentinel Options value meaning "no cap". It is
// zero: the enumerator only enforces MaxContigs and MaxPathsFromRoot
// when they are positive, so the zero-valued Options{} is unbounded
// and a caller asking to stop at the first contig passes 1.
const Unbounded = 0

// Options are the per-run bounds and toggles that are not properties
// of the graph itself.
type Options struct {
	MaxContigs       int
	MaxPathsFromRoot int
	StopOnRepeat     bool
}

// Assemble builds the de Bruijn graph for the reads in inputPath,
// prunes it, and enumerates contigs from every surviving root,
// writing FASTA records to outputPath under the given prefix.
//
// It returns the number of contigs that cleared the minimum-length
// threshold. On an aborting status (TOO_MANY_CONTIGS or
// STOPPED_ON_REPEAT on any root) outputPath is left present but empty,
// and the returned count is the pre-abort count, matching the
// reference contract that callers must pair the count with the
// output file's size to tell a completed run from an aborted one.
func Assemble(params Params, inputPath, outputPath, prefix string, opts Options) (emitted int, err error) {
	if params.KmerLength > params.ReadLength {
		return 0, fmt.Errorf("assemble: kmer length %d exceeds read length %d", params.KmerLength, params.ReadLength)
	}

	if n, err := reads.CountTokens(inputPath); err != nil {
		log.Printf("assemble: %s: could not count reads in %s up front: %v", prefix, inputPath, err)
	} else {
		log.Printf("assemble: %s: %d reads in %s", prefix, n, inputPath)
	}

	src, err := reads.Open(inputPath)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	pools := arena.NewPools(params.KmerLength, params.ReadLength, arena.DefaultLimits())
	table := graph.NewTable()

	if err := graph.BuildFromReads(pools, table, src, params.Params); err != nil {
		panicIfCapacityExceeded(err)
		return 0, err
	}
	log.Printf("assemble: %s: built graph with %d nodes", prefix, table.Len())

	graph.Prune(table, params.Params)
	log.Printf("assemble: %s: pruned to %d nodes", prefix, table.Len())

	roots := table.Roots()
	log.Printf("assemble: %s: %d root nodes", prefix, len(roots))

	writer := contigio.Create(outputPath, prefix)
	enum := &enumerator{kmerLength: params.KmerLength, maxContigBytes: params.MaxContigBytes}
	nodeCount := pools.Nodes.Count()

	contigCount := 0
	aborted := false

rootLoop:
	for _, root := range roots {
		shadowRP := runParams{
			maxPathsFromRoot: opts.MaxPathsFromRoot,
			maxContigs:       opts.MaxContigs,
			stopOnRepeat:     opts.StopOnRepeat,
			shadow:           true,
			minContigLength:  params.MinContigLength,
		}
		shadowCount := 0
		st, err := enum.enumerateFromRoot(root, nodeCount, shadowRP, &shadowCount, noopEmit)
		if err != nil {
			panicIfOverflow(err)
			return 0, err
		}

		if st == statusOK {
			emitRP := shadowRP
			emitRP.shadow = false
			st, err = enum.enumerateFromRoot(root, nodeCount, emitRP, &contigCount, func(seq []byte, isRepeat bool) {
				writer.WriteContig(seq, isRepeat)
			})
			if err != nil {
				panicIfOverflow(err)
				return 0, err
			}
		}

		switch st {
		case statusTooManyContigs:
			log.Printf("assemble: %s: TOO_MANY_CONTIGS", prefix)
			aborted = true
			break rootLoop
		case statusStoppedOnRepeat:
			log.Printf("assemble: %s: STOPPED_ON_REPEAT", prefix)
			aborted = true
			break rootLoop
		case statusTooManyPathsFromRoot:
			log.Printf("assemble: %s: TOO_MANY_PATHS_FROM_ROOT at root %q", prefix, string(root.Seq))
		}
	}

	if aborted {
		if err := writer.Abort(); err != nil {
			return contigCount, err
		}
		return contigCount, nil
	}
	if err := writer.Commit(); err != nil {
		return contigCount, err
	}
	return contigCount, nil
}

func noopEmit([]byte, bool) {}

func panicIfCapacityExceeded(err error) {
	if errors.Is(err, arena.ErrCapacityExceeded) {
		log.Panic(err)
	}
}

func panicIfOverflow(err error) {
	var overflow *overflowError
	if errors.As(err, &overflow) {
		log.Panic(err)
	}
}

// Region names one independent assembly: an input read file, an
// output FASTA path, and a contig-header prefix.
type Region struct {
	InputPath  string
	OutputPath string
	Prefix     string
}

// RegionResult pairs a Region with the outcome of assembling it.
type RegionResult struct {
	Region  Region
	Emitted int
	Err     error
}

// AssembleRegions runs Assemble once per region, concurrently. Each
// region gets its own arenas, graph table, and output path, so no
// locking is needed between them; this is the idiomatic expression of
// running independent regions in parallel, as opposed to
// parallelizing the traversal of a single region's graph, which this
// package does not do.
func AssembleRegions(params Params, regions []Region, opts Options) []RegionResult {
	results := make([]RegionResult, len(regions))
	parallel.Range(0, len(regions), 1, func(low, high int) {
		for i := low; i < high; i++ {
			r := regions[i]
			emitted, err := Assemble(params, r.InputPath, r.OutputPath, r.Prefix, opts)
			results[i] = RegionResult{Region: r, Emitted: emitted, Err: err}
		}
	})
	return results
}
