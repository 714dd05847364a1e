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

package cmd

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/exascience/debralign/assemble"
	"github.com/exascience/debralign/graph"
)

// AssembleHelp is the extended help string for the assemble command.
const AssembleHelp = "\nassemble parameters:\n" +
	"debralign assemble [flags] reads-file contigs-file prefix [reads-file contigs-file prefix ...]\n" +
	"[--read-length N]          (default 100)\n" +
	"[--kmer-length N]          (default 63)\n" +
	"[--min-contig-length N]    (default 101)\n" +
	"[--min-node-frequency N]   (default 3)\n" +
	"[--max-contig-bytes N]     (default 10000)\n" +
	"[--max-contigs N]          (default: unbounded)\n" +
	"[--max-paths-from-root N]  (default: unbounded)\n" +
	"[--stop-on-repeat]\n" +
	"[--timed]\n" +
	"\n" +
	"Supplying more than one reads/contigs/prefix triple assembles every\n" +
	"region concurrently.\n"

// Assemble implements the assemble command: build, prune, and
// enumerate contigs for one or more independent regions.
func Assemble() error {
	var (
		readLength       int
		kmerLength       int
		minContigLength  int
		minNodeFrequency int
		maxContigBytes   int
		maxContigs       int
		maxPathsFromRoot int
		stopOnRepeat     bool
		timed            bool
	)

	var flags flag.FlagSet
	flags.IntVar(&readLength, "read-length", 100, "length of every input read")
	flags.IntVar(&kmerLength, "kmer-length", 63, "k-mer window length")
	flags.IntVar(&minContigLength, "min-contig-length", 101, "minimum length of an emitted contig")
	flags.IntVar(&minNodeFrequency, "min-node-frequency", 3, "minimum observation count for a node to survive pruning")
	flags.IntVar(&maxContigBytes, "max-contig-bytes", 10000, "maximum in-progress contig buffer size")
	flags.IntVar(&maxContigs, "max-contigs", assemble.Unbounded, "abort the assembly once this many contigs have been emitted")
	flags.IntVar(&maxPathsFromRoot, "max-paths-from-root", assemble.Unbounded, "skip a root once this many branches have been explored from it")
	flags.BoolVar(&stopOnRepeat, "stop-on-repeat", false, "abort the assembly on the first repeated node instead of tagging and emitting it")
	flags.BoolVar(&timed, "timed", false, "log phase timings")

	flags.SetOutput(ioutil.Discard)
	if len(os.Args) < 2 {
		fmt.Print(AssembleHelp)
		return fmt.Errorf("assemble: expected reads/contigs/prefix triples, got none")
	}
	if err := flags.Parse(os.Args[2:]); err != nil {
		if err == flag.ErrHelp {
			fmt.Print(AssembleHelp)
			return nil
		}
		fmt.Print(AssembleHelp)
		return err
	}

	positional := flags.Args()
	if len(positional) == 0 || len(positional)%3 != 0 {
		fmt.Print(AssembleHelp)
		return fmt.Errorf("assemble: expected reads/contigs/prefix triples, got %d positional arguments", len(positional))
	}

	params := assemble.Params{
		Params: graph.Params{
			ReadLength:   readLength,
			KmerLength:   kmerLength,
			MinFrequency: minNodeFrequency,
		},
		MinContigLength: minContigLength,
		MaxContigBytes:  maxContigBytes,
	}
	opts := assemble.Options{
		MaxContigs:       maxContigs,
		MaxPathsFromRoot: maxPathsFromRoot,
		StopOnRepeat:     stopOnRepeat,
	}

	var regions []assemble.Region
	for i := 0; i+2 < len(positional); i += 3 {
		reads := positional[i]
		contigs := positional[i+1]
		prefix := positional[i+2]
		if !checkExist("reads-file", reads) {
			return fmt.Errorf("assemble: cannot read %v", reads)
		}
		regions = append(regions, assemble.Region{InputPath: reads, OutputPath: contigs, Prefix: prefix})
	}

	if len(regions) == 1 {
		return timedRun(timed, fmt.Sprintf("Assembling %v", regions[0].Prefix), func() error {
			emitted, err := assemble.Assemble(params, regions[0].InputPath, regions[0].OutputPath, regions[0].Prefix, opts)
			if err != nil {
				return err
			}
			log.Printf("assemble: %v: wrote %d contigs", regions[0].Prefix, emitted)
			return nil
		})
	}

	return timedRun(timed, fmt.Sprintf("Assembling %d regions", len(regions)), func() error {
		results := assemble.AssembleRegions(params, regions, opts)
		var firstErr error
		for _, r := range results {
			if r.Err != nil {
				log.Printf("assemble: %v: error: %v", r.Region.Prefix, r.Err)
				if firstErr == nil {
					firstErr = r.Err
				}
				continue
			}
			log.Printf("assemble: %v: wrote %d contigs", r.Region.Prefix, r.Emitted)
		}
		return firstErr
	})
}
