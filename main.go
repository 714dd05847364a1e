// elPrep: a high-performance tool for preparing .sam/.bam
// files for variant calling in sequencing pipelines.
// Copyright (c) 2017-2019 imec vzw.

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

// debralign reconstructs contiguous nucleotide sequences from batches
// of equal-length short reads drawn from a small genomic region, using
// a local de Bruijn graph assembler.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/exascience/debralign/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: assemble")
	fmt.Fprint(os.Stderr, "\n", cmd.AssembleHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, cmd.HelpMessage)
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "assemble":
		err = runRecovered(cmd.Assemble)
	case "help", "-help", "--help", "-h", "--h":
		printHelp()
	default:
		fmt.Fprintln(os.Stderr, "Unknown command:", os.Args[1])
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// runRecovered runs f, converting a panic raised for a fatal
// condition (arena capacity exceeded, contig buffer overflow) into an
// ordinary error so the process still exits non-zero with a logged
// message instead of an unhandled stack trace.
func runRecovered(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return f()
}
