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
	"fmt"
	"log"
	"os"
	"runtime"
	"time"
)

// ProgramName, ProgramVersion, and ProgramURL identify this binary in
// its startup banner and --help output.
const (
	ProgramName    = "debralign"
	ProgramVersion = "1.0.0"
	ProgramURL     = "http://github.com/exascience/debralign"
)

// ProgramMessage is the first line printed when the binary starts.
var ProgramMessage string

func init() {
	ProgramMessage = fmt.Sprint(
		"\n", ProgramName, " version ", ProgramVersion,
		" compiled with ", runtime.Version(),
		" - see ", ProgramURL, " for more information.\n",
	)
}

// HelpMessage documents the flags common to every subcommand.
const HelpMessage = "Print command details:\n" +
	"[--help]\n"

func checkExist(parameter, filename string) bool {
	if len(filename) == 0 {
		log.Printf("Error: Missing filename for command line parameter %v.\n", parameter)
		return false
	}
	if _, err := os.Stat(filename); err == nil {
		return true
	} else if os.IsNotExist(err) {
		log.Printf("Error: File %v does not exist for command line parameter %v.\n", filename, parameter)
		return false
	} else if os.IsPermission(err) {
		log.Printf("Error: No permission to read file %v for command line parameter %v.\n", filename, parameter)
		return false
	} else {
		log.Printf("Error %v when trying to access file %v for command line parameter %v.\n", err, filename, parameter)
		return false
	}
}

// timedRun runs f, optionally logging msg before and the elapsed time
// after. Unlike this codebase's original timedRun, it has no
// profiling hook: nothing downstream of this CLI is CPU-profiled in
// separate phases, so there is no phase-numbered .prof file to write.
func timedRun(timed bool, msg string, f func() error) error {
	if timed {
		log.Println(msg)
		start := time.Now()
		defer func() {
			log.Println("Elapsed time:", time.Since(start))
		}()
	}
	return f()
}
