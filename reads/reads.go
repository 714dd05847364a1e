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

// Package reads streams whitespace-delimited, fixed-length reads from
// a plain text file: one token per read, no header, empty tokens
// skipped. The reader does not validate the nucleotide alphabet.
package reads

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Source streams reads from one file. Call Next repeatedly until it
// returns io.EOF, then Close.
type Source struct {
	file *os.File

	// mmap path
	data []byte
	pos  int

	// scanner fallback path, used when the input isn't a regular file
	// (e.g. a pipe), where mmap is unavailable.
	scanner *bufio.Scanner
}

// Open opens filename for reading. It memory-maps the file when
// possible; non-regular files (pipes, sockets) fall back to a
// buffered scanner transparently.
func Open(filename string) (*Source, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if !stat.Mode().IsRegular() || stat.Size() == 0 {
		return &Source{file: file, scanner: newWordScanner(file)}, nil
	}
	data, err := unix.Mmap(int(file.Fd()), 0, int(stat.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		// Fall back rather than fail outright: some regular files on
		// some filesystems still refuse mmap.
		if _, serr := file.Seek(0, io.SeekStart); serr != nil {
			_ = file.Close()
			return nil, serr
		}
		return &Source{file: file, scanner: newWordScanner(file)}, nil
	}
	return &Source{file: file, data: data}, nil
}

func newWordScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}

// Next returns the next read's bytes, or io.EOF once the file is
// exhausted. The returned slice is valid only until the following
// call to Next or Close; callers that need to keep it past that must
// copy it (graph.BuildFromReads does, into the read arena).
func (s *Source) Next() ([]byte, error) {
	if s.scanner != nil {
		for s.scanner.Scan() {
			tok := s.scanner.Bytes()
			if len(tok) == 0 {
				continue
			}
			return tok, nil
		}
		if err := s.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	for s.pos < len(s.data) {
		for s.pos < len(s.data) && isSpace(s.data[s.pos]) {
			s.pos++
		}
		start := s.pos
		for s.pos < len(s.data) && !isSpace(s.data[s.pos]) {
			s.pos++
		}
		if s.pos > start {
			return s.data[start:s.pos], nil
		}
	}
	return nil, io.EOF
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}

// Close releases the underlying file (and mapping, if one was made).
func (s *Source) Close() error {
	var err error
	if s.data != nil {
		err = unix.Munmap(s.data)
		s.data = nil
	}
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// CountTokens reports how many reads filename holds, without
// disturbing an in-progress Source (it reopens the file). Used by
// assemble.Assemble to log the expected read count before opening a
// Source for the real pass.
func CountTokens(filename string) (int, error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	scanner := newWordScanner(f)
	n := 0
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) > 0 {
			n++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("reads: counting tokens in %s: %w", filename, err)
	}
	return n, nil
}
