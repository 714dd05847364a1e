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

// Package contigio writes emitted contigs in FASTA format, buffering
// the whole run in memory and only touching the destination path once,
// at Commit or Abort time. A partially-assembled run never leaves a
// partially-written file at the destination.
package contigio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/exascience/debralign/internal"
)

// Writer accumulates FASTA records for one assembly run.
type Writer struct {
	destPath string
	prefix   string
	buf      []byte
	n        int
}

// Create prepares a writer for destPath. Nothing is created on disk
// until Commit or Abort.
func Create(destPath, prefix string) *Writer {
	return &Writer{
		destPath: destPath,
		prefix:   prefix,
		buf:      internal.ReserveByteBuffer(),
	}
}

// WriteContig appends one contig record: header line ">prefix_n" (or
// ">prefix_n_repeat" when isRepeat), then the sequence on one
// unwrapped line.
func (w *Writer) WriteContig(seq []byte, isRepeat bool) {
	w.buf = append(w.buf, '>')
	w.buf = append(w.buf, w.prefix...)
	w.buf = append(w.buf, '_')
	w.buf = appendInt(w.buf, w.n)
	if isRepeat {
		w.buf = append(w.buf, "_repeat"...)
	}
	w.buf = append(w.buf, '\n')
	w.buf = append(w.buf, seq...)
	w.buf = append(w.buf, '\n')
	w.n++
}

// Count returns the number of contigs written so far.
func (w *Writer) Count() int { return w.n }

func appendInt(buf []byte, n int) []byte {
	if n == 0 {
		return append(buf, '0')
	}
	start := len(buf)
	for n > 0 {
		buf = append(buf, byte('0'+n%10))
		n /= 10
	}
	// appended least-significant digit first; reverse in place
	for i, j := start, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}

// Commit flushes the buffered FASTA records to destPath. It writes to
// a uuid-suffixed temporary file in the destination directory and
// renames it into place, so a reader of destPath never observes a
// partially-written file.
func (w *Writer) Commit() (err error) {
	dir := filepath.Dir(w.destPath)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(w.destPath), uuid.New().String()))

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = f.Write(w.buf); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, w.destPath); err != nil {
		return err
	}
	internal.ReleaseByteBuffer(w.buf)
	w.buf = nil
	return nil
}

// Abort discards everything buffered so far and ensures destPath is
// absent or empty: a reader of the destination path sees zero bytes,
// whether or not anything previously existed there.
func (w *Writer) Abort() error {
	internal.ReleaseByteBuffer(w.buf)
	w.buf = nil
	f, err := os.OpenFile(w.destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
