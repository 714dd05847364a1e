package reads

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reads.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func collect(t *testing.T, src *Source) []string {
	t.Helper()
	var out []string
	for {
		tok, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, string(tok))
	}
	return out
}

func TestOpenRegularFileTokenizes(t *testing.T) {
	path := writeTempFile(t, "AAATT  AAATG\nCCCGG\t\tGGGTT\n")
	src, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	got := collect(t, src)
	want := []string{"AAATT", "AAATG", "CCCGG", "GGGTT"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tokens = %v, want %v", got, want)
		}
	}
}

func TestOpenSkipsEmptyRunsOfWhitespace(t *testing.T) {
	path := writeTempFile(t, "\n\n  AAATT   \n\n  AAATG\n\n")
	src, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	got := collect(t, src)
	want := []string{"AAATT", "AAATG"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestOpenEmptyFileFallsBackAndYieldsNoTokens(t *testing.T) {
	path := writeTempFile(t, "")
	src, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	if _, err := src.Next(); err != io.EOF {
		t.Fatalf("Next() on empty file: got err=%v, want io.EOF", err)
	}
}

func TestOpenNonRegularFileUsesScannerFallback(t *testing.T) {
	piper, pipew, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer piper.Close()
	go func() {
		_, _ = pipew.Write([]byte("AAATT AAATG\n"))
		pipew.Close()
	}()

	src, err := Open(fdPath(t, piper))
	if err != nil {
		t.Skipf("platform does not support reopening a pipe by /proc/self/fd path: %v", err)
	}
	defer src.Close()

	got := collect(t, src)
	if len(got) != 2 || got[0] != "AAATT" || got[1] != "AAATG" {
		t.Fatalf("tokens = %v, want [AAATT AAATG]", got)
	}
}

// fdPath exposes the /proc/self/fd path for an already-open *os.File so
// Open can reopen it by name, exercising the same os.Open(filename)
// entrypoint every other caller uses.
func fdPath(t *testing.T, f *os.File) string {
	t.Helper()
	return filepath.Join("/proc/self/fd", itoa(int(f.Fd())))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func TestCountTokens(t *testing.T) {
	path := writeTempFile(t, "AAATT AAATG\nCCCGG\n")
	n, err := CountTokens(path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("CountTokens = %d, want 3", n)
	}
}

func TestCountTokensDoesNotDisturbOpenSource(t *testing.T) {
	path := writeTempFile(t, "AAATT AAATG\n")
	src, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	if _, err := CountTokens(path); err != nil {
		t.Fatal(err)
	}

	got := collect(t, src)
	if len(got) != 2 || got[0] != "AAATT" || got[1] != "AAATG" {
		t.Fatalf("tokens after CountTokens = %v, want [AAATT AAATG]", got)
	}
}
