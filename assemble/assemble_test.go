package assemble

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/exascience/debralign/graph"
)

// writeReads joins reads with newlines into a fresh file under the
// test's temp directory and returns its path. Every read is listed
// twice, so each one lands in two distinct arena slots and every node
// ends up with hasMultipleUniqueReads set, as it would for a node
// actually observed from two different reads. (With MinFrequency 1,
// as in scenarioParams, the pruner does not check that flag anyway.)
func writeReads(t *testing.T, reads ...string) string {
	t.Helper()
	var sb strings.Builder
	for _, r := range reads {
		sb.WriteString(r)
		sb.WriteString("\n")
		sb.WriteString(r)
		sb.WriteString("\n")
	}
	path := filepath.Join(t.TempDir(), "reads.txt")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func scenarioParams() Params {
	return Params{
		Params: graph.Params{
			ReadLength:   5,
			KmerLength:   3,
			MinFrequency: 1,
		},
		MinContigLength: 3,
		MaxContigBytes:  100,
	}
}

func contigSeqs(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var seqs []string
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	for i := 0; i+1 < len(lines); i += 2 {
		if strings.HasPrefix(lines[i], ">") {
			seqs = append(seqs, lines[i+1])
		}
	}
	sort.Strings(seqs)
	return seqs
}

func TestLinearChain(t *testing.T) {
	in := writeReads(t, "AAATT")
	out := filepath.Join(t.TempDir(), "out.fa")

	emitted, err := Assemble(scenarioParams(), in, out, "ctg", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if emitted != 1 {
		t.Fatalf("emitted = %d, want 1", emitted)
	}
	seqs := contigSeqs(t, out)
	if len(seqs) != 1 || seqs[0] != "AAATT" {
		t.Fatalf("contigs = %v, want [AAATT]", seqs)
	}
}

func TestTwoDisjointRoots(t *testing.T) {
	in := writeReads(t, "AAATT", "CCCGG")
	out := filepath.Join(t.TempDir(), "out.fa")

	emitted, err := Assemble(scenarioParams(), in, out, "ctg", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if emitted != 2 {
		t.Fatalf("emitted = %d, want 2", emitted)
	}
	seqs := contigSeqs(t, out)
	want := []string{"AAATT", "CCCGG"}
	if !equalStrings(seqs, want) {
		t.Fatalf("contigs = %v, want %v", seqs, want)
	}
}

func TestSimpleBranch(t *testing.T) {
	in := writeReads(t, "AAATT", "AAATG")
	out := filepath.Join(t.TempDir(), "out.fa")

	emitted, err := Assemble(scenarioParams(), in, out, "ctg", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if emitted != 2 {
		t.Fatalf("emitted = %d, want 2", emitted)
	}
	seqs := contigSeqs(t, out)
	want := []string{"AAATG", "AAATT"}
	if !equalStrings(seqs, want) {
		t.Fatalf("contigs = %v, want %v", seqs, want)
	}
}

// cycleReads builds the two-root-into-one-cycle fixture shared by the
// repeat-detection scenarios: two linear entries XAB and YAB both
// feed into a 3-node cycle ABC -> BCA -> CAB -> ABC.
func cycleReads(t *testing.T) string {
	return writeReads(t, "XABCA", "YABCA", "ABCAB", "BCABC", "CABCA")
}

func TestRepeatDetectionWithoutStop(t *testing.T) {
	in := cycleReads(t)
	out := filepath.Join(t.TempDir(), "out.fa")

	emitted, err := Assemble(scenarioParams(), in, out, "ctg", Options{StopOnRepeat: false})
	if err != nil {
		t.Fatal(err)
	}
	if emitted != 2 {
		t.Fatalf("emitted = %d, want 2", emitted)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "_repeat") != 2 {
		t.Fatalf("expected 2 repeat-tagged contigs, got:\n%s", data)
	}
}

func TestStopOnRepeatTruncates(t *testing.T) {
	in := cycleReads(t)
	out := filepath.Join(t.TempDir(), "out.fa")

	if _, err := Assemble(scenarioParams(), in, out, "ctg", Options{StopOnRepeat: true}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Fatalf("output size = %d, want 0 after STOPPED_ON_REPEAT abort", info.Size())
	}
}

func TestMaxContigsTruncates(t *testing.T) {
	in := writeReads(t, "AAATT", "AAATG")
	out := filepath.Join(t.TempDir(), "out.fa")

	if _, err := Assemble(scenarioParams(), in, out, "ctg", Options{MaxContigs: 1}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Fatalf("output size = %d, want 0 after TOO_MANY_CONTIGS abort", info.Size())
	}
}

func TestDeterministicAcrossRuns(t *testing.T) {
	in := writeReads(t, "AAATT", "AAATG", "CCCGG")
	out1 := filepath.Join(t.TempDir(), "out1.fa")
	out2 := filepath.Join(t.TempDir(), "out2.fa")

	if _, err := Assemble(scenarioParams(), in, out1, "ctg", Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := Assemble(scenarioParams(), in, out2, "ctg", Options{}); err != nil {
		t.Fatal(err)
	}
	data1, err := os.ReadFile(out1)
	if err != nil {
		t.Fatal(err)
	}
	data2, err := os.ReadFile(out2)
	if err != nil {
		t.Fatal(err)
	}
	if string(data1) != string(data2) {
		t.Fatalf("two runs over the same input produced different output:\n%s\n---\n%s", data1, data2)
	}
}

func TestEmissionThreshold(t *testing.T) {
	params := scenarioParams()
	params.MinContigLength = 6 // strictly longer than "AAATT" (len 5)
	in := writeReads(t, "AAATT")
	out := filepath.Join(t.TempDir(), "out.fa")

	emitted, err := Assemble(params, in, out, "ctg", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if emitted != 0 {
		t.Fatalf("emitted = %d, want 0 (contig shorter than MinContigLength)", emitted)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Fatalf("output size = %d, want 0", info.Size())
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
