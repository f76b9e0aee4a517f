package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/andrew-torda/supermat/pkg/align"
	"github.com/andrew-torda/supermat/pkg/artifact"
	"github.com/andrew-torda/supermat/pkg/config"
	"github.com/andrew-torda/supermat/pkg/ledger"
	"github.com/andrew-torda/supermat/pkg/metrics"
	"github.com/andrew-torda/supermat/pkg/ortho"
	"github.com/andrew-torda/supermat/pkg/pipeline"
	"github.com/andrew-torda/supermat/pkg/randseq"
	"github.com/andrew-torda/supermat/pkg/seq"
	"github.com/andrew-torda/supermat/pkg/seq/common"
	"github.com/andrew-torda/supermat/pkg/vlog"
)

var taxa = []string{"takin", "buffalo", "yak"}

// setup writes proteomes and a table into a temporary directory and
// returns a configuration pointing at them.
func setup(t *testing.T, proteomes [3]string, table string) config.Config {
	t.Helper()
	dir := t.TempDir()
	c := config.Default()
	for i, name := range taxa {
		fname := filepath.Join(dir, name+".fasta")
		if err := os.WriteFile(fname, []byte(proteomes[i]), 0o644); err != nil {
			t.Fatal(err)
		}
		c.Taxa = append(c.Taxa, config.Taxon{Name: name, Proteome: fname})
	}
	c.Table = filepath.Join(dir, "table.tsv")
	if err := os.WriteFile(c.Table, []byte(table), 0o644); err != nil {
		t.Fatal(err)
	}
	c.Output = filepath.Join(dir, "supermatrix.fasta")
	c.Artifacts.Driver = "memory"
	c.Workers = 3
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	return c
}

// padAligner pads every sequence with gaps to the longest and writes
// them back in reverse order, the way a real aligner is free to.
func padAligner(_ context.Context, in string, out io.Writer) error {
	seqs, err := seq.Readfile(in)
	if err != nil {
		return err
	}
	width := 0
	for _, s := range seqs {
		width = max(width, s.Len())
	}
	for i := len(seqs) - 1; i >= 0; i-- {
		s := seqs[i].GetSeq()
		s = append(s, bytes.Repeat([]byte{common.GapChar}, width-len(s))...)
		fmt.Fprintf(out, ">%s\n%s\n", seqs[i].GetCmmt(), s)
	}
	return nil
}

func quiet() *vlog.Logger { return vlog.New(io.Discard, 0) }

func readOutput(t *testing.T, fname string) []string {
	t.Helper()
	seqs, err := seq.Readfile(fname)
	if err != nil {
		t.Fatal(err)
	}
	var rows []string
	for _, s := range seqs {
		rows = append(rows, s.GetCmmt()+" "+string(s.GetSeq()))
	}
	return rows
}

// TestThreeGroups: one good group, one with two buffalo genes, one
// naming a yak gene that is not in the proteome. Only the first makes
// it, and the other two are reported for different reasons.
func TestThreeGroups(t *testing.T) {
	proteomes := [3]string{
		">tk1\nMKV\n>tk2\nMQ\n>tk3\nMR\n",
		">bf1\nMKVL\n>bf2a\nMQ\n>bf2b\nMQ\n>bf3\nMR\n",
		">yk1 [Bos mutus]\nMK\n>yk2\nMQ\n",
	}
	table := "# group\tconn\tn\ttakin\tbuffalo\tyak\n" +
		"g1\t1\t3\ttk1\tbf1\tyk1\n" +
		"g2\t1\t4\ttk2\tbf2a,bf2b\tyk2\n" +
		"g3\t1\t3\ttk3\tbf3\tyk3\n"
	c := setup(t, proteomes, table)
	arts := artifact.NewMemory()
	p := pipeline.New(c, pipeline.WithAligner(align.AlignFunc(padAligner)),
		pipeline.WithArtifacts(arts), pipeline.WithLogger(quiet()))
	rep, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.NGroups != 3 || rep.Selected != 2 || rep.Aligned != 1 || rep.Width != 4 {
		t.Fatalf("report %+v", rep)
	}
	if diff := cmp.Diff(map[string]int{"multicopy": 1, "unresolved": 1}, rep.Dropped()); diff != "" {
		t.Fatal(diff)
	}
	if len(rep.Skipped) != 1 || rep.Skipped[0].Group != "g3" || !errors.Is(rep.Skipped[0], ortho.ErrUnresolved) {
		t.Fatal("skipped", rep.Skipped)
	}
	want := []string{"takin MKV-", "buffalo MKVL", "yak MK--"}
	if diff := cmp.Diff(want, readOutput(t, c.Output)); diff != "" {
		t.Fatal(diff)
	}
	keys, _ := arts.List(context.Background(), "")
	wantKeys := []string{"aligned_fastas/group_g1_aligned.fasta", "group_fastas/group_g1.fasta"}
	if diff := cmp.Diff(wantKeys, keys); diff != "" {
		t.Fatal(diff)
	}
}

// TestWidths runs the real aligner code against a stand-in script
// that hands back its input. Groups of width 10 and 15 give 25 columns
// with the first ten from the first group in every row.
func TestWidths(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no shell")
	}
	g1, g2 := strings.Repeat("A", 10), strings.Repeat("W", 15)
	var proteomes [3]string
	for i, tx := range taxa {
		proteomes[i] = fmt.Sprintf(">%s1\n%s\n>%s2\n%s\n", tx[:2], g1, tx[:2], g2)
	}
	table := "1\t1\t3\tta1\tbu1\tya1\n2\t1\t3\tta2\tbu2\tya2\n"
	c := setup(t, proteomes, table)
	script := filepath.Join(t.TempDir(), "mafft")
	if err := os.WriteFile(script, []byte("#!/bin/sh\ncat \"$3\"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	c.Aligner.Command = script
	c.Partitions = filepath.Join(t.TempDir(), "parts.txt")
	rep, err := pipeline.New(c, pipeline.WithLogger(quiet())).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Width != 25 {
		t.Fatal("width", rep.Width)
	}
	for i, row := range readOutput(t, c.Output) {
		if row != taxa[i]+" "+g1+g2 {
			t.Fatal("row", row)
		}
	}
	b, _ := os.ReadFile(c.Partitions)
	if string(b) != "LG, group_1 = 1-10\nLG, group_2 = 11-25\n" {
		t.Fatalf("partitions\n%s", b)
	}
}

// TestAlignerFails: the aligner gives up on one of two groups. The run
// still finishes with only the other group's columns.
func TestAlignerFails(t *testing.T) {
	var proteomes [3]string
	for i, tx := range taxa {
		proteomes[i] = fmt.Sprintf(">%s1\n%s\n>%s2\nMKVLAT\n", tx, strings.Repeat("L", 10), tx)
	}
	table := "1\t1\t3\ttakin1\tbuffalo1\tyak1\n2\t1\t3\ttakin2\tbuffalo2\tyak2\n"
	c := setup(t, proteomes, table)
	c.Ledger = filepath.Join(t.TempDir(), "ledger.db")
	c.MetricsFile = filepath.Join(t.TempDir(), "supermat.prom")
	fails := func(ctx context.Context, in string, out io.Writer) error {
		if strings.HasSuffix(in, "group_2.fasta") {
			return &ortho.GroupError{Kind: ortho.ErrAligner, Msg: "exit status 1", Diag: "out of memory"}
		}
		return padAligner(ctx, in, out)
	}
	ldg, err := ledger.Open(c.Ledger)
	if err != nil {
		t.Fatal(err)
	}
	defer ldg.Close()
	var logBuf bytes.Buffer
	p := pipeline.New(c, pipeline.WithAligner(align.AlignFunc(fails)), pipeline.WithLedger(ldg),
		pipeline.WithLogger(vlog.New(&logBuf, 1)), pipeline.WithRunID("run-c"))
	rep, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Width != 10 || rep.Aligned != 1 {
		t.Fatalf("report %+v", rep)
	}
	if s := rep.Skipped[0]; s.Group != "2" || s.Stage != ortho.StageAlign || s.Diag != "out of memory" {
		t.Fatalf("skipped %+v", s)
	}
	if !strings.Contains(logBuf.String(), "WARN skipping group 2") {
		t.Fatal("log", logBuf.String())
	}

	entries, err := ldg.Entries(context.Background(), "run-c")
	if err != nil {
		t.Fatal(err)
	}
	want := []ledger.Entry{
		{Seq: 1, Group: "1", Status: ledger.Aligned, Width: 10},
		{Seq: 2, Group: "2", Status: ledger.Skipped, Stage: "align", Reason: "aligner", Diag: "out of memory"},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatal(diff)
	}
	run, err := ldg.GetRun(context.Background(), "run-c")
	if err != nil || !run.OK || run.Width != 10 {
		t.Fatal(run, err)
	}

	m := p.Metrics()
	if n := testutil.ToFloat64(m.Groups.WithLabelValues(metrics.OutSkipped)); n != 1 {
		t.Fatal("skipped count", n)
	}
	if b, err := os.ReadFile(c.MetricsFile); err != nil || !bytes.Contains(b, []byte("supermat_width_columns")) {
		t.Fatal("metrics file", err)
	}
}

// TestOrder lets groups finish in a random order and checks the matrix
// follows the table anyway.
func TestOrder(t *testing.T) {
	const ngroup = 20
	var proteomes [3]string
	var table, want strings.Builder
	for i := 0; i < ngroup; i++ {
		res := strings.Repeat(string(rune('A'+i)), 3)
		for k, tx := range taxa {
			proteomes[k] += fmt.Sprintf(">%s_%d\n%s\n", tx, i, res)
		}
		fmt.Fprintf(&table, "%d\t1\t3\ttakin_%d\tbuffalo_%d\tyak_%d\n", i, i, i, i)
		want.WriteString(res)
	}
	c := setup(t, proteomes, table.String())
	c.Workers = 6
	rnd := rand.New(rand.NewSource(3))
	delays := make(map[string]time.Duration)
	for i := 0; i < ngroup; i++ {
		delays[fmt.Sprintf("group_%d.fasta", i)] = time.Duration(rnd.Intn(20)) * time.Millisecond
	}
	slow := func(ctx context.Context, in string, out io.Writer) error {
		time.Sleep(delays[filepath.Base(in)])
		return padAligner(ctx, in, out)
	}
	rep, err := pipeline.New(c, pipeline.WithAligner(align.AlignFunc(slow)), pipeline.WithLogger(quiet())).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Aligned != ngroup {
		t.Fatal("aligned", rep.Aligned)
	}
	for i, row := range readOutput(t, c.Output) {
		if row != taxa[i]+" "+want.String() {
			t.Fatal("row", row)
		}
	}
}

// TestRandom runs a generated data set with missing and multi copy
// members through the whole pipeline.
func TestRandom(t *testing.T) {
	args := randseq.Args{Iseed: 99, Dir: t.TempDir(), Taxa: taxa, NGroup: 60, Len: 50,
		PMiss: 0.05, PMulti: 0.05, PMut: 0.1, NExtra: 10, White: true}
	ds, err := randseq.Orthologs(&args)
	if err != nil {
		t.Fatal(err)
	}
	c := config.Default()
	for i, tx := range taxa {
		c.Taxa = append(c.Taxa, config.Taxon{Name: tx, Proteome: ds.Proteomes[i]})
	}
	c.Table = ds.Table
	c.Output = filepath.Join(args.Dir, "supermatrix.fasta")
	c.Artifacts.Driver = "memory"
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	rep, err := pipeline.New(c, pipeline.WithAligner(align.AlignFunc(padAligner)), pipeline.WithLogger(quiet())).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Aligned != ds.NCore || rep.Selected != ds.NCore || len(rep.Skipped) != 0 {
		t.Fatalf("report %+v, core groups %d", rep, ds.NCore)
	}
	rows, err := seq.Readfile(c.Output)
	if err != nil || len(rows) != len(taxa) {
		t.Fatal("rows", len(rows), err)
	}
	for _, r := range rows {
		if r.Len() != rep.Width {
			t.Fatal("ragged supermatrix", r.GetCmmt(), r.Len())
		}
	}
}

// TestNothingAligned checks a run where every group fails writes no
// matrix and says so.
func TestNothingAligned(t *testing.T) {
	c := setup(t, [3]string{">a\nMK\n", ">b\nMK\n", ">c\nMK\n"}, "1\t1\t3\ta\tb\tc\n")
	fail := func(context.Context, string, io.Writer) error {
		return &ortho.GroupError{Kind: ortho.ErrTimeout}
	}
	rep, err := pipeline.New(c, pipeline.WithAligner(align.AlignFunc(fail)), pipeline.WithLogger(quiet())).Run(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if rep.Dropped()["timeout"] != 1 {
		t.Fatal("report", rep.Dropped())
	}
	if _, err := os.Stat(c.Output); err == nil {
		t.Fatal("output written")
	}
}

func TestCancel(t *testing.T) {
	c := setup(t, [3]string{">a\nMK\n", ">b\nMK\n", ">c\nMK\n"}, "1\t1\t3\ta\tb\tc\n2\t1\t3\ta\tb\tc\n")
	ctx, cancel := context.WithCancel(context.Background())
	stop := func(ctx context.Context, in string, out io.Writer) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}
	_, err := pipeline.New(c, pipeline.WithAligner(align.AlignFunc(stop)), pipeline.WithLogger(quiet())).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatal("wanted context.Canceled, got", err)
	}
}

// TestRagged has an aligner hand back one group with rows of different
// lengths. The run stops with ErrIntegrity and writes no matrix.
func TestRagged(t *testing.T) {
	proteomes := [3]string{">t1\nMKVL\n>t2\nMK\n", ">b1\nMKVL\n>b2\nMKVL\n", ">y1\nMKVL\n>y2\nMK\n"}
	c := setup(t, proteomes, "g1\t1\t3\tt1\tb1\ty1\ng2\t1\t3\tt2\tb2\ty2\n")
	c.Partitions = filepath.Join(t.TempDir(), "parts.txt")
	sloppy := func(ctx context.Context, in string, out io.Writer) error {
		if filepath.Base(in) == "group_g2.fasta" {
			b, err := os.ReadFile(in)
			out.Write(b)
			return err
		}
		return padAligner(ctx, in, out)
	}
	_, err := pipeline.New(c, pipeline.WithAligner(align.AlignFunc(sloppy)), pipeline.WithLogger(quiet())).Run(context.Background())
	if !errors.Is(err, ortho.ErrIntegrity) {
		t.Fatal("wanted ErrIntegrity, got", err)
	}
	for _, fname := range []string{c.Output, c.Partitions} {
		if _, err := os.Stat(fname); err == nil {
			t.Fatal("written after integrity failure", fname)
		}
	}
}

// TestScratchDir checks that group ids never pick the directories the
// run writes into or removes.
func TestScratchDir(t *testing.T) {
	sandbox := t.TempDir()
	keepme := filepath.Join(sandbox, "keepme.txt")
	if err := os.WriteFile(keepme, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	proteomes := [3]string{">a\nMK\n", ">b\nMK\n", ">c\nMK\n"}
	bad := setup(t, proteomes, "..\t1\t3\ta\tb\tc\n")
	good := setup(t, proteomes, "g1\t1\t3\ta\tb\tc\ng2\t1\t3\ta\tb\tc\n")
	t.Setenv("TMPDIR", sandbox)

	_, err := pipeline.New(bad, pipeline.WithAligner(align.AlignFunc(padAligner)), pipeline.WithLogger(quiet())).Run(context.Background())
	if !errors.Is(err, ortho.ErrMalformedRow) {
		t.Fatal("wanted ErrMalformedRow, got", err)
	}
	if _, err := os.Stat(keepme); err != nil {
		t.Fatal("file next to the scratch space went", err)
	}

	var mu sync.Mutex
	var dirs []string
	record := func(ctx context.Context, in string, out io.Writer) error {
		mu.Lock()
		dirs = append(dirs, filepath.Dir(in))
		mu.Unlock()
		return padAligner(ctx, in, out)
	}
	rep, err := pipeline.New(good, pipeline.WithAligner(align.AlignFunc(record)), pipeline.WithLogger(quiet())).Run(context.Background())
	if err != nil || rep.Aligned != 2 {
		t.Fatal(rep, err)
	}
	if len(dirs) != 2 || dirs[0] == dirs[1] {
		t.Fatal("groups shared a directory", dirs)
	}
	for _, d := range dirs {
		if !strings.HasPrefix(filepath.Base(d), "group-") || !strings.HasPrefix(d, sandbox) {
			t.Fatal("scratch directory", d)
		}
	}
	left, err := os.ReadDir(sandbox)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 || left[0].Name() != "keepme.txt" {
		t.Fatal("scratch left behind", left)
	}
}

func TestBadTable(t *testing.T) {
	c := setup(t, [3]string{">a\nMK\n", ">b\nMK\n", ">c\nMK\n"}, "1\t1\t3\ta\tb\n")
	_, err := pipeline.New(c, pipeline.WithAligner(align.AlignFunc(padAligner)), pipeline.WithLogger(quiet())).Run(context.Background())
	if !errors.Is(err, ortho.ErrMalformedRow) {
		t.Fatal("wanted ErrMalformedRow, got", err)
	}
}
