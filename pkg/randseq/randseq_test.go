// 31 July 2020

package randseq_test

import (
	"testing"

	"github.com/andrew-torda/supermat/pkg/ortho"
	"github.com/andrew-torda/supermat/pkg/randseq"
	"github.com/andrew-torda/supermat/pkg/seq/common"
	"github.com/andrew-torda/supermat/pkg/seqstore"
)

// TestOrthologs writes a messy data set and reads it back with the
// same code the pipeline uses.
func TestOrthologs(t *testing.T) {
	args := randseq.Args{
		Iseed:  1637,
		Dir:    t.TempDir(),
		Taxa:   []string{"takin", "buffalo", "yak"},
		NGroup: 40,
		Len:    120,
		PMiss:  0.1,
		PMulti: 0.1,
		PMut:   0.2,
		NExtra: 5,
		White:  true,
	}
	ds, err := randseq.Orthologs(&args)
	if err != nil {
		t.Fatal(err)
	}
	if ds.NCore == 0 || ds.NCore == args.NGroup {
		t.Fatal("no variety, core groups", ds.NCore)
	}
	groups, err := ortho.ParseFile(ds.Table, len(args.Taxa))
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != args.NGroup {
		t.Fatal("groups in table", len(groups))
	}
	kept, _ := ortho.NewFilter(common.DfltMissing, common.MultiSep).Select(groups)
	if len(kept) != ds.NCore {
		t.Fatalf("filter kept %d, generator says %d", len(kept), ds.NCore)
	}
	for i, fname := range ds.Proteomes {
		st, err := seqstore.LoadFile(args.Taxa[i], fname, seqstore.Options{Dups: seqstore.DupError})
		if err != nil {
			t.Fatal(err)
		}
		if st.Len() < args.NExtra || st.NEmpty() != 0 {
			t.Fatal("proteome", fname, st.Len())
		}
		for _, g := range kept {
			s, ok := st.Lookup(g.Members[i])
			if !ok {
				t.Fatal("table names a missing gene", g.Members[i])
			}
			if n := s.Len(); n < args.Len-3 || n > args.Len {
				t.Fatal("length", n)
			}
		}
	}
}

func TestSameSeed(t *testing.T) {
	run := func() randseq.DataSet {
		args := randseq.Args{Iseed: 3, Dir: t.TempDir(), Taxa: []string{"a", "b"}, NGroup: 50, Len: 10, PMiss: 0.3}
		ds, err := randseq.Orthologs(&args)
		if err != nil {
			t.Fatal(err)
		}
		return ds
	}
	if a, b := run(), run(); a.NCore != b.NCore {
		t.Fatal("same seed gave", a.NCore, b.NCore)
	}
}

func TestBadArgs(t *testing.T) {
	bad := []randseq.Args{
		{Dir: t.TempDir(), NGroup: 1, Len: 5},
		{Dir: t.TempDir(), Taxa: []string{"a"}, NGroup: 1},
		{Dir: t.TempDir(), Taxa: []string{"a"}, NGroup: 1, Len: 5, PMiss: 2},
	}
	for i := range bad {
		if _, err := randseq.Orthologs(&bad[i]); err == nil {
			t.Fatal("no error for", bad[i])
		}
	}
}
