package seqstore_test

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/andrew-torda/supermat/brokenio"
	"github.com/andrew-torda/supermat/pkg/seq"
	"github.com/andrew-torda/supermat/pkg/seq/common"
	"github.com/andrew-torda/supermat/pkg/seqstore"
)

const proteome = `>p1 kinase [Budorcas taxicolor]
MKVLA
AQ
>p2
MQQ
>p3 nothing follows
>p4
MRR
`

func TestLoad(t *testing.T) {
	st, err := seqstore.Load("takin", strings.NewReader(proteome), seqstore.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if st.Taxon() != "takin" || st.Len() != 3 {
		t.Fatal("taxon", st.Taxon(), "len", st.Len())
	}
	if s, ok := st.Lookup("p1"); !ok || string(s.GetSeq()) != "MKVLAAQ" {
		t.Fatal("p1 lookup got", s, ok)
	}
	if _, ok := st.Lookup("p3"); ok {
		t.Fatal("record without residues should be absent")
	}
	if _, ok := st.Lookup("kinase"); ok {
		t.Fatal("description words are not ids")
	}
	if st.NEmpty() != 1 {
		t.Fatal("NEmpty got", st.NEmpty())
	}
	if st.Type() != seq.Protein {
		t.Fatal("type got", st.Type())
	}
}

// TestLastWins is two records sharing one identifier. The later one
// is kept.
func TestLastWins(t *testing.T) {
	const s = ">dup first\nAAAA\n>other\nCCCC\n>dup second\nMMMM\n"
	st, err := seqstore.Load("yak", strings.NewReader(s), seqstore.Options{})
	if err != nil {
		t.Fatal(err)
	}
	got, ok := st.Lookup("dup")
	if !ok || string(got.GetSeq()) != "MMMM" {
		t.Fatal("wanted the later record, got", got)
	}
	if st.NDup() != 1 || st.Len() != 2 {
		t.Fatal("ndup", st.NDup(), "len", st.Len())
	}

	_, err = seqstore.Load("yak", strings.NewReader(s), seqstore.Options{Dups: seqstore.DupError})
	if !errors.Is(err, seqstore.ErrDupID) {
		t.Fatal("wanted ErrDupID, got", err)
	}
}

func TestParseDupPolicy(t *testing.T) {
	for in, want := range map[string]seqstore.DupPolicy{"": seqstore.LastWins, "last": seqstore.LastWins, "error": seqstore.DupError} {
		if got, err := seqstore.ParseDupPolicy(in); err != nil || got != want {
			t.Fatal(in, got, err)
		}
	}
	if _, err := seqstore.ParseDupPolicy("first"); err == nil {
		t.Fatal("first is not a policy")
	}
}

func TestLoadFile(t *testing.T) {
	fname, err := common.WrtTemp(proteome)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(fname)
	st, err := seqstore.LoadFile("buffalo", fname, seqstore.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := st.Lookup("p4"); !ok || string(s.GetSeq()) != "MRR" {
		t.Fatal("p4 got", s)
	}
	if _, err := seqstore.LoadFile("buffalo", fname+".missing", seqstore.Options{}); err == nil {
		t.Fatal("missing file should fail")
	}
}

// TestBrokenRead makes sure a failing reader stops the load rather than
// giving a short proteome.
func TestBrokenRead(t *testing.T) {
	rdr := brokenio.NewReader(io.NopCloser(strings.NewReader(proteome)))
	rdr.SetProbFail(1)
	if _, err := seqstore.Load("takin", rdr, seqstore.Options{}); err == nil {
		t.Fatal("expected an error from a broken reader")
	}
}
