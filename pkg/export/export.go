// 6 Oct 2026

// Package export turns a selected ortholog group into a bundle of
// sequences, one per taxon, ready to be handed to an aligner.
package export

import (
	"fmt"
	"io"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"github.com/andrew-torda/supermat/pkg/ortho"
	"github.com/andrew-torda/supermat/pkg/seq"
	"github.com/andrew-torda/supermat/pkg/seq/common"
	"github.com/andrew-torda/supermat/pkg/seqstore"
)

// Bundle is one group's sequences in taxon order. Each sequence's
// comment is its label.
type Bundle struct {
	Group string
	Taxa  []string
	Seqs  []seq.Seq
}

// Label is the name a taxon's sequence carries through the aligner.
// The aligner may reorder records, so this is how we find them again.
func Label(group, taxon string) string { return group + common.LabelSep + taxon }

// FileName is where a group's unaligned bundle goes.
func FileName(group string) string { return "group_" + group + ".fasta" }

// AlignedName is where a group's aligned bundle goes.
func AlignedName(group string) string { return "group_" + group + "_aligned.fasta" }

// Resolve looks up each member of g in the store for its taxon. stores
// must be in the same taxon order as g.Members. The first member that
// cannot be found stops the group with ErrUnresolved.
func Resolve(g ortho.Group, stores []*seqstore.Store) (Bundle, error) {
	if len(g.Members) != len(stores) {
		return Bundle{}, ortho.GroupErrf(g.ID, ortho.StageExport, ortho.ErrUnresolved,
			"%d members for %d taxa", len(g.Members), len(stores))
	}
	b := Bundle{
		Group: g.ID,
		Taxa:  make([]string, len(stores)),
		Seqs:  make([]seq.Seq, len(stores)),
	}
	for i, st := range stores {
		id := g.Members[i]
		ss, ok := st.Lookup(id)
		if !ok {
			return Bundle{}, ortho.GroupErrf(g.ID, ortho.StageExport, ortho.ErrUnresolved,
				"%q not found for %s", id, st.Taxon())
		}
		b.Taxa[i] = st.Taxon()
		b.Seqs[i] = seq.New(Label(g.ID, st.Taxon()), ss.GetSeq())
	}
	return b, nil
}

// WriteBundle writes b in fasta format, width residues per line. A
// width of zero or less puts each sequence on one line.
func WriteBundle(w io.Writer, b Bundle, width int) error {
	if width <= 0 {
		for _, ss := range b.Seqs {
			width = max(width, ss.Len())
		}
		width = max(width, 1)
	}
	fw := fasta.NewWriter(w, width)
	for _, ss := range b.Seqs {
		ls := linear.NewSeq(ss.GetCmmt(), alphabet.BytesToLetters(ss.GetSeq()), alphabet.Protein)
		if _, err := fw.Write(ls); err != nil {
			return fmt.Errorf("group %s writing %s: %w", b.Group, ss.GetCmmt(), err)
		}
	}
	return nil
}
