package align

import (
	"io"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"github.com/andrew-torda/supermat/pkg/ortho"
	"github.com/andrew-torda/supermat/pkg/seq"
	"github.com/andrew-torda/supermat/pkg/seq/common"
)

// Aligned is one group's alignment with rows in taxon order. Width is
// the length of the first row. Parse does not insist the others agree.
type Aligned struct {
	Group string
	Rows  []seq.Seq // comment is the taxon name
	Width int
}

// Ragged says whether the rows differ in length, which a real
// alignment never does.
func (a Aligned) Ragged() bool {
	for _, r := range a.Rows {
		if r.Len() != a.Width {
			return true
		}
	}
	return false
}

// Parse reads an aligned bundle and finds each taxon's row by the
// suffix of its label. Record order in the file does not matter.
// Records that match no taxon are ignored. A taxon with no record
// gives ErrLabelMissing, one with several gives ErrLabelDup and an
// alignment with no columns gives ErrWidth. Rows of different lengths
// are handed back as they are. Catching them is the assembler's job.
func Parse(rdr io.Reader, group string, taxa []string) (Aligned, error) {
	if len(taxa) == 0 {
		return Aligned{}, ortho.GroupErrf(group, ortho.StageParse, ortho.ErrLabelMissing, "no taxa to look for")
	}
	byTaxon := make(map[string][]byte, len(taxa))
	nMatch := make(map[string]int, len(taxa))
	r := fasta.NewReader(rdr, linear.NewSeq("", nil, alphabet.Protein))
	sc := seqio.NewScanner(r)
	for sc.Next() {
		s := sc.Seq().(*linear.Seq)
		taxon, ok := taxonOf(s.Name(), taxa)
		if !ok {
			continue
		}
		nMatch[taxon]++
		byTaxon[taxon] = alphabet.LettersToBytes(s.Seq)
	}
	if err := sc.Error(); err != nil {
		return Aligned{}, ortho.GroupErrf(group, ortho.StageParse, ortho.ErrAligner,
			"unreadable alignment: %v", err)
	}

	a := Aligned{Group: group, Rows: make([]seq.Seq, len(taxa))}
	for i, taxon := range taxa {
		switch nMatch[taxon] {
		case 0:
			return Aligned{}, ortho.GroupErrf(group, ortho.StageParse, ortho.ErrLabelMissing, "no record for %s", taxon)
		case 1:
		default:
			return Aligned{}, ortho.GroupErrf(group, ortho.StageParse, ortho.ErrLabelDup,
				"%d records for %s", nMatch[taxon], taxon)
		}
		row := seq.New(taxon, byTaxon[taxon])
		if err := row.Upper(); err != nil {
			return Aligned{}, ortho.GroupErrf(group, ortho.StageParse, ortho.ErrAligner, "%v", err)
		}
		a.Rows[i] = row
	}
	a.Width = a.Rows[0].Len()
	if a.Width == 0 {
		return Aligned{}, ortho.GroupErrf(group, ortho.StageParse, ortho.ErrWidth, "every row is empty")
	}
	return a, nil
}

// taxonOf says which taxon a label belongs to. Labels are group and
// taxon joined by the separator and the taxon names are known not to
// be suffixes of one another, so at most one can match.
func taxonOf(label string, taxa []string) (string, bool) {
	for _, t := range taxa {
		if strings.HasSuffix(label, common.LabelSep+t) {
			return t, true
		}
	}
	return "", false
}
