// 8 Oct 2026

// Package concat joins per group alignments end to end into one
// supermatrix row per taxon.
//
// Groups must be added in one fixed order. Column k of every row then
// comes from the same group and the same alignment column.
package concat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/andrew-torda/matrix"

	"github.com/andrew-torda/supermat/pkg/align"
	"github.com/andrew-torda/supermat/pkg/ortho"
	"github.com/andrew-torda/supermat/pkg/seq"
)

// ErrNoGroups is returned by Build when nothing was added.
var ErrNoGroups = errors.New("no aligned groups to concatenate")

// Part is the slice of columns one group contributes. Start is
// counted from zero, End is one past the last column.
type Part struct {
	Group      string
	Start, End int
}

// Assembler collects aligned groups. It is not safe for concurrent
// use. The caller feeds it in the global order.
type Assembler struct {
	taxa  []string
	rows  [][]byte
	parts []Part
	occ   [][]float32 // per part, per taxon fraction of residues
	bad   string      // first group whose rows differed in length
}

// NewAssembler starts an empty supermatrix for taxa in this order.
func NewAssembler(taxa []string) *Assembler {
	return &Assembler{taxa: slices.Clone(taxa), rows: make([][]byte, len(taxa))}
}

// Add appends one group's columns. The rows of a must be in the
// assembler's taxon order. Rows of unequal length are taken and
// remembered, so Build can refuse the whole matrix.
func (a *Assembler) Add(al align.Aligned) error {
	if len(al.Rows) != len(a.taxa) {
		return fmt.Errorf("group %s has %d rows for %d taxa", al.Group, len(al.Rows), len(a.taxa))
	}
	for i, r := range al.Rows {
		if r.GetCmmt() != a.taxa[i] {
			return fmt.Errorf("group %s row %d is %q, expected %q", al.Group, i, r.GetCmmt(), a.taxa[i])
		}
	}
	if al.Ragged() && a.bad == "" {
		a.bad = raggedMsg(al)
	}
	start := len(a.rows[0])
	occ := make([]float32, len(a.taxa))
	for i, r := range al.Rows {
		a.rows[i] = append(a.rows[i], r.GetSeq()...)
		occ[i] = 1 - r.GapFrac()
	}
	a.parts = append(a.parts, Part{Group: al.Group, Start: start, End: start + al.Rows[0].Len()})
	a.occ = append(a.occ, occ)
	return nil
}

// raggedMsg says which rows of a group disagree with the first.
func raggedMsg(al align.Aligned) string {
	r0 := al.Rows[0]
	for _, r := range al.Rows[1:] {
		if r.Len() != r0.Len() {
			return fmt.Sprintf("group %s: %s has %d columns, %s has %d",
				al.Group, r0.GetCmmt(), r0.Len(), r.GetCmmt(), r.Len())
		}
	}
	return "group " + al.Group
}

// NGroups is how many groups have been added.
func (a *Assembler) NGroups() int { return len(a.parts) }

// Supermatrix is the finished product.
type Supermatrix struct {
	Taxa  []string
	Rows  []seq.Seq // one per taxon, comment is the taxon name
	Parts []Part
	Occ   *matrix.FMatrix2d // [group][taxon] fraction of non-gap positions
}

// Build checks every group and every row has the same length and hands
// back the matrix. Unequal lengths mean some group's alignment was not
// really an alignment. That is ErrIntegrity and nothing should be
// written.
func (a *Assembler) Build() (*Supermatrix, error) {
	if len(a.parts) == 0 {
		return nil, ErrNoGroups
	}
	if a.bad != "" {
		return nil, fmt.Errorf("%w: %s", ortho.ErrIntegrity, a.bad)
	}
	width := len(a.rows[0])
	for i, r := range a.rows {
		if len(r) != width {
			return nil, fmt.Errorf("%w: %s has %d columns, %s has %d",
				ortho.ErrIntegrity, a.taxa[0], width, a.taxa[i], len(r))
		}
	}
	if last := a.parts[len(a.parts)-1]; last.End != width {
		return nil, fmt.Errorf("%w: partitions end at %d, rows have %d columns", ortho.ErrIntegrity, last.End, width)
	}
	m := &Supermatrix{
		Taxa:  slices.Clone(a.taxa),
		Rows:  make([]seq.Seq, len(a.taxa)),
		Parts: slices.Clone(a.parts),
		Occ:   matrix.NewFMatrix2d(len(a.parts), len(a.taxa)),
	}
	for i, t := range a.taxa {
		m.Rows[i] = seq.New(t, slices.Clone(a.rows[i]))
	}
	for i, o := range a.occ {
		copy(m.Occ.Mat[i], o)
	}
	return m, nil
}

// Width is the number of columns.
func (m *Supermatrix) Width() int { return m.Rows[0].Len() }

// Write writes the matrix as fasta, one record per taxon, through a
// temporary file. An empty name means stdout.
func (m *Supermatrix) Write(fname string, width int) error {
	return seq.WriteToF(fname, m.Rows, width)
}

// WritePartitions writes a RAxML style partition file, one line per
// group with 1-based inclusive columns.
func (m *Supermatrix) WritePartitions(w io.Writer, model string) error {
	for _, p := range m.Parts {
		if _, err := fmt.Fprintf(w, "%s, group_%s = %d-%d\n", model, p.Group, p.Start+1, p.End); err != nil {
			return err
		}
	}
	return nil
}

// WriteOccupancy writes a tab separated table with one row per group
// and one column per taxon giving the fraction of the taxon's aligned
// positions that are residues rather than gaps.
func (m *Supermatrix) WriteOccupancy(w io.Writer) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("group")
	for _, t := range m.Taxa {
		fmt.Fprintf(bw, "\t%s", t)
	}
	bw.WriteByte('\n')
	for i, p := range m.Parts {
		bw.WriteString(p.Group)
		for _, f := range m.Occ.Mat[i] {
			fmt.Fprintf(bw, "\t%.2f", f)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
