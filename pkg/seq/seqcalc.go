// 6 Apr 2020
// seqcalc does simple, common calculations on a set of sequences.

package seq

import (
	. "github.com/andrew-torda/supermat/pkg/seq/common"
)

// SymUsed says which symbols occur anywhere in seqs. Lower case is
// folded to upper case. Symbols above MaxSym are ignored.
func SymUsed(seqs []Seq) (used [MaxSym]bool) {
	for _, ss := range seqs {
		for _, c := range ss.seq {
			if c >= MaxSym {
				continue
			}
			if 'a' <= c && c <= 'z' {
				c -= 'a' - 'A'
			}
			used[c] = true
		}
	}
	used[GapChar] = false
	return used
}

// GetType looks at a set of sequences and returns its best guess
// as to the type of file.
func GetType(seqs []Seq) SeqType {
	if len(seqs) == 0 {
		return Unchecked
	}
	used := SymUsed(seqs)
	protType := []byte{
		'D', 'E', 'F', 'H', 'I', 'K', 'L', 'M',
		'P', 'Q', 'R', 'S', 'V', 'W', 'Y'}

	for _, c := range protType { // If we see an amino acid code,
		if used[c] { //          just return protein type.
			return Protein
		}
	}

	if used['T'] && used['U'] {
		return Ntide
	}
	// If we have ACG, but neither T or U, it is a nucleotide
	// but we cannot tell if it is RNA or DNA
	if used['A'] && used['C'] && used['G'] && !used['T'] && !used['U'] {
		return Ntide
	}
	if used['T'] {
		return DNA
	}
	if used['U'] {
		return RNA
	}

	return Unknown
}
