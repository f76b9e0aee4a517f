// 20 Dec 2017

// Package seq provides functions for sequences,
// which usually begin their lives in fasta format. It can
// read and write them.
//
// A Seq owns its bytes. Readers copy out of whatever they were given,
// so a Seq stays valid after a mapped file has been unmapped.
package seq

import (
	"fmt"
	"io"
	"os"
	"strings"

	. "github.com/andrew-torda/supermat/pkg/seq/common"
)

// Seq is one fasta record. cmmt is the comment without the leading ">".
type Seq struct {
	cmmt string
	seq  []byte
}

// A marker to say what type of sequence we have, protein, DNA, ...
type SeqType byte

const (
	Unchecked SeqType = iota // Has not been looked at yet
	Unknown                  // Really unknown, not a protein or nucleotide
	Protein                  //
	DNA                      //
	RNA                      //
	Ntide                    // Nucleotide
)

func (t SeqType) String() string {
	switch t {
	case Protein:
		return "protein"
	case DNA:
		return "DNA"
	case RNA:
		return "RNA"
	case Ntide:
		return "nucleotide"
	case Unknown:
		return "unknown"
	}
	return "unchecked"
}

// We only read ascii characters, so anything bigger than this is not
// valid.
const (
	MaxSym uint8 = 127
)

// New makes a sequence from a comment and residues. The residues are
// not copied.
func New(cmmt string, s []byte) Seq { return Seq{cmmt: cmmt, seq: s} }

// Function GetSeq returns the sequence as the original byte slice
func (s Seq) GetSeq() []byte { return s.seq }

// Function GetCmmt returns the comment, without the leading ">"
func (s Seq) GetCmmt() string { return s.cmmt }

// Function Len
func (s Seq) Len() int { return len(s.seq) }

// SetSeq will replace whatever was the sequence with a new one
func (s *Seq) SetSeq(t []byte) { s.seq = t }

// Empty returns true if a sequence has no residues.
func (s Seq) Empty() bool { return len(s.seq) == 0 }

// ID returns the identifier for a sequence.
// Of course it does not really know. It just returns the first
// word in the comment which is what every tool we feed uses as the key.
func (s Seq) ID() string {
	tmp := strings.Fields(s.cmmt)
	if len(tmp) == 0 {
		return ""
	}
	return tmp[0]
}

// trimStr trims a string to n bytes if it is longer
func trimStr(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Upper changes a sequence to upper case, in place.
// It only works with bytes, not runes.
// It can return an error if it encounters a symbol it does
// not like (value higher than 128).
func (s *Seq) Upper() error {
	const diff = 'a' - 'A'
	const symerr = "bad sym \"%c\" at position %d starting \"%s\""
	b := s.seq
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c >= MaxSym {
			return fmt.Errorf(symerr, c, i, trimStr(s.cmmt, 40))
		}
		if 'a' <= c && c <= 'z' {
			b[i] -= diff
		}
	}
	return nil
}

// GapFrac returns the fraction of positions which are gaps.
// An empty sequence has no gaps.
func (s Seq) GapFrac() float32 {
	if len(s.seq) == 0 {
		return 0
	}
	n := 0
	for _, c := range s.seq {
		if c == GapChar {
			n++
		}
	}
	return float32(n) / float32(len(s.seq))
}

// String returns a sequence, with its comment at the start as
// a single string
func (s Seq) String() string {
	return fmt.Sprintf("%c%s\n%s", CmmtChar, s.cmmt, s.seq)
}

// Write writes sequences in fasta format with width residues per line.
// A width of zero or less puts each sequence on one line.
// Empty sequences are skipped.
func Write(w io.Writer, seqs []Seq, width int) error {
	for _, ss := range seqs {
		if ss.Empty() {
			continue
		}
		if _, err := fmt.Fprintf(w, "%c%s\n", CmmtChar, ss.cmmt); err != nil {
			return err
		}
		s := ss.seq
		if width > 0 {
			for ; len(s) > width; s = s[width:] {
				if _, err := fmt.Fprintf(w, "%s\n", s[:width]); err != nil {
					return err
				}
			}
		}
		if _, err := fmt.Fprintf(w, "%s\n", s); err != nil {
			return err
		}
	}
	return nil
}

// WriteToF takes a filename and a slice of sequences.
// It writes the sequences to the file. An empty filename means stdout.
// The file is written under a temporary name and renamed, so a reader
// never sees half a matrix.
func WriteToF(outseq_fname string, seq_set []Seq, width int) (err error) {
	if outseq_fname == "" {
		return Write(os.Stdout, seq_set, width)
	}
	tmp := outseq_fname + ".part"
	fp, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating output sequence file: %w", err)
	}
	if err = Write(fp, seq_set, width); err != nil {
		fp.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", outseq_fname, err)
	}
	if err = fp.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", outseq_fname, err)
	}
	return os.Rename(tmp, outseq_fname)
}
