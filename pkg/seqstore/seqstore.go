// 3 Oct 2026

// Package seqstore holds one taxon's proteome as a map from sequence
// identifier to sequence. A store is built once and only read after
// that, so it can be shared by any number of goroutines.
package seqstore

import (
	"errors"
	"fmt"
	"io"

	"github.com/andrew-torda/supermat/pkg/seq"
)

// DupPolicy says what to do when an identifier turns up twice.
type DupPolicy byte

const (
	LastWins DupPolicy = iota // later record replaces the earlier one
	DupError                  // refuse to load
)

// ParseDupPolicy turns "last" or "error" into a DupPolicy.
func ParseDupPolicy(s string) (DupPolicy, error) {
	switch s {
	case "", "last":
		return LastWins, nil
	case "error":
		return DupError, nil
	}
	return LastWins, fmt.Errorf("unknown duplicate id policy %q, want last or error", s)
}

// ErrDupID is returned under DupError when an identifier repeats.
var ErrDupID = errors.New("duplicate sequence id")

// Options are the choices a caller can make when loading.
type Options struct {
	Dups DupPolicy
}

// Store is one taxon's id -> sequence lookup.
type Store struct {
	taxon string
	seqs  map[string]seq.Seq
	nDup  int         // how many records replaced an earlier one
	nMt   int         // records with no residues, not stored
	stype seq.SeqType // best guess at what we were given
}

// FromSeqs builds a store from records already in memory. Records are
// keyed on the first word of their comment. Records without residues
// are not stored, so asking for them later gives "absent".
func FromSeqs(taxon string, seqs []seq.Seq, opts Options) (*Store, error) {
	s := &Store{taxon: taxon, seqs: make(map[string]seq.Seq, len(seqs))}
	for _, ss := range seqs {
		if ss.Empty() {
			s.nMt++
			continue
		}
		id := ss.ID()
		if _, dup := s.seqs[id]; dup {
			if opts.Dups == DupError {
				return nil, fmt.Errorf("taxon %s id %q: %w", taxon, id, ErrDupID)
			}
			s.nDup++
		}
		s.seqs[id] = ss
	}
	s.stype = seq.GetType(seqs)
	return s, nil
}

// Load reads fasta records from rdr.
func Load(taxon string, rdr io.Reader, opts Options) (*Store, error) {
	seqs, err := seq.Read(rdr)
	if err != nil {
		return nil, fmt.Errorf("taxon %s: %w", taxon, err)
	}
	return FromSeqs(taxon, seqs, opts)
}

// LoadFile reads a proteome from a file. Plain files are memory mapped.
func LoadFile(taxon, fname string, opts Options) (*Store, error) {
	seqs, err := seq.Readfile(fname)
	if err != nil {
		return nil, fmt.Errorf("taxon %s: %w", taxon, err)
	}
	return FromSeqs(taxon, seqs, opts)
}

// Lookup returns the sequence stored under id.
func (s *Store) Lookup(id string) (seq.Seq, bool) {
	ss, ok := s.seqs[id]
	return ss, ok
}

func (s *Store) Taxon() string     { return s.taxon }
func (s *Store) Len() int          { return len(s.seqs) }
func (s *Store) NDup() int         { return s.nDup }
func (s *Store) NEmpty() int       { return s.nMt }
func (s *Store) Type() seq.SeqType { return s.stype }
