// Reader for fasta format files.

package seq

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"

	. "github.com/andrew-torda/supermat/pkg/seq/common"
	"github.com/andrew-torda/supermat/pkg/zwrap"
)

const NL = '\n'

// ErrNoSeqs is returned when input contains no fasta records at all.
var ErrNoSeqs = errors.New("no sequences found")

// The lexer walks over a byte slice. Nothing in the slice is ever
// written to, since it may be a read-only mapping of a file.
type lexer struct {
	input []byte // what is left to read
	seqs  []Seq
	cmmt  string // comment of the record we are in
	nline int    // lines consumed, for error messages
	err   error
}

type stateFn func(*lexer) stateFn

// gstart jumps to the first comment. Anything but white space before
// it is an error.
func gstart(l *lexer) stateFn {
	ndx := bytes.IndexByte(l.input, CmmtChar)
	if ndx == -1 {
		if len(bytes.TrimSpace(l.input)) != 0 {
			l.err = errors.New("no fasta comment line found")
		}
		return nil
	}
	if ndx > 0 && len(bytes.TrimSpace(l.input[:ndx])) != 0 {
		l.err = fmt.Errorf("text before first fasta comment: %q", trimStr(string(l.input[:ndx]), 40))
		return nil
	}
	l.nline += bytes.Count(l.input[:ndx], []byte{NL})
	l.input = l.input[ndx+1:]
	return gcmmt
}

// gcmmt reads a comment. It runs to the end of the line.
func gcmmt(l *lexer) stateFn {
	var line []byte
	if ndx := bytes.IndexByte(l.input, NL); ndx == -1 {
		line, l.input = l.input, nil
	} else {
		line, l.input = l.input[:ndx], l.input[ndx+1:]
	}
	l.nline++
	l.cmmt = string(bytes.TrimRight(line, " \t\r"))
	return gseq
}

// gseq reads residues until a comment character at the start of a line,
// or the end of input.
func gseq(l *lexer) stateFn {
	var body []byte
	next := gcmmt
	if len(l.input) > 0 && l.input[0] == CmmtChar { // comment straight after comment
		l.input = l.input[1:]
		l.seqs = append(l.seqs, Seq{cmmt: l.cmmt})
		return gcmmt
	}
	if ndx := bytes.Index(l.input, []byte{NL, CmmtChar}); ndx == -1 {
		body, l.input = l.input, nil
		next = nil
	} else {
		body, l.input = l.input[:ndx], l.input[ndx+2:]
	}
	l.nline += bytes.Count(body, []byte{NL}) + 1
	l.seqs = append(l.seqs, Seq{cmmt: l.cmmt, seq: removeWhite(body)})
	return next
}

// removeWhite returns a copy of s without white space.
func removeWhite(s []byte) []byte {
	var asciiSpace = [256]bool{
		'\t': true, '\n': true, '\v': true, '\f': true, '\r': true, ' ': true,
	}
	t := make([]byte, 0, len(s))
	for _, c := range s {
		if !asciiSpace[c] {
			t = append(t, c)
		}
	}
	return t
}

// ReadFasta parses fasta formatted bytes. Records with no residues are
// returned as empty sequences and the caller can decide what they mean.
func ReadFasta(b []byte) ([]Seq, error) {
	l := lexer{input: b}
	for state := gstart; state != nil; {
		state = state(&l)
	}
	if l.err != nil {
		return nil, l.err
	}
	if len(l.seqs) == 0 {
		return nil, ErrNoSeqs
	}
	return l.seqs, nil
}

// Read reads everything from rdr and parses it.
func Read(rdr io.Reader) ([]Seq, error) {
	b, err := io.ReadAll(bufio.NewReader(rdr))
	if err != nil {
		return nil, err
	}
	return ReadFasta(b)
}

// Readfile takes a filename and reads sequences from it.
// Plain files are mapped rather than read, since proteomes can be big
// and we only look at them once. Compressed files are streamed.
// An empty name means stdin.
func Readfile(fname string) ([]Seq, error) {
	if fname == "" || fname == "-" {
		return Read(os.Stdin)
	}
	fp, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	if zwrap.IsGzip(fp) {
		zr, err := zwrap.Wrap(fp)
		if err != nil {
			return nil, errorName(fname, err)
		}
		seqs, err := Read(zr)
		return seqs, errorName(fname, err)
	}
	fi, err := fp.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() == 0 { // mmap does not like zero length files
		return nil, errorName(fname, ErrNoSeqs)
	}
	mm, err := mmap.Map(fp, mmap.RDONLY, 0)
	if err != nil {
		return nil, errorName(fname, err)
	}
	defer mm.Unmap()
	seqs, err := ReadFasta(mm)
	return seqs, errorName(fname, err)
}

// errorName sticks a problem causing filename on an error message
func errorName(fname string, e error) error {
	if e == nil {
		return nil
	}
	return fmt.Errorf("working on %q: %w", fname, e)
}
