// 4 Oct 2026

// Package ortho reads ortholog grouping tables and picks out the
// single copy groups.
//
// A table is tab separated. Lines starting with "#" and blank lines are
// skipped. Each data row is
//
//	group_id  connectivity  member_count  taxon_1 ... taxon_n
//
// with the taxon columns in the order the caller fixes. proteinortho
// writes its own header ("# Species<TAB>Genes<TAB>Alg.-Conn.<TAB>...")
// and has no group id column. When we see that header the leading
// columns are read as species count, gene count and connectivity and
// groups are numbered by row.
package ortho

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andrew-torda/supermat/pkg/zwrap"
)

const (
	nLead    = 3 // columns before the first taxon
	cmmtMark = "#"
	poHeader = "# Species" // how proteinortho starts its header
)

var (
	ErrMalformedRow = errors.New("malformed ortholog table row")
	ErrDupGroup     = errors.New("duplicate group id")
)

// Group is one row of the table. Members has exactly one raw field per
// taxon, in the caller's taxon order. The fields are not interpreted
// here. That is the filter's job.
type Group struct {
	ID      string
	Conn    float64 // connectivity score
	Count   int     // member (or species) count as written in the table
	Members []string
	Line    int // line number in the source, for messages
}

// RowError says where a table went wrong.
type RowError struct {
	Line   int
	Inline string // start of the offending line
	Msg    string
}

const maxMsgLen = 70

func (e *RowError) Error() string {
	s := e.Inline
	if len(s) > maxMsgLen {
		s = s[:maxMsgLen]
	}
	return fmt.Sprintf("%s: line %d: %s\nline starting with\n%s", ErrMalformedRow, e.Line, e.Msg, s)
}

func (e *RowError) Unwrap() error { return ErrMalformedRow }

type layout byte

const (
	layoutPlain layout = iota // id, connectivity, count
	layoutPO                  // species, genes, connectivity
)

// Parse reads a table with ntaxa taxon columns and returns the groups
// in the order they appear.
func Parse(rdr io.Reader, ntaxa int) ([]Group, error) {
	if ntaxa < 1 {
		return nil, fmt.Errorf("ortholog table: need at least one taxon column, got %d", ntaxa)
	}
	var groups []Group
	seen := make(map[string]int)
	lay := layoutPlain
	scanner := bufio.NewScanner(rdr)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024) // rows with many paralogs get long
	nline, nrow := 0, 0
	for scanner.Scan() {
		nline++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, cmmtMark) {
			if nrow == 0 && strings.HasPrefix(line, poHeader) {
				cols := strings.Split(line, "\t")
				if n := len(cols) - nLead; n != ntaxa {
					return nil, &RowError{nline, line, fmt.Sprintf("header names %d taxa, expected %d", n, ntaxa)}
				}
				lay = layoutPO
			}
			continue
		}
		nrow++
		cols := strings.Split(line, "\t")
		if len(cols) != nLead+ntaxa {
			return nil, &RowError{nline, line, fmt.Sprintf("got %d columns, expected %d", len(cols), nLead+ntaxa)}
		}
		g, err := mkGroup(cols, lay, nrow)
		if err != nil {
			return nil, &RowError{nline, line, err.Error()}
		}
		g.Line = nline
		if prev, dup := seen[g.ID]; dup {
			return nil, fmt.Errorf("group %q on lines %d and %d: %w", g.ID, prev, nline, ErrDupGroup)
		}
		seen[g.ID] = nline
		groups = append(groups, g)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ortholog table: %w", err)
	}
	return groups, nil
}

// mkGroup turns split columns into a Group.
func mkGroup(cols []string, lay layout, nrow int) (Group, error) {
	var g Group
	var err error
	lead := make([]string, nLead)
	for i := range lead {
		lead[i] = strings.TrimSpace(cols[i])
	}
	switch lay {
	case layoutPO:
		g.ID = strconv.Itoa(nrow)
		if g.Count, err = strconv.Atoi(lead[0]); err != nil {
			return g, fmt.Errorf("species count %q is not an integer", lead[0])
		}
		if g.Conn, err = strconv.ParseFloat(lead[2], 64); err != nil {
			return g, fmt.Errorf("connectivity %q is not a number", lead[2])
		}
	default:
		g.ID = lead[0]
		if g.ID == "" {
			return g, errors.New("empty group id")
		}
		if strings.ContainsAny(g.ID, "/\\ ") || g.ID == "." || g.ID == ".." || filepath.Base(g.ID) != g.ID {
			return g, fmt.Errorf("group id %q is not usable as a file name", g.ID)
		}
		if g.Conn, err = strconv.ParseFloat(lead[1], 64); err != nil {
			return g, fmt.Errorf("connectivity %q is not a number", lead[1])
		}
		if g.Count, err = strconv.Atoi(lead[2]); err != nil {
			return g, fmt.Errorf("member count %q is not an integer", lead[2])
		}
	}
	g.Members = make([]string, len(cols)-nLead)
	copy(g.Members, cols[nLead:])
	return g, nil
}

// ParseFile reads a table from a file, which may be gzipped.
func ParseFile(fname string, ntaxa int) ([]Group, error) {
	fp, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	rdr, err := zwrap.WrapMaybe(fp)
	if err != nil {
		fp.Close()
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	defer rdr.Close()
	groups, err := Parse(rdr, ntaxa)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return groups, nil
}
