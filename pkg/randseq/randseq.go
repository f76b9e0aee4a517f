// 31 July 2020
// 15 Oct 2026 whole ortholog data sets instead of loose sequences

// Package randseq makes random proteomes and an ortholog table that
// ties them together. The data are for testing and benchmarking, so
// the biology is crude. Each group gets an ancestral sequence and
// every taxon gets a copy with some residues changed and a few
// dropped, so the aligner has something to do.
package randseq

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	. "github.com/andrew-torda/supermat/pkg/seq/common"
)

const (
	nPadWhite = 9 // For padding for adding whitespace to sequences
	maxDel    = 3 // most residues a taxon's copy can lose
	missMark  = "*"
	TableName = "orthologs.tsv"
)

var letters = []byte("ACDEFGHIKLMNPQRSTVWY")

// Args is the set of arguments passed to Orthologs
type Args struct {
	Iseed  int64    // random number seed
	Dir    string   // where proteomes and table are written
	Taxa   []string // one proteome per taxon
	NGroup int      // number of ortholog groups
	Len    int      // length of each group's ancestral sequence
	PMiss  float64  // chance a taxon has no gene in a group
	PMulti float64  // chance a taxon has two genes in a group
	PMut   float64  // chance each residue is changed in a copy
	NExtra int      // genes per proteome that are in no group
	White  bool     // scatter white space through the records
}

// DataSet says what Orthologs wrote.
type DataSet struct {
	Proteomes []string // file names, in taxon order
	Table     string
	NCore     int // groups with exactly one gene from every taxon
}

// record is one fasta entry on its way to a proteome file.
type record struct {
	id string
	s  []byte
}

// getseq returns a byte slice with a random sequence in it
func getseq(seqlen int, rnd *rand.Rand) []byte {
	space := seqlen + (seqlen / nPadWhite) // about 10% rubbish white space
	ret := make([]byte, seqlen, space)
	l := int32(len(letters))
	for i := 0; i < seqlen; i++ {
		ret[i] = letters[rnd.Int31n(l)]
	}
	return ret
}

// mutate returns a copy of anc with residues changed at rate pmut and
// up to maxDel residues deleted.
func mutate(anc []byte, pmut float64, rnd *rand.Rand) []byte {
	s := make([]byte, len(anc), cap(anc))
	copy(s, anc)
	for i := range s {
		if rnd.Float64() < pmut {
			s[i] = letters[rnd.Intn(len(letters))]
		}
	}
	for n := rnd.Intn(maxDel + 1); n > 0 && len(s) > 1; n-- {
		pos := rnd.Intn(len(s))
		s = append(s[:pos], s[pos+1:]...)
	}
	return s
}

// addInner is used by addspace to add a space or newline
func addInner(s []byte, n int, c byte, spacernd *rand.Rand) []byte {
	for i := 0; i < n; i++ {
		s = append(s, 0)
		pos := spacernd.Int31n(int32(len(s)))
		copy(s[pos+1:], s[pos:])
		s[pos] = c
	}
	return s
}

// addspace is given a byte array and adds white characters at random
// positions. We work out how much space is to be used. We flip a coin.
// Heads we don't add a newline. Tails we make about 1/10 (integer 1/9)
// of the spaces to be newlines.
func addspace(s []byte, spacernd *rand.Rand) []byte {
	toAdd := cap(s) - len(s)
	coin := spacernd.Int31n(2)
	nNL := 0 // Number of new lines to add
	if coin == 0 {
		nNL = toAdd / 9
	}
	nSpace := toAdd - nNL
	s = addInner(s, nSpace, ' ', spacernd)
	s = addInner(s, nNL, '\n', spacernd)
	return s
}

// writeseq writes the records for one taxon as they arrive. The first
// error is kept and the rest of the channel is drained.
func writeseq(rChan <-chan record, w io.Writer, args *Args, seed int64, err *error, wg *sync.WaitGroup) {
	defer wg.Done()
	spacernd := rand.New(rand.NewSource(seed))
	bw := bufio.NewWriter(w)
	for r := range rChan {
		if *err != nil {
			continue
		}
		s := r.s
		if args.White {
			s = addspace(s, spacernd)
		}
		if _, e := fmt.Fprintf(bw, "%c%s random protein\n%s\n", CmmtChar, r.id, s); e != nil {
			*err = e
		}
	}
	if *err == nil {
		*err = bw.Flush()
	}
}

func (args *Args) check() error {
	switch {
	case len(args.Taxa) < 1:
		return errors.New("randseq: no taxa")
	case args.NGroup < 0 || args.NExtra < 0:
		return errors.New("randseq: negative count")
	case args.Len < 1:
		return fmt.Errorf("randseq: sequence length %d", args.Len)
	}
	for _, p := range []float64{args.PMiss, args.PMulti, args.PMut} {
		if p < 0 || p > 1 {
			return fmt.Errorf("randseq: probability %g out of range", p)
		}
	}
	return nil
}

// Orthologs writes one proteome per taxon and a table of groups into
// args.Dir. Group rows use the plain layout, id, connectivity, member
// count then one field per taxon. Missing members are written as "*"
// and two copies are joined with a comma.
func Orthologs(args *Args) (DataSet, error) {
	var ds DataSet
	if err := args.check(); err != nil {
		return ds, err
	}
	if err := os.MkdirAll(args.Dir, 0o755); err != nil {
		return ds, err
	}
	ntaxa := len(args.Taxa)
	chans := make([]chan record, ntaxa)
	errs := make([]error, ntaxa)
	files := make([]*os.File, ntaxa)
	var wg sync.WaitGroup
	for i, taxon := range args.Taxa {
		fname := filepath.Join(args.Dir, taxon+".fasta")
		fp, err := os.Create(fname)
		if err != nil {
			for _, f := range files[:i] {
				f.Close()
			}
			return ds, err
		}
		files[i] = fp
		ds.Proteomes = append(ds.Proteomes, fname)
		chans[i] = make(chan record)
		wg.Add(1)
		go writeseq(chans[i], fp, args, args.Iseed+int64(i)+1, &errs[i], &wg)
	}

	var table strings.Builder
	fmt.Fprintf(&table, "# group\tconn\tn\t%s\n", strings.Join(args.Taxa, "\t"))
	rnd := rand.New(rand.NewSource(args.Iseed))
	width := len(fmt.Sprint(args.NGroup))
	for g := 0; g < args.NGroup; g++ {
		anc := getseq(args.Len, rnd)
		fields := make([]string, ntaxa)
		nmemb, core := 0, true
		for i, taxon := range args.Taxa {
			id := fmt.Sprintf("%s_%0*d", taxon, width, g)
			switch p := rnd.Float64(); {
			case p < args.PMiss:
				fields[i], core = missMark, false
			case p < args.PMiss+args.PMulti:
				a, b := id+"a", id+"b"
				chans[i] <- record{a, mutate(anc, args.PMut, rnd)}
				chans[i] <- record{b, mutate(anc, args.PMut, rnd)}
				fields[i], core = a+MultiSep+b, false
				nmemb += 2
			default:
				chans[i] <- record{id, mutate(anc, args.PMut, rnd)}
				fields[i] = id
				nmemb++
			}
		}
		if core {
			ds.NCore++
		}
		fmt.Fprintf(&table, "g%0*d\t1.000\t%d\t%s\n", width, g, nmemb, strings.Join(fields, "\t"))
	}
	for i, taxon := range args.Taxa {
		for n := 0; n < args.NExtra; n++ {
			chans[i] <- record{fmt.Sprintf("%s_x%d", taxon, n), getseq(args.Len, rnd)}
		}
		close(chans[i])
	}
	wg.Wait()

	for i, fp := range files {
		if err := fp.Close(); err != nil && errs[i] == nil {
			errs[i] = err
		}
	}
	if err := errors.Join(errs...); err != nil {
		return ds, err
	}
	ds.Table = filepath.Join(args.Dir, TableName)
	if err := os.WriteFile(ds.Table, []byte(table.String()), 0o644); err != nil {
		return ds, err
	}
	return ds, nil
}
