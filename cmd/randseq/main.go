// 31 July 2020
// 15 Oct 2026 writes ortholog data sets

package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/andrew-torda/supermat/pkg/randseq"
	. "github.com/andrew-torda/supermat/pkg/seq/common"
)

func main() {
	f := flag.NewFlagSet("randseq", flag.ExitOnError)
	const iseed int64 = 1637
	var args randseq.Args
	var taxa string

	f.StringVar(&taxa, "x", "takin,buffalo,yak", "comma separated taxon names")
	f.Float64Var(&args.PMiss, "m", 0.05, "chance a taxon is missing from a group")
	f.Float64Var(&args.PMulti, "p", 0.05, "chance a taxon has two copies in a group")
	f.Float64Var(&args.PMut, "u", 0.1, "chance a residue is changed")
	f.IntVar(&args.NExtra, "n", 0, "genes per proteome in no group")
	f.BoolVar(&args.White, "w", false, "scatter white space through sequences")
	f.Int64Var(&args.Iseed, "r", iseed, "random number seed")
	if err := f.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(f.Output(), err)
		os.Exit(ExitUsageError)
	}
	if f.NArg() != 3 {
		fmt.Fprintln(f.Output(), "Wrong number of args\nrandseq [..] dir ngroup length")
		f.Usage()
		os.Exit(ExitUsageError)
	}
	args.Dir = f.Arg(0)
	args.Taxa = strings.Split(taxa, ",")

	const emsg = "Failed converting %s to positive integer\n"
	if ngroup, err := strconv.ParseUint(f.Arg(1), 10, 32); err != nil {
		fmt.Fprintf(os.Stderr, emsg, f.Arg(1))
		os.Exit(ExitUsageError)
	} else {
		args.NGroup = int(ngroup)
	}
	if nlen, err := strconv.ParseUint(f.Arg(2), 10, 32); err != nil {
		fmt.Fprintf(os.Stderr, emsg, f.Arg(2))
		os.Exit(ExitUsageError)
	} else {
		args.Len = int(nlen)
	}
	ds, err := randseq.Orthologs(&args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitFailure)
	}
	fmt.Printf("table %s\n%d of %d groups are single copy in every taxon\n", ds.Table, ds.NCore, args.NGroup)
	os.Exit(ExitSuccess)
}
