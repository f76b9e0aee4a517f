// 13 Oct 2026
// Concatenate single copy ortholog alignments into a supermatrix.

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/andrew-torda/supermat/pkg/config"
	. "github.com/andrew-torda/supermat/pkg/seq/common"
	"github.com/andrew-torda/supermat/pkg/supermat"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage:", path.Base(os.Args[0]), "[flags] [table [taxon=proteome ...]]")
	long := `Without arguments, the table and taxa come from the configuration
file given with -c. Taxa on the command line replace those in the file
and must be in the same order as the taxon columns of the table.`
	fmt.Fprintln(os.Stderr, long)
	flag.PrintDefaults()
}

func main() {
	var flags supermat.CmdFlag
	flag.StringVar(&flags.Config, "c", "", "yaml configuration file")
	flag.StringVar(&flags.Output, "o", "", "supermatrix output file")
	flag.StringVar(&flags.Partitions, "p", "", "write RAxML partitions here")
	flag.StringVar(&flags.Occupancy, "q", "", "write per group occupancy table here")
	flag.StringVar(&flags.Aligner, "a", "", "aligner command, mafft by default")
	flag.DurationVar(&flags.Timeout, "T", 0, "timeout for one alignment, like 10m")
	flag.IntVar(&flags.Workers, "w", 0, "alignments run at once, number of CPUs by default")
	flag.StringVar(&flags.Dups, "d", "", "repeated sequence ids: last or error")
	flag.StringVar(&flags.Ledger, "L", "", "sqlite ledger of group outcomes")
	flag.StringVar(&flags.Metrics, "m", "", "prometheus textfile for run metrics")
	flag.StringVar(&flags.LogFile, "l", "", "append a timestamped log here")
	flag.StringVar(&flags.Artifacts, "s", "", "where bundles are kept: fs, memory or s3")
	flag.IntVar(&flags.Vbsty, "v", -1, "verbosity 0 (errors) to 3 (debug)")
	flag.BoolVar(&flags.Time, "t", false, "print out timing information")
	flag.Usage = usage
	flag.Parse()

	if err := supermat.Mymain(&flags, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, config.ErrConfig) {
			os.Exit(ExitUsageError)
		}
		os.Exit(ExitFailure)
	}
	os.Exit(ExitSuccess)
}
