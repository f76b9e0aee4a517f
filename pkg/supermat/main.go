// 13 Oct 2026
// Build a supermatrix from an ortholog table and one proteome per taxon.

package supermat

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/andrew-torda/supermat/pkg/config"
	"github.com/andrew-torda/supermat/pkg/ledger"
	"github.com/andrew-torda/supermat/pkg/pipeline"
	"github.com/andrew-torda/supermat/pkg/vlog"
)

// CmdFlag is what came from the command line. Zero values mean "not
// given" and leave the configuration alone.
type CmdFlag struct {
	Config     string        // yaml configuration file
	Output     string        // supermatrix fasta file
	Partitions string        // RAxML partition file
	Occupancy  string        // per group, per taxon occupancy table
	Aligner    string        // aligner command
	Timeout    time.Duration // per alignment
	Workers    int           // aligners running at once
	Dups       string        // "last" or "error"
	Ledger     string        // sqlite file
	Metrics    string        // prometheus textfile
	LogFile    string        // timestamped run log
	Artifacts  string        // fs, memory or s3
	Vbsty      int           // -1 for "as configured"
	Time       bool          // print run time
}

// apply puts flags over the configuration file.
func (flags *CmdFlag) apply(c *config.Config) {
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&c.Output, flags.Output)
	set(&c.Partitions, flags.Partitions)
	set(&c.Occupancy, flags.Occupancy)
	set(&c.Aligner.Command, flags.Aligner)
	set(&c.DuplicateIDs, flags.Dups)
	set(&c.Ledger, flags.Ledger)
	set(&c.MetricsFile, flags.Metrics)
	set(&c.LogFile, flags.LogFile)
	set(&c.Artifacts.Driver, flags.Artifacts)
	if flags.Timeout > 0 {
		c.Aligner.Timeout = flags.Timeout
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Vbsty >= 0 {
		c.Verbosity = flags.Vbsty
	}
}

// applyArgs takes "table [taxon=proteome ...]". Taxa given here
// replace any in the configuration file, in the order given.
func applyArgs(c *config.Config, args []string) error {
	if len(args) == 0 {
		return nil
	}
	c.Table = args[0]
	if len(args) == 1 {
		return nil
	}
	c.Taxa = c.Taxa[:0:0]
	for _, a := range args[1:] {
		name, fname, ok := strings.Cut(a, "=")
		if !ok {
			return fmt.Errorf("%w: %q is not taxon=proteome", config.ErrConfig, a)
		}
		c.Taxa = append(c.Taxa, config.Taxon{Name: name, Proteome: fname})
	}
	return nil
}

// Mymain builds the configuration, runs the pipeline and tidies up.
func Mymain(flags *CmdFlag, args []string) error {
	cfg, err := config.Load(flags.Config)
	if err != nil {
		return err
	}
	flags.apply(&cfg)
	if err := applyArgs(&cfg, args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := vlog.New(os.Stderr, cfg.Verbosity)
	if cfg.LogFile != "" {
		if err := log.OpenFile(cfg.LogFile); err != nil {
			return err
		}
		defer log.Close()
	}
	opts := []pipeline.Option{pipeline.WithLogger(log)}
	if cfg.Ledger != "" {
		ldg, err := ledger.Open(cfg.Ledger)
		if err != nil {
			return err
		}
		defer ldg.Close()
		opts = append(opts, pipeline.WithLedger(ldg))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	t0 := time.Now()
	p := pipeline.New(cfg, opts...)
	log.Infof("run %s, %d taxa, %d workers", p.RunID(), len(cfg.Taxa), cfg.Workers)
	_, err = p.Run(ctx)
	if flags.Time {
		fmt.Fprintln(os.Stderr, "run time", time.Since(t0))
	}
	if err != nil {
		return fmt.Errorf("run %s: %w", p.RunID(), err)
	}
	return nil
}
