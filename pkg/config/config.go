// 9 Oct 2026

// Package config holds the one configuration value a run is built from.
// It is filled from defaults, then an optional YAML file, then command
// line flags, checked once and after that only passed around and read.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/andrew-torda/supermat/pkg/align"
	"github.com/andrew-torda/supermat/pkg/seq/common"
	"github.com/andrew-torda/supermat/pkg/seqstore"
)

// ErrConfig is wrapped by everything Validate complains about.
var ErrConfig = errors.New("bad configuration")

// Taxon names one species and where its proteome lives. The order of
// taxa is the order of the taxon columns in the ortholog table.
type Taxon struct {
	Name     string `yaml:"name"`
	Proteome string `yaml:"proteome"`
}

// Artifacts says where per group bundles are kept.
type Artifacts struct {
	Driver    string `yaml:"driver"` // fs, memory or s3
	Root      string `yaml:"root"`   // fs directory or s3 key prefix
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Aligner is how the external aligner is called.
type Aligner struct {
	Command string        `yaml:"command"`
	Args    []string      `yaml:"args"`
	Timeout time.Duration `yaml:"timeout"` // zero for none
}

type Config struct {
	Taxa           []Taxon   `yaml:"taxa"`
	Table          string    `yaml:"table"`
	Output         string    `yaml:"output"`
	Partitions     string    `yaml:"partitions"`
	Occupancy      string    `yaml:"occupancy"`
	GroupDir       string    `yaml:"group_dir"`
	AlignedDir     string    `yaml:"aligned_dir"`
	Artifacts      Artifacts `yaml:"artifacts"`
	Aligner        Aligner   `yaml:"aligner"`
	Workers        int       `yaml:"workers"`
	Missing        []string  `yaml:"missing"`
	Separator      string    `yaml:"separator"`
	DuplicateIDs   string    `yaml:"duplicate_ids"`
	Ledger         string    `yaml:"ledger"`
	MetricsFile    string    `yaml:"metrics_file"`
	LogFile        string    `yaml:"log_file"`
	Verbosity      int       `yaml:"verbosity"`
	PartitionModel string    `yaml:"partition_model"`
	Width          int       `yaml:"width"` // fasta line width, 0 for one line
}

const (
	DfltOutput     = "core_orthologs_supermatrix.fasta"
	DfltGroupDir   = "group_fastas"
	DfltAlignedDir = "aligned_fastas"
	DfltModel      = "LG"
	DfltVerbosity  = 2
)

// Default is the configuration before a file or flags are looked at.
func Default() Config {
	return Config{
		Output:         DfltOutput,
		GroupDir:       DfltGroupDir,
		AlignedDir:     DfltAlignedDir,
		Artifacts:      Artifacts{Driver: "fs", Root: "."},
		Aligner:        Aligner{Command: align.DfltCmd, Args: slices.Clone(align.DfltArgs)},
		Workers:        runtime.NumCPU(),
		Missing:        slices.Clone(common.DfltMissing),
		Separator:      common.MultiSep,
		DuplicateIDs:   "last",
		Verbosity:      DfltVerbosity,
		PartitionModel: DfltModel,
		Width:          common.CPerLine,
	}
}

// Parse reads YAML on top of the defaults. Keys we do not know are an
// error, since a misspelt key would otherwise be silently ignored.
func Parse(rdr io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(rdr)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// Load reads a YAML file. An empty name gives the defaults.
func Load(fname string) (Config, error) {
	if fname == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(fname)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c, err := Parse(bytes.NewReader(b))
	if err != nil {
		return c, fmt.Errorf("%s: %w", fname, err)
	}
	return c, nil
}

// TaxonNames are the taxa in table order.
func (c Config) TaxonNames() []string {
	names := make([]string, len(c.Taxa))
	for i, t := range c.Taxa {
		names[i] = t.Name
	}
	return names
}

// DupPolicy turns the duplicate_ids setting into a seqstore policy.
func (c Config) DupPolicy() seqstore.DupPolicy {
	p, _ := seqstore.ParseDupPolicy(c.DuplicateIDs) // Validate has seen it
	return p
}

func bad(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// Validate checks the things that would otherwise go wrong half way
// through a run.
func (c Config) Validate() error {
	if len(c.Taxa) < 2 {
		return bad("need at least two taxa, have %d", len(c.Taxa))
	}
	seen := make(map[string]bool, len(c.Taxa))
	for i, t := range c.Taxa {
		switch {
		case t.Name == "":
			return bad("taxon %d has no name", i+1)
		case strings.ContainsAny(t.Name, " \t/\\"):
			return bad("taxon name %q has a space or slash", t.Name)
		case t.Proteome == "":
			return bad("taxon %s has no proteome", t.Name)
		case seen[t.Name]:
			return bad("taxon %s given twice", t.Name)
		}
		seen[t.Name] = true
	}
	for _, a := range c.Taxa { // labels are found by suffix
		for _, b := range c.Taxa {
			if a.Name != b.Name && strings.HasSuffix(a.Name, common.LabelSep+b.Name) {
				return bad("taxon %s ends in %s%s, labels would be ambiguous", a.Name, common.LabelSep, b.Name)
			}
		}
	}
	if c.Table == "" {
		return bad("no ortholog table")
	}
	if c.Workers < 1 {
		return bad("workers %d, need at least 1", c.Workers)
	}
	if c.Aligner.Command == "" {
		return bad("no aligner command")
	}
	if c.Aligner.Timeout < 0 {
		return bad("negative aligner timeout")
	}
	if c.Separator == "" {
		return bad("empty member separator")
	}
	if c.Width < 0 {
		return bad("negative line width")
	}
	if _, err := seqstore.ParseDupPolicy(c.DuplicateIDs); err != nil {
		return bad("%v", err)
	}
	switch c.Artifacts.Driver {
	case "fs", "memory":
	case "s3":
		if c.Artifacts.Bucket == "" {
			return bad("s3 artifacts need a bucket")
		}
	default:
		return bad("unknown artifact driver %q, want fs, memory or s3", c.Artifacts.Driver)
	}
	if c.GroupDir == c.AlignedDir {
		return bad("group_dir and aligned_dir are both %q", c.GroupDir)
	}
	return nil
}
