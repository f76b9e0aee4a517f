// 12 Oct 2026

// Package pipeline builds a supermatrix from an ortholog table and one
// proteome per taxon.
//
// Proteomes, table and filtering are done once, in order. Each
// surviving group then goes through export, alignment and parsing on
// its own, on a bounded number of workers. The results are put back
// in table order before anything is concatenated, so the matrix does
// not depend on which aligner finished first. A group that fails is
// left out and reported. The only failure after loading that stops a
// run is rows of different lengths at the end.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/andrew-torda/supermat/pkg/align"
	"github.com/andrew-torda/supermat/pkg/artifact"
	"github.com/andrew-torda/supermat/pkg/concat"
	"github.com/andrew-torda/supermat/pkg/config"
	"github.com/andrew-torda/supermat/pkg/ledger"
	"github.com/andrew-torda/supermat/pkg/metrics"
	"github.com/andrew-torda/supermat/pkg/ortho"
	"github.com/andrew-torda/supermat/pkg/seq"
	"github.com/andrew-torda/supermat/pkg/seqstore"
	"github.com/andrew-torda/supermat/pkg/vlog"
)

// Pipeline is one run. Make it with New and call Run once.
type Pipeline struct {
	cfg     config.Config
	runID   string
	aligner align.Aligner
	arts    artifact.Store
	log     *vlog.Logger
	met     *metrics.Metrics
	ldg     *ledger.Ledger
	scratch string // per group bundles for the aligner to read
}

// Option changes how a Pipeline is put together.
type Option func(*Pipeline)

// WithAligner replaces the aligner the configuration describes.
func WithAligner(a align.Aligner) Option { return func(p *Pipeline) { p.aligner = a } }

// WithArtifacts replaces the artifact store the configuration describes.
func WithArtifacts(s artifact.Store) Option { return func(p *Pipeline) { p.arts = s } }

func WithLogger(l *vlog.Logger) Option { return func(p *Pipeline) { p.log = l } }

func WithLedger(l *ledger.Ledger) Option { return func(p *Pipeline) { p.ldg = l } }

func WithRunID(id string) Option { return func(p *Pipeline) { p.runID = id } }

// New sets up a run. cfg should have been through Validate. Whatever
// no option supplies comes from cfg when Run starts.
func New(cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg}
	for _, o := range opts {
		o(p)
	}
	if p.runID == "" {
		p.runID = uuid.NewString()
	}
	if p.log == nil {
		p.log = vlog.New(os.Stderr, cfg.Verbosity)
	}
	if p.aligner == nil {
		p.aligner = align.NewMafft(cfg.Aligner.Command, cfg.Aligner.Args, cfg.Aligner.Timeout)
	}
	p.met = metrics.New(p.runID)
	p.met.Workers.Set(float64(cfg.Workers))
	return p
}

// RunID identifies this run in the ledger, the metrics and the log.
func (p *Pipeline) RunID() string { return p.runID }

// Metrics are the run's counters.
func (p *Pipeline) Metrics() *metrics.Metrics { return p.met }

// Run does the whole job and writes the outputs named in the
// configuration. The report is returned even when err is not nil, as
// far as the run got.
func (p *Pipeline) Run(ctx context.Context) (rep *Report, err error) {
	started := time.Now()
	rep = newReport(p.runID)
	if p.ldg != nil {
		if err := p.ldg.Begin(ctx, p.runID, started); err != nil {
			return rep, err
		}
	}
	var entries []ledger.Entry
	defer func() {
		p.finish(ctx, rep, entries, err == nil)
	}()

	if p.arts == nil {
		if p.arts, err = artifact.Open(ctx, p.cfg.Artifacts); err != nil {
			return rep, err
		}
	}
	if p.scratch, err = os.MkdirTemp("", "supermat"); err != nil {
		return rep, fmt.Errorf("scratch directory: %w", err)
	}
	defer os.RemoveAll(p.scratch)

	stores, err := p.loadStores()
	if err != nil {
		return rep, err
	}
	groups, err := ortho.ParseFile(p.cfg.Table, len(stores))
	if err != nil {
		return rep, err
	}
	rep.NGroups = len(groups)
	kept, excluded := ortho.NewFilter(p.cfg.Missing, p.cfg.Separator).Select(groups)
	rep.Selected = len(kept)
	for _, e := range excluded {
		rep.Excluded[e.Reason]++
		p.met.Outcome(metrics.OutExcluded)
		entries = append(entries, ledger.Entry{Seq: e.Group.Line, Group: e.Group.ID,
			Status: ledger.Excluded, Stage: "filter", Reason: string(e.Reason)})
	}
	p.log.Infof("%d groups in table, %d single copy", len(groups), len(kept))

	results := p.alignAll(ctx, stores, kept)
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	m, ents, err := p.assemble(kept, results, rep)
	entries = append(entries, ents...)
	if err != nil {
		return rep, err
	}
	rep.Width = m.Width()
	p.met.Width.Set(float64(m.Width()))
	return rep, p.writeOutputs(m)
}

// assemble concatenates the aligned groups in filtered order and
// sorts the skipped ones into the report.
func (p *Pipeline) assemble(kept []ortho.Group, results []result, rep *Report) (*concat.Supermatrix, []ledger.Entry, error) {
	asm := concat.NewAssembler(p.cfg.TaxonNames())
	var entries []ledger.Entry
	offset := 0
	for i, r := range results {
		g := kept[i]
		var gerr *ortho.GroupError
		switch {
		case r.err == nil:
		case errors.As(r.err, &gerr):
			rep.Skipped = append(rep.Skipped, gerr)
			p.met.Outcome(metrics.OutSkipped)
			entries = append(entries, ledger.Entry{Seq: g.Line, Group: g.ID, Status: ledger.Skipped,
				Stage: string(gerr.Stage), Reason: gerr.Reason(), Diag: gerr.Diag})
			continue
		default:
			return nil, entries, fmt.Errorf("group %s: %w", g.ID, r.err)
		}
		if err := asm.Add(r.aligned); err != nil {
			return nil, entries, err
		}
		rep.Aligned++
		p.met.Outcome(metrics.OutAligned)
		entries = append(entries, ledger.Entry{Seq: g.Line, Group: g.ID, Status: ledger.Aligned,
			Width: r.aligned.Width, Offset: offset})
		offset += r.aligned.Width
	}
	m, err := asm.Build()
	return m, entries, err
}

// loadStores reads one proteome per taxon, in taxon order.
func (p *Pipeline) loadStores() ([]*seqstore.Store, error) {
	opts := seqstore.Options{Dups: p.cfg.DupPolicy()}
	stores := make([]*seqstore.Store, len(p.cfg.Taxa))
	for i, t := range p.cfg.Taxa {
		st, err := seqstore.LoadFile(t.Name, t.Proteome, opts)
		if err != nil {
			return nil, err
		}
		p.log.Infof("%s: %d sequences from %s", t.Name, st.Len(), t.Proteome)
		if n := st.NDup(); n > 0 {
			p.log.Warnf("%s: %d repeated ids, the later record kept", t.Name, n)
		}
		if n := st.NEmpty(); n > 0 {
			p.log.Warnf("%s: %d records without residues ignored", t.Name, n)
		}
		switch st.Type() {
		case seq.DNA, seq.RNA, seq.Ntide:
			p.log.Warnf("%s: %s looks like %s, not protein", t.Name, t.Proteome, st.Type())
		}
		stores[i] = st
	}
	return stores, nil
}

// writeOutputs writes the matrix, then the optional side files.
func (p *Pipeline) writeOutputs(m *concat.Supermatrix) error {
	if err := m.Write(p.cfg.Output, p.cfg.Width); err != nil {
		return err
	}
	if p.cfg.Partitions != "" {
		err := writeFile(p.cfg.Partitions, func(w io.Writer) error {
			return m.WritePartitions(w, p.cfg.PartitionModel)
		})
		if err != nil {
			return err
		}
	}
	if p.cfg.Occupancy != "" {
		if err := writeFile(p.cfg.Occupancy, m.WriteOccupancy); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(fname string, wrt func(io.Writer) error) error {
	fp, err := os.Create(fname)
	if err != nil {
		return err
	}
	if err := wrt(fp); err != nil {
		fp.Close()
		return fmt.Errorf("writing %s: %w", fname, err)
	}
	return fp.Close()
}

// finish logs the report and closes the books. Trouble here is only
// logged, since the run's own result is what the caller needs.
func (p *Pipeline) finish(ctx context.Context, rep *Report, entries []ledger.Entry, ok bool) {
	rep.Log(p.log)
	ctx = context.WithoutCancel(ctx)
	if p.ldg != nil {
		if err := p.ldg.Record(ctx, p.runID, entries); err != nil {
			p.log.Errorf("ledger: %v", err)
		}
		if err := p.ldg.Finish(ctx, p.runID, time.Now(), rep.NGroups, rep.Width, ok); err != nil {
			p.log.Errorf("ledger: %v", err)
		}
	}
	if p.cfg.MetricsFile != "" {
		if err := p.met.WriteFile(p.cfg.MetricsFile); err != nil {
			p.log.Errorf("metrics: %v", err)
		}
	}
}
