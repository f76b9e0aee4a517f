package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/andrew-torda/supermat/pkg/align"
	"github.com/andrew-torda/supermat/pkg/artifact"
	"github.com/andrew-torda/supermat/pkg/export"
	"github.com/andrew-torda/supermat/pkg/ortho"
	"github.com/andrew-torda/supermat/pkg/seqstore"
	"github.com/andrew-torda/supermat/pkg/vlog"
)

// job is one group and its place in the filtered order.
type job struct {
	ndx   int
	group ortho.Group
}

// result is what happened to one group. Exactly one of aligned and err
// is set once the group has been through a worker.
type result struct {
	aligned align.Aligned
	err     error
	done    bool
}

var errNotRun = errors.New("group never reached a worker")

// alignAll sends every group through export, alignment and parsing on
// at most nWorker goroutines. results[i] belongs to groups[i] whatever
// order the workers finish in. Each worker only writes the slots of
// the jobs it took, so the slice needs no lock.
func (p *Pipeline) alignAll(ctx context.Context, stores []*seqstore.Store, groups []ortho.Group) []result {
	results := make([]result, len(groups))
	jobs := make(chan job)
	nWorker := min(p.cfg.Workers, len(groups))
	var wg sync.WaitGroup
	for i := 0; i < nWorker; i++ {
		wg.Add(1)
		go p.worker(ctx, jobs, stores, results, &wg)
	}
feed:
	for i, g := range groups {
		select {
		case jobs <- job{ndx: i, group: g}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	for i := range results {
		if !results[i].done {
			results[i].err = errNotRun
		}
	}
	return results
}

// worker takes groups off the channel until it is closed.
func (p *Pipeline) worker(ctx context.Context, jobs <-chan job, stores []*seqstore.Store, results []result, wg *sync.WaitGroup) {
	defer wg.Done()
	for j := range jobs {
		a, err := p.processOne(ctx, j.group, stores)
		results[j.ndx] = result{aligned: a, err: err, done: true}
		var gerr *ortho.GroupError
		switch {
		case err == nil:
			p.log.Debugf("group %s aligned, width %d", j.group.ID, a.Width)
		case errors.As(err, &gerr):
			p.log.Warnf("skipping %s", gerr)
			if gerr.Diag != "" {
				p.log.Debugf("group %s aligner said: %s", j.group.ID, gerr.Diag)
			}
		}
	}
}

// processOne is export, align and parse for one group. Per group
// failures are *ortho.GroupError. Anything else means the run itself
// is in trouble (cancelled, scratch space gone).
func (p *Pipeline) processOne(ctx context.Context, g ortho.Group, stores []*seqstore.Store) (align.Aligned, error) {
	b, err := export.Resolve(g, stores)
	if err != nil {
		return align.Aligned{}, err
	}
	var bb bytes.Buffer
	if err := export.WriteBundle(&bb, b, p.cfg.Width); err != nil {
		return align.Aligned{}, err
	}
	dir, err := os.MkdirTemp(p.scratch, "group-*")
	if err != nil {
		return align.Aligned{}, err
	}
	defer os.RemoveAll(dir)
	in := filepath.Join(dir, export.FileName(g.ID))
	if err := os.WriteFile(in, bb.Bytes(), 0o644); err != nil {
		return align.Aligned{}, err
	}
	p.keep(ctx, artifact.Key(p.cfg.GroupDir, export.FileName(g.ID)), bb.Bytes())

	var out bytes.Buffer
	t0 := time.Now()
	err = p.aligner.Align(ctx, in, &out)
	p.met.Aligned(time.Since(t0))
	if err != nil {
		var gerr *ortho.GroupError
		switch {
		case errors.As(err, &gerr):
			gerr.Group, gerr.Stage = g.ID, ortho.StageAlign
			return align.Aligned{}, gerr
		case ctx.Err() != nil:
			return align.Aligned{}, err
		}
		return align.Aligned{}, &ortho.GroupError{Group: g.ID, Stage: ortho.StageAlign, Kind: ortho.ErrAligner, Msg: err.Error()}
	}
	p.keep(ctx, artifact.Key(p.cfg.AlignedDir, export.AlignedName(g.ID)), out.Bytes())
	return align.Parse(&out, g.ID, b.Taxa)
}

// keep stores a copy of a bundle for inspection. Losing one is worth a
// warning, not the group.
func (p *Pipeline) keep(ctx context.Context, key string, b []byte) {
	if p.arts == nil {
		return
	}
	if err := p.arts.Put(ctx, key, bytes.NewReader(b)); err != nil {
		p.log.Warnf("could not keep %s: %s", key, vlog.Trunc(err.Error(), 200))
	}
}
