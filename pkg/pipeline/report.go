package pipeline

import (
	"maps"
	"slices"

	"github.com/andrew-torda/supermat/pkg/ortho"
	"github.com/andrew-torda/supermat/pkg/vlog"
)

// Report is the end of run summary.
type Report struct {
	RunID    string
	NGroups  int                  // data rows in the table
	Selected int                  // single copy groups after filtering
	Excluded map[ortho.Reason]int // dropped by the filter, by reason
	Skipped  []*ortho.GroupError  // dropped later, in table order
	Aligned  int                  // groups in the supermatrix
	Width    int                  // supermatrix columns
}

func newReport(runID string) *Report {
	return &Report{RunID: runID, Excluded: make(map[ortho.Reason]int)}
}

// Dropped counts every group that did not make it, by reason, whether
// the filter or a later stage dropped it.
func (r *Report) Dropped() map[string]int {
	n := make(map[string]int, len(r.Excluded)+len(r.Skipped))
	for why, k := range r.Excluded {
		n[string(why)] += k
	}
	for _, e := range r.Skipped {
		n[e.Reason()]++
	}
	return n
}

// Log prints the summary at info level and each skipped group at
// debug level.
func (r *Report) Log(l *vlog.Logger) {
	l.Infof("run %s: %d groups in table, %d single copy, %d aligned, %d columns",
		r.RunID, r.NGroups, r.Selected, r.Aligned, r.Width)
	dropped := r.Dropped()
	for _, why := range slices.Sorted(maps.Keys(dropped)) {
		l.Infof("  dropped %-14s %d", why, dropped[why])
	}
	for _, e := range r.Skipped {
		l.Debugf("  skipped %s", e)
	}
}
