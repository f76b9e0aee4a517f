package ortho

import (
	"strings"

	"github.com/andrew-torda/supermat/pkg/seq/common"
)

// Reason says why a group was left out at the table stage.
type Reason string

const (
	Missing   Reason = "missing"   // some taxon has no member
	MultiCopy Reason = "multicopy" // some taxon has more than one candidate
)

// Excluded records a group the filter dropped and the first taxon
// column that made it drop it.
type Excluded struct {
	Group  Group
	Taxon  int
	Reason Reason
}

// Filter keeps single copy groups. It has no state beyond its settings.
type Filter struct {
	missing map[string]bool // lower case
	sep     string
}

// NewFilter makes a filter. missing are the placeholder strings meaning
// "no member", compared without regard to case. sep separates several
// gene ids in one field. Nil or empty arguments get the defaults.
func NewFilter(missing []string, sep string) *Filter {
	if len(missing) == 0 {
		missing = common.DfltMissing
	}
	if sep == "" {
		sep = common.MultiSep
	}
	f := &Filter{missing: make(map[string]bool, len(missing)), sep: sep}
	for _, m := range missing {
		f.missing[strings.ToLower(strings.TrimSpace(m))] = true
	}
	f.missing[""] = true // an empty field is never a gene id
	return f
}

// check says whether one field holds exactly one usable id.
func (f *Filter) check(field string) (string, Reason, bool) {
	id := strings.TrimSpace(field)
	if f.missing[strings.ToLower(id)] {
		return "", Missing, false
	}
	if strings.Contains(id, f.sep) {
		return "", MultiCopy, false
	}
	return id, "", true
}

// Select returns the groups with exactly one, present member per taxon,
// in their original order, with the member fields trimmed. The rest come
// back as excluded, also in order. Select does not change its argument.
func (f *Filter) Select(groups []Group) (kept []Group, excluded []Excluded) {
	for _, g := range groups {
		ids := make([]string, len(g.Members))
		ok := true
		for i, field := range g.Members {
			id, why, good := f.check(field)
			if !good {
				excluded = append(excluded, Excluded{Group: g, Taxon: i, Reason: why})
				ok = false
				break
			}
			ids[i] = id
		}
		if ok {
			g.Members = ids // g is a copy, the caller's slice is untouched
			kept = append(kept, g)
		}
	}
	return kept, excluded
}
