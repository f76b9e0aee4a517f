package ortho

import (
	"errors"
	"fmt"
)

// Stage names the step a group was in when it was dropped.
type Stage string

const (
	StageExport Stage = "export"
	StageAlign  Stage = "align"
	StageParse  Stage = "parse"
)

// Kinds of per group failure. None of these stop a run.
var (
	ErrUnresolved   = errors.New("member id not in proteome")
	ErrAligner      = errors.New("aligner failed")
	ErrTimeout      = errors.New("aligner timed out")
	ErrLabelMissing = errors.New("taxon label missing from alignment")
	ErrLabelDup     = errors.New("taxon label repeated in alignment")
	ErrWidth        = errors.New("alignment without columns")
)

// ErrIntegrity means concatenated rows came out with different lengths.
// This one is fatal.
var ErrIntegrity = errors.New("supermatrix integrity")

// GroupError is why one group was skipped. Diag holds anything the
// aligner said on stderr.
type GroupError struct {
	Group string
	Stage Stage
	Kind  error
	Msg   string
	Diag  string
}

func (e *GroupError) Error() string {
	if e == nil {
		return ""
	}
	s := e.Kind.Error()
	if e.Msg != "" {
		s = fmt.Sprintf("%s: %s", s, e.Msg)
	}
	if e.Group == "" {
		return s
	}
	return fmt.Sprintf("group %s (%s): %s", e.Group, e.Stage, s)
}

func (e *GroupError) Unwrap() error { return e.Kind }

// Reason is the short name of the failure kind, for counting.
func (e *GroupError) Reason() string {
	switch e.Kind {
	case ErrUnresolved:
		return "unresolved"
	case ErrAligner:
		return "aligner"
	case ErrTimeout:
		return "timeout"
	case ErrLabelMissing:
		return "label_missing"
	case ErrLabelDup:
		return "label_dup"
	case ErrWidth:
		return "width"
	}
	return "other"
}

// GroupErrf builds a GroupError with a formatted message.
func GroupErrf(group string, stage Stage, kind error, format string, args ...any) *GroupError {
	return &GroupError{Group: group, Stage: stage, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
