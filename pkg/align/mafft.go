// 7 Oct 2026

// Package align runs an external multiple sequence aligner on one
// group's bundle and reads the result back by label.
package align

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/andrew-torda/supermat/pkg/ortho"
)

// Aligner reads the bundle at path in and writes the aligned bundle to
// out. Failures should be *ortho.GroupError with Kind ErrAligner or
// ErrTimeout. The group field may be left empty for the caller to fill.
type Aligner interface {
	Align(ctx context.Context, in string, out io.Writer) error
}

// AlignFunc lets an ordinary function be an Aligner.
type AlignFunc func(ctx context.Context, in string, out io.Writer) error

func (f AlignFunc) Align(ctx context.Context, in string, out io.Writer) error {
	return f(ctx, in, out)
}

const (
	DfltCmd  = "mafft"
	maxDiag  = 4096            // bytes of stderr we keep
	waitDlay = 2 * time.Second // after a kill, how long to wait for pipes
)

// DfltArgs lets mafft take whatever symbols turn up in a proteome.
var DfltArgs = []string{"--anysymbol", "--auto"}

// Mafft runs mafft (or anything called the same way) as
// "cmd args... infile" and takes the alignment from stdout.
type Mafft struct {
	Cmd     string
	Args    []string
	Timeout time.Duration // zero means wait forever
}

// NewMafft fills in defaults for an empty command or nil args.
func NewMafft(cmd string, args []string, timeout time.Duration) *Mafft {
	if cmd == "" {
		cmd = DfltCmd
	}
	if args == nil {
		args = DfltArgs
	}
	return &Mafft{Cmd: cmd, Args: slices.Clone(args), Timeout: timeout}
}

// cntWriter counts what goes through it so we can tell an aligner that
// exited happily but said nothing.
type cntWriter struct {
	w io.Writer
	n int64
}

func (c *cntWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Align runs the aligner once. A non-zero exit, a timeout or no output
// at all come back as a *ortho.GroupError. If the caller's context is
// cancelled, the context error is returned instead.
func (m *Mafft) Align(ctx context.Context, in string, out io.Writer) error {
	runCtx := ctx
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(runCtx, m.Cmd, append(slices.Clone(m.Args), in)...)
	var stderr bytes.Buffer
	cw := &cntWriter{w: out}
	cmd.Stdout = cw
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDlay
	setGroupKill(cmd) // mafft is a script that starts more processes

	err := cmd.Run()
	diag := lastBytes(stderr.Bytes(), maxDiag)
	switch {
	case err != nil && ctx.Err() != nil:
		return fmt.Errorf("aligning %s: %w", in, ctx.Err())
	case err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return &ortho.GroupError{Stage: ortho.StageAlign, Kind: ortho.ErrTimeout,
			Msg: fmt.Sprintf("%s after %v", m.Cmd, m.Timeout), Diag: diag}
	case err != nil:
		var exitErr *exec.ExitError
		msg := err.Error()
		if errors.As(err, &exitErr) {
			msg = fmt.Sprintf("%s exit status %d", m.Cmd, exitErr.ExitCode())
		}
		return &ortho.GroupError{Stage: ortho.StageAlign, Kind: ortho.ErrAligner, Msg: msg, Diag: diag}
	case cw.n == 0:
		return &ortho.GroupError{Stage: ortho.StageAlign, Kind: ortho.ErrAligner,
			Msg: m.Cmd + " wrote nothing", Diag: diag}
	}
	return nil
}

// lastBytes keeps the end of a diagnostic, which is where the
// interesting part usually is.
func lastBytes(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return strings.TrimSpace(string(b))
}
