// 9 Oct 2026

// Package vlog is verbosity gated logging to stderr, with an optional
// copy of every line in a timestamped run log.
package vlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level is how chatty a message is. A message is printed if its level
// is at or below the logger's verbosity.
type Level int

const (
	LvlError Level = iota
	LvlWarn
	LvlInfo
	LvlDebug
)

var lvlNames = [...]string{"ERROR", "WARN", "INFO", "DEBUG"}

var lvlColors = [...]color.Attribute{color.FgRed, color.FgYellow, color.FgGreen, color.FgCyan}

func (l Level) String() string {
	if l < LvlError || l > LvlDebug {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return lvlNames[l]
}

// Logger is safe for use by several goroutines. A nil *Logger drops
// everything.
type Logger struct {
	mu    sync.Mutex
	w     io.Writer
	file  *os.File
	vbsty Level
	tags  [len(lvlNames)]string
}

// New logs to w at verbosity vbsty. Tags are coloured only when w is
// stderr and colour has not been turned off.
func New(w io.Writer, vbsty int) *Logger {
	l := &Logger{w: w, vbsty: Level(vbsty)}
	useColor := w == os.Stderr && !color.NoColor
	for i, name := range lvlNames {
		c := color.New(lvlColors[i])
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		l.tags[i] = c.Sprint(name)
	}
	return l
}

// OpenFile appends every message, whatever the verbosity, to fname.
func (l *Logger) OpenFile(fname string) error {
	fp, err := os.OpenFile(fname, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	l.mu.Lock()
	l.file = fp
	l.mu.Unlock()
	return nil
}

// Close closes the run log, if there is one.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Enabled says whether messages at lvl reach the terminal.
func (l *Logger) Enabled(lvl Level) bool { return l != nil && lvl <= l.vbsty }

func (l *Logger) logf(lvl Level, format string, args ...any) {
	if l == nil {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	l.mu.Lock()
	defer l.mu.Unlock()
	if lvl <= l.vbsty {
		fmt.Fprintf(l.w, "%s %s\n", l.tags[lvl], msg)
	}
	if l.file != nil {
		fmt.Fprintf(l.file, "[%s] %s %s\n", time.Now().Format(time.RFC3339), lvlNames[lvl], msg)
	}
}

func (l *Logger) Errorf(format string, args ...any) { l.logf(LvlError, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LvlWarn, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LvlInfo, format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.logf(LvlDebug, format, args...) }

// Trunc cuts s to at most n bytes and puts it on one line, for long
// diagnostics in a warning.
func Trunc(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
