// This file is part of bwpatch.
//
// bwpatch is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// bwpatch is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with bwpatch.  If not, see <https://www.gnu.org/licenses/>.

// Package logger implements a small ring-buffered central logger. Every
// patch the engine applies, and every patch that fails, is logged here
// rather than printed directly, so that the CLI driver and the
// web driver can each decide how (and whether) to surface it.
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Permission is consulted before a log entry is recorded. Drivers that want
// to silence logging conditionally (for example, a web request handler that
// only wants to log for a particular user) implement this interface.
type Permission interface {
	AllowLogging() bool
}

type allowAll bool

func (a allowAll) AllowLogging() bool { return bool(a) }

// Allow is the Permission that always allows logging.
const Allow = allowAll(true)

type entry struct {
	tag    string
	detail string
}

// Logger is a fixed-capacity, ring-buffered log. The oldest entry is
// discarded once capacity is reached.
type Logger struct {
	mu      sync.Mutex
	entries []entry
	limit   int
}

// NewLogger creates a Logger that retains at most limit entries.
func NewLogger(limit int) *Logger {
	return &Logger{limit: limit}
}

func format(detail interface{}) string {
	switch d := detail.(type) {
	case error:
		return d.Error()
	case fmt.Stringer:
		return d.String()
	default:
		return fmt.Sprintf("%v", d)
	}
}

// Log records tag and detail if perm allows logging.
func (l *Logger) Log(perm Permission, tag string, detail interface{}) {
	if perm == nil || !perm.AllowLogging() {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry{tag: tag, detail: format(detail)})
	if l.limit > 0 && len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
}

// Logf is like Log but formats detail with fmt.Sprintf first.
func (l *Logger) Logf(perm Permission, tag string, format_ string, args ...interface{}) {
	l.Log(perm, tag, fmt.Sprintf(format_, args...))
}

// Write writes every retained entry to w, one "tag: detail" line each.
func (l *Logger) Write(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder
	for _, e := range l.entries {
		fmt.Fprintf(&b, "%s: %s\n", e.tag, e.detail)
	}
	io.WriteString(w, b.String())
}

// Tail writes at most the last n entries to w.
func (l *Logger) Tail(w io.Writer, n int) {
	l.mu.Lock()
	start := len(l.entries) - n
	if start < 0 {
		start = 0
	}
	tail := append([]entry(nil), l.entries[start:]...)
	l.mu.Unlock()

	var b strings.Builder
	for _, e := range tail {
		fmt.Fprintf(&b, "%s: %s\n", e.tag, e.detail)
	}
	io.WriteString(w, b.String())
}

// Clear empties the log.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// central is the default logger used by the package-level convenience
// functions below.
var central = NewLogger(1000)

// Log records tag and detail on the default, process-wide logger.
func Log(tag string, detail interface{}) {
	central.Log(Allow, tag, detail)
}

// Logf is like Log but formats detail with fmt.Sprintf first.
func Logf(tag string, format string, args ...interface{}) {
	central.Logf(Allow, tag, format, args...)
}

// Write writes the default logger's entries to w.
func Write(w io.Writer) {
	central.Write(w)
}

// Tail writes the default logger's last n entries to w.
func Tail(w io.Writer, n int) {
	central.Tail(w, n)
}

// Clear empties the default logger.
func Clear() {
	central.Clear()
}
