// This file is part of Gopher2600.
//
// Gopher2600 is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Gopher2600 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Gopher2600.  If not, see <https://www.gnu.org/licenses/>.

// Package logger implements a small central, ring-buffered logger for
// bookkeeping messages that are not part of the diagnostic stream proper
// (see dwarf/diag for that). Entries are tagged and kept in a bounded
// ring so that a long-running front end can show only the most recent
// activity with Tail().
package logger

import (
	"fmt"
	"io"
	"strings"
)

// Permission is consulted before a log entry is recorded. This exists so
// that callers with their own notion of verbosity (a -v flag, say) can
// gate logging without every call site needing to check first.
type Permission interface {
	AllowLogging() bool
}

// Allow is a Permission that always allows logging.
var Allow = alwaysAllow{}

type alwaysAllow struct{}

func (alwaysAllow) AllowLogging() bool { return true }

type entry struct {
	tag    string
	detail string
}

func (e entry) String() string {
	return fmt.Sprintf("%s: %s\n", e.tag, e.detail)
}

// Logger is a bounded ring of log entries.
type Logger struct {
	entries []entry
	head    int
	size    int
}

// NewLogger creates a Logger that retains at most cap entries, discarding
// the oldest when full.
func NewLogger(capacity int) *Logger {
	if capacity <= 0 {
		capacity = 1
	}
	return &Logger{entries: make([]entry, capacity)}
}

// Clear empties the logger.
func (l *Logger) Clear() {
	l.head = 0
	l.size = 0
}

func detailString(detail interface{}) string {
	switch v := detail.(type) {
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Log records a new entry under tag, provided perm allows logging.
func (l *Logger) Log(perm Permission, tag string, detail interface{}) {
	if perm == nil || !perm.AllowLogging() {
		return
	}
	e := entry{tag: tag, detail: detailString(detail)}
	idx := (l.head + l.size) % len(l.entries)
	l.entries[idx] = e
	if l.size < len(l.entries) {
		l.size++
	} else {
		l.head = (l.head + 1) % len(l.entries)
	}
}

// Logf is Log() with the detail built from a format string.
func (l *Logger) Logf(perm Permission, tag string, format string, a ...interface{}) {
	l.Log(perm, tag, fmt.Sprintf(format, a...))
}

// Write writes every retained entry, oldest first, to w.
func (l *Logger) Write(w io.Writer) {
	var b strings.Builder
	for i := 0; i < l.size; i++ {
		idx := (l.head + i) % len(l.entries)
		b.WriteString(l.entries[idx].String())
	}
	io.WriteString(w, b.String())
}

// Tail writes at most n of the most recently retained entries to w.
func (l *Logger) Tail(w io.Writer, n int) {
	if n > l.size {
		n = l.size
	}
	start := l.size - n
	var b strings.Builder
	for i := start; i < l.size; i++ {
		idx := (l.head + i) % len(l.entries)
		b.WriteString(l.entries[idx].String())
	}
	io.WriteString(w, b.String())
}

// central is the package-level logger used by the free functions below.
var central = NewLogger(1000)

// Log records a new entry in the central logger. Logging through the
// central logger is always allowed; gate at the call site if a -v style
// flag should suppress it.
func Log(tag string, detail interface{}) {
	central.Log(Allow, tag, detail)
}

// Logf is Log() with the detail built from a format string.
func Logf(tag string, format string, a ...interface{}) {
	central.Logf(Allow, tag, format, a...)
}

// Write writes the central logger's retained entries to w.
func Write(w io.Writer) {
	central.Write(w)
}

// Tail writes the central logger's n most recent entries to w.
func Tail(w io.Writer, n int) {
	central.Tail(w, n)
}

// Clear empties the central logger. Mostly useful for tests.
func Clear() {
	central.Clear()
}
