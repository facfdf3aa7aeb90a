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

package diag

import (
	"fmt"
	"io"

	"github.com/dwarflint/dwarflint/dwarf/where"
	"github.com/fatih/color"
)

// Diagnostics is the diagnostic sink described by spec.md §5 "shared
// resource policy": the warning/error criteria are fixed when it is
// created and read-only afterwards. cmd/dwarflint creates one
// Diagnostics per input ELF file, so its message counter counts that
// file's diagnostics only.
type Diagnostics struct {
	w               io.Writer
	warningCriteria Criterion
	errorCriteria   Criterion
	showRef         bool
	color           bool
	errorCount      int
}

// New creates a Diagnostics writing to w. showRef controls whether
// each printed diagnostic is followed by a diagnostic's "caused by" chain (the
// --ref flag); useColor enables ANSI severity colouring.
func New(w io.Writer, warningCriteria, errorCriteria Criterion, showRef, useColor bool) *Diagnostics {
	return &Diagnostics{w: w, warningCriteria: warningCriteria, errorCriteria: errorCriteria, showRef: showRef, color: useColor}
}

// ErrorCount is the number of diagnostics printed so far, of either
// severity -- spec.md §4.2 "any printed diagnostic counts against exit
// success".
func (d *Diagnostics) ErrorCount() int {
	return d.errorCount
}

// Error always prints, at error severity, and always counts.
func (d *Diagnostics) Error(w where.Where, format string, a ...interface{}) {
	d.emit("error", w, fmt.Sprintf(format, a...))
}

// Warning always prints, at warning severity, and always counts.
func (d *Diagnostics) Warning(w where.Where, format string, a ...interface{}) {
	d.emit("warning", w, fmt.Sprintf(format, a...))
}

// Message prints only if the warning criterion accepts cat. When
// printed, its severity is error iff the error criterion also accepts
// cat, otherwise warning.
func (d *Diagnostics) Message(cat Category, w where.Where, format string, a ...interface{}) {
	if !d.warningCriteria.Accept(cat) {
		return
	}
	severity := "warning"
	if d.errorCriteria.Accept(cat) || cat&CatError != 0 {
		severity = "error"
	}
	d.emit(severity, w, fmt.Sprintf(format, a...))
}

func (d *Diagnostics) emit(severity string, w where.Where, msg string) {
	d.errorCount++

	label := severity
	if d.color {
		if severity == "error" {
			label = color.New(color.FgRed, color.Bold).Sprint(severity)
		} else {
			label = color.New(color.FgYellow).Sprint(severity)
		}
	}

	fmt.Fprintf(d.w, "%s: %s: %s\n", label, w.String(), msg)

	if !d.showRef {
		return
	}
	cause, ok := w.Ref()
	for ok {
		fmt.Fprintf(d.w, "    caused by this reference: %s\n", cause.String())
		cause, ok = cause.Ref()
	}
}
