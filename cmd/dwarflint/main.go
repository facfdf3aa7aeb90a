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

// Command dwarflint is the front end: it turns the -q/-v/-i/--strict/
// --gnu/--tolerant/--nohl/--ref flags into a warning/error diag.Criterion
// pair, then drives engine.CheckFile once per input file.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dwarflint/dwarflint/dwarf/diag"
	"github.com/dwarflint/dwarflint/dwarf/engine"
	"github.com/dwarflint/dwarflint/logger"
	"github.com/fatih/color"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var (
		quiet    bool
		verbose  bool
		ignore   bool
		strict   bool
		gnu      bool
		tolerant bool
		nohl     bool
		showRef  bool
	)

	flgs := flag.NewFlagSet("dwarflint", flag.ContinueOnError)
	flgs.SetOutput(stderr)
	flgs.BoolVar(&quiet, "q", false, "be quiet: print nothing when a file has no diagnostics")
	flgs.BoolVar(&verbose, "v", false, "be verbose: print the effective warning/error criteria before running")
	flgs.BoolVar(&ignore, "i", false, "ignore missing debug sections instead of reporting them")
	flgs.BoolVar(&strict, "strict", false, "flag extra (level 2) features that are usually tolerated")
	flgs.BoolVar(&gnu, "gnu", false, "tolerate constructs the GNU toolchain is known to emit")
	flgs.BoolVar(&tolerant, "tolerant", false, "don't flag .debug_loc / .debug_ranges issues")
	flgs.BoolVar(&nohl, "nohl", false, "skip high-level (cross-section) checks")
	flgs.BoolVar(&showRef, "ref", false, "print the reference chain that caused each diagnostic")

	if err := flgs.Parse(args); err != nil {
		return 1
	}

	if quiet && verbose {
		fmt.Fprintln(stderr, "dwarflint: -q and -v are mutually exclusive")
		return 1
	}

	files := flgs.Args()
	if len(files) == 0 {
		fmt.Fprintln(stderr, "dwarflint: missing file name")
		flgs.Usage()
		return 1
	}

	warningCriteria, errorCriteria := criteria(strict, gnu, tolerant)

	if verbose {
		fmt.Fprintf(stdout, "warning criteria: %s\n", warningCriteria)
		fmt.Fprintf(stdout, "error criteria:   %s\n", errorCriteria)
	}

	// this front end has no engine.HighLevelChecker implementation to
	// offer (spec.md keeps that collaborator out of core scope), so
	// --nohl and the no-flag default behave identically: CheckFile is
	// always given a nil checker and skips the high-level step either
	// way.
	var hl engine.HighLevelChecker
	_ = nohl

	onlyOne := len(files) == 1
	errorCount := 0

	for _, path := range files {
		label := ""
		if !onlyOne {
			label = path
			fmt.Fprintf(stdout, "\n%s:\n", path)
		}

		d := diag.New(stdout, warningCriteria, errorCriteria, showRef, !color.NoColor)

		if err := engine.CheckFile(path, d, ignore, label, hl); err != nil {
			fmt.Fprintf(stderr, "dwarflint: %v\n", err)
			errorCount++
			continue
		}

		if d.ErrorCount() == 0 {
			if !quiet {
				fmt.Fprintln(stdout, "No errors")
			}
		} else {
			errorCount += d.ErrorCount()
		}
	}

	logger.Logf("dwarflint", "checked %d file(s), %d diagnostic(s) total", len(files), errorCount)

	if errorCount != 0 {
		return 1
	}
	return 0
}

// criteria builds the warning and error criteria the same way
// original_source/src/dwarflint.c's main() assembles message_cri_and/
// message_cri_and_not/message_cri_or calls: start from "accept
// everything" / "accept impact-4 and forced errors", then narrow by
// whichever tolerance flags were given.
func criteria(strict, gnu, tolerant bool) (diag.Criterion, diag.Criterion) {
	warning := diag.Accepting()
	errCriteria := diag.Nothing().Or(diag.Just(diag.ImpactLevel4)).Or(diag.Just(diag.CatError))

	if gnu {
		warning = warning.And(diag.Not(diag.AccBloat))
	}

	if !strict {
		warning = warning.And(diag.Not(diag.CatStrings))
		warning = warning.AndNot(diag.Just(diag.AccBloat))
		warning = warning.And(diag.Not(diag.CatPubtypes))
	}

	if tolerant {
		warning = warning.And(diag.Not(diag.CatLoc))
		warning = warning.And(diag.Not(diag.CatRanges))
	}

	return warning, errCriteria
}
