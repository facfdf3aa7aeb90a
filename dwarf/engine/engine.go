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

// Package engine drives the fixed section-loading order over one ELF
// object: abbrev, then info, then aranges/pubnames/pubtypes/loc/ranges/
// line, wiring each loader's output into the next the way the teacher's
// top-level emulation loop wires its VCS components together each
// frame, one pass, no loop-back.
package engine

import (
	"encoding/binary"

	"github.com/dwarflint/dwarflint/dwarf/abbrev"
	"github.com/dwarflint/dwarflint/dwarf/aranges"
	"github.com/dwarflint/dwarflint/dwarf/coverage"
	"github.com/dwarflint/dwarflint/dwarf/diag"
	"github.com/dwarflint/dwarflint/dwarf/elfscan"
	"github.com/dwarflint/dwarflint/dwarf/info"
	"github.com/dwarflint/dwarflint/dwarf/line"
	"github.com/dwarflint/dwarflint/dwarf/locrange"
	"github.com/dwarflint/dwarflint/dwarf/pubs"
	"github.com/dwarflint/dwarflint/dwarf/readctx"
	"github.com/dwarflint/dwarflint/dwarf/reloc"
	"github.com/dwarflint/dwarflint/dwarf/where"
	"github.com/dwarflint/dwarflint/elfview"
	"github.com/dwarflint/dwarflint/errors"
	"github.com/dwarflint/dwarflint/logger"
)

// HighLevelChecker is the semantic, decoded-tree collaborator spec.md
// keeps out of core scope: checks that need a fully resolved DWARF tree
// (expected parent/child tree shapes, aranges-vs-ranges agreement)
// rather than the raw structural pass this package performs. CheckFile
// runs it, if supplied, only after the structural pass leaves no
// diagnostics -- the same "only if the structural checks were clean"
// gating `process_file` in original_source/src/dwarflint.c uses before
// calling `check_expected_trees`/`check_matching_ranges`.
type HighLevelChecker interface {
	CheckExpectedTrees(*info.Result) error
	CheckMatchingRanges(*info.Result) error
}

// CheckFile opens path as an ELF object and runs every structural check
// over it, writing diagnostics to d. A non-nil return is a fatal driver
// failure (the file could not be opened or scanned at all); individual
// section problems are reported through d and do not stop the rest of
// the checks from running. ignoreMissing makes an absent section a
// silent no-op instead of an error, matching the `-i` flag. fileLabel
// tags the ELF-level diagnostics (duplicate symbol table, missing
// .debug_abbrev/.debug_info) and the missing-.debug_line diagnostic with
// the input file they came from; other diagnostics carry no file name.
// Pass "" when only one file is being
// checked in the run (original_source's "only_one" rule -- a single
// file's messages carry no filename prefix). hl is the optional
// high-level collaborator; pass nil to behave as if `--nohl` were
// given.
func CheckFile(path string, d *diag.Diagnostics, ignoreMissing bool, fileLabel string, hl HighLevelChecker) error {
	v, err := elfview.Open(path)
	if err != nil {
		return errors.Errorf("opening %s: %v", path, err)
	}
	defer v.Close()

	scan, err := elfscan.Run(v)
	if err != nil {
		return errors.Errorf("scanning %s: %v", path, err)
	}

	elfWhere := where.New(where.SecElf)
	if fileLabel != "" {
		elfWhere = elfWhere.WithFile(fileLabel)
	}

	if scan.DuplicateSymtab {
		d.Message(diag.CatElf|diag.CatHeader, elfWhere,
			"object contains more than one symbol table; the first remains authoritative")
	}

	order := v.ByteOrder()
	addrSize := v.AddressSize()

	abbrevDS, ok := scan.Sections[".debug_abbrev"]
	if !ok {
		if !ignoreMissing {
			d.Error(elfWhere, "required section .debug_abbrev is missing")
		}
		return nil
	}
	infoDS, ok := scan.Sections[".debug_info"]
	if !ok {
		if !ignoreMissing {
			d.Error(elfWhere, "required section .debug_info is missing")
		}
		return nil
	}

	abbrevCtx := readctx.New(abbrevDS.Data, order, addrSize)
	tables, err := abbrev.Load(abbrevCtx, d)
	if err != nil {
		return errors.Errorf("%s: .debug_abbrev: %v", path, err)
	}
	logger.Logf("dwarf", "%s: loaded %d abbreviation table(s)", path, len(tables))

	infoCtx := readctx.New(infoDS.Data, order, addrSize)
	infoResult, err := info.Load(infoCtx, relOf(infoDS), tables, d)
	if err != nil {
		return errors.Errorf("%s: .debug_info: %v", path, err)
	}
	logger.Logf("dwarf", "%s: loaded %d compile unit(s)", path, len(infoResult.CUs))

	// aranges runs before ranges: the cross-check below sees only the
	// low_pc/high_pc coverage info already built, not coverage
	// contributed later by walking DW_AT_ranges.
	if ds, ok := scan.Sections[".debug_aranges"]; ok {
		ctx := readctx.New(ds.Data, order, addrSize)
		if _, err := aranges.Load(ctx, relOf(ds), infoResult, d); err != nil {
			d.Error(where.New(where.SecAranges), "fatal error reading .debug_aranges: %v", err)
		}
	}

	if ds, ok := scan.Sections[".debug_pubnames"]; ok {
		ctx := readctx.New(ds.Data, order, addrSize)
		if _, err := pubs.Load(ctx, relOf(ds), infoResult, where.SecPubnames, diag.CatPubtables, d); err != nil {
			d.Error(where.New(where.SecPubnames), "fatal error reading .debug_pubnames: %v", err)
		}
	}

	if ds, ok := scan.Sections[".debug_pubtypes"]; ok {
		ctx := readctx.New(ds.Data, order, addrSize)
		if _, err := pubs.Load(ctx, relOf(ds), infoResult, where.SecPubtypes, diag.CatPubtypes, d); err != nil {
			d.Error(where.New(where.SecPubtypes), "fatal error reading .debug_pubtypes: %v", err)
		}
	}

	checkLocRanges(scan, infoResult, order, ignoreMissing, d)
	checkLine(scan, infoResult, order, addrSize, ignoreMissing, d, fileLabel)

	if hl != nil && d.ErrorCount() == 0 {
		if err := hl.CheckExpectedTrees(infoResult); err != nil {
			d.Error(where.New(where.SecInfo), "high-level tree check failed: %v", err)
		}
		if err := hl.CheckMatchingRanges(infoResult); err != nil {
			d.Error(where.New(where.SecAranges), "high-level ranges check failed: %v", err)
		}
	}

	return nil
}

// checkLocRanges walks every .debug_loc and .debug_ranges listhead
// reached from a CU attribute. The two sections share a per-run
// coverage set each so that a reference landing inside another list's
// already-visited bytes is caught across CUs, not just within one.
func checkLocRanges(scan *elfscan.Scan, infoResult *info.Result, order binary.ByteOrder, ignoreMissing bool, d *diag.Diagnostics) {
	locDS, hasLoc := scan.Sections[".debug_loc"]
	rangesDS, hasRanges := scan.Sections[".debug_ranges"]
	locCov := coverage.New()
	rangesCov := coverage.New()

	for _, cu := range infoResult.CUs {
		if len(cu.LocRefs) > 0 {
			if !hasLoc {
				if !ignoreMissing {
					d.Error(cu.Where, ".debug_loc is referenced but missing from the object")
				}
			} else {
				rel := relOf(locDS)
				for _, ref := range cu.LocRefs {
					if err := locrange.Walk(locDS.Data, order, rel, ref, locrange.KindLoc, cu.AddrSize, locCov, nil, d); err != nil {
						d.Error(cu.Where, "fatal error walking .debug_loc list at %#x: %v", ref, err)
					}
				}
			}
		}
		if len(cu.RangeRefs) > 0 {
			if !hasRanges {
				if !ignoreMissing {
					d.Error(cu.Where, ".debug_ranges is referenced but missing from the object")
				}
			} else {
				rel := relOf(rangesDS)
				for _, ref := range cu.RangeRefs {
					if err := locrange.Walk(rangesDS.Data, order, rel, ref, locrange.KindRanges, cu.AddrSize, rangesCov, cu.Coverage, d); err != nil {
						d.Error(cu.Where, "fatal error walking .debug_ranges list at %#x: %v", ref, err)
					}
				}
			}
		}
	}
}

func checkLine(scan *elfscan.Scan, infoResult *info.Result, order binary.ByteOrder, addrSize int, ignoreMissing bool, d *diag.Diagnostics, fileLabel string) {
	lineRefs := map[uint64]bool{}
	for _, cu := range infoResult.CUs {
		for _, ref := range cu.LineRefs {
			lineRefs[ref] = true
		}
	}
	if len(lineRefs) == 0 {
		return
	}

	ds, ok := scan.Sections[".debug_line"]
	if !ok {
		if !ignoreMissing {
			w := where.New(where.SecLine)
			if fileLabel != "" {
				w = w.WithFile(fileLabel)
			}
			d.Error(w, ".debug_line is referenced but missing from the object")
		}
		return
	}

	ctx := readctx.New(ds.Data, order, addrSize)
	if _, err := line.Load(ctx, relOf(ds), lineRefs, d); err != nil {
		d.Error(where.New(where.SecLine), "fatal error reading .debug_line: %v", err)
	}
}

func relOf(ds *elfscan.DebugSection) *reloc.Table {
	if ds.Reloc != nil {
		return ds.Reloc
	}
	return reloc.New(nil)
}
