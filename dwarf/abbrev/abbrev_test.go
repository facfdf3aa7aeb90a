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

package abbrev_test

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/dwarflint/dwarflint/dwarf/abbrev"
	"github.com/dwarflint/dwarflint/dwarf/diag"
	"github.com/dwarflint/dwarflint/dwarf/readctx"
	"github.com/dwarflint/dwarflint/test"
)

// simpleAbbrev builds one abbreviation: code, tag, has_children, then
// (name,form) pairs, then a (0,0) terminator.
func simpleAbbrev(code, tag uint64, hasChildren bool, pairs ...uint64) []byte {
	var b []byte
	b = appendULEB(b, code)
	b = appendULEB(b, tag)
	if hasChildren {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	for _, p := range pairs {
		b = appendULEB(b, p)
	}
	b = appendULEB(b, 0)
	b = appendULEB(b, 0)
	return b
}

func appendULEB(b []byte, v uint64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b = append(b, c|0x80)
		} else {
			b = append(b, c)
			return b
		}
	}
}

func TestLoadSingleTable(t *testing.T) {
	data := simpleAbbrev(1, 0x11, true, 0x03, 0x08) // DW_TAG_compile_unit, DW_AT_name/string
	data = append(data, 0)                          // table terminator

	ctx := readctx.New(data, binary.LittleEndian, 4)
	var out strings.Builder
	d := diag.New(&out, diag.Nothing(), diag.Nothing(), false, false)

	tables, err := abbrev.Load(ctx, d)
	test.ExpectSuccess(t, err == nil)
	test.ExpectEquality(t, len(tables), 1)

	tbl := tables[0]
	ab, ok := tbl.Lookup(1)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, len(ab.Attributes), 1)
}

func TestDuplicateCodeReported(t *testing.T) {
	data := simpleAbbrev(1, 0x24, false)
	data = append(data, simpleAbbrev(1, 0x2e, false)...)
	data = append(data, 0)

	ctx := readctx.New(data, binary.LittleEndian, 4)
	var out strings.Builder
	d := diag.New(&out, diag.Accepting(), diag.Nothing(), false, false)

	_, err := abbrev.Load(ctx, d)
	test.ExpectSuccess(t, err == nil)
	test.ExpectSuccess(t, strings.Contains(out.String(), "duplicate abbrev code"))
}

func TestHighPCWithoutLowPCIsError(t *testing.T) {
	data := simpleAbbrev(1, 0x2e, false, 0x12, 0x01) // high_pc/addr only
	data = append(data, 0)

	ctx := readctx.New(data, binary.LittleEndian, 4)
	var out strings.Builder
	warn := diag.Accepting()
	d := diag.New(&out, warn, diag.Nothing(), false, false)

	_, err := abbrev.Load(ctx, d)
	test.ExpectSuccess(t, err == nil)
	test.ExpectSuccess(t, strings.Contains(out.String(), "high_pc attribute without low_pc"))
}

func TestHighPCWithLowPCAndStmtListIsNotFlaggedAsRanges(t *testing.T) {
	// low_pc(addr), stmt_list(data4), high_pc(addr) -- no DW_AT_ranges.
	data := simpleAbbrev(1, 0x2e, false, 0x11, 0x01, 0x10, 0x06, 0x12, 0x01)
	data = append(data, 0)

	ctx := readctx.New(data, binary.LittleEndian, 4)
	var out strings.Builder
	d := diag.New(&out, diag.Accepting(), diag.Nothing(), false, false)

	_, err := abbrev.Load(ctx, d)
	test.ExpectSuccess(t, err == nil)
	test.ExpectFailure(t, strings.Contains(out.String(), "combined with both low_pc and ranges"))
}

func TestHighPCWithLowPCAndRangesIsError(t *testing.T) {
	// low_pc(addr), ranges(data4), high_pc(addr).
	data := simpleAbbrev(1, 0x2e, false, 0x11, 0x01, 0x55, 0x06, 0x12, 0x01)
	data = append(data, 0)

	ctx := readctx.New(data, binary.LittleEndian, 4)
	var out strings.Builder
	d := diag.New(&out, diag.Accepting(), diag.Nothing(), false, false)

	_, err := abbrev.Load(ctx, d)
	test.ExpectSuccess(t, err == nil)
	test.ExpectSuccess(t, strings.Contains(out.String(), "combined with both low_pc and ranges"))
}

func TestMultipleTerminatingZerosReportsPadding(t *testing.T) {
	data := simpleAbbrev(1, 0x24, false)
	data = append(data, 0, 0, 0) // extra zero codes after the table

	ctx := readctx.New(data, binary.LittleEndian, 4)
	var out strings.Builder
	warn := diag.Accepting()
	d := diag.New(&out, warn, diag.Nothing(), false, false)

	_, err := abbrev.Load(ctx, d)
	test.ExpectSuccess(t, err == nil)
	test.ExpectSuccess(t, strings.Contains(out.String(), "padded with multiple terminating zero codes"))
}
