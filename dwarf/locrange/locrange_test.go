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

package locrange_test

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/dwarflint/dwarflint/dwarf/coverage"
	"github.com/dwarflint/dwarflint/dwarf/diag"
	"github.com/dwarflint/dwarflint/dwarf/locrange"
	"github.com/dwarflint/dwarflint/dwarf/reloc"
	"github.com/dwarflint/dwarflint/test"
)

func le32(v uint32) []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }

func TestWalkRangesOverlap(t *testing.T) {
	var data []byte
	data = append(data, le32(0x1000)...)
	data = append(data, le32(0x1010)...)
	data = append(data, le32(0x1008)...)
	data = append(data, le32(0x1020)...)
	data = append(data, le32(0)...)
	data = append(data, le32(0)...)

	cov := coverage.New()
	var out strings.Builder
	d := diag.New(&out, diag.Accepting(), diag.Nothing(), false, false)

	err := locrange.Walk(data, binary.LittleEndian, reloc.New(nil), 0, locrange.KindRanges, 4, cov, nil, d)
	test.ExpectSuccess(t, err == nil)
	test.ExpectSuccess(t, strings.Contains(out.String(), "range definitions overlap"))
}

func TestWalkEmptyEntryIsBloat(t *testing.T) {
	var data []byte
	data = append(data, le32(0x1000)...)
	data = append(data, le32(0x1000)...)
	data = append(data, le32(0)...)
	data = append(data, le32(0)...)

	cov := coverage.New()
	var out strings.Builder
	d := diag.New(&out, diag.Accepting(), diag.Nothing(), false, false)

	err := locrange.Walk(data, binary.LittleEndian, reloc.New(nil), 0, locrange.KindRanges, 4, cov, nil, d)
	test.ExpectSuccess(t, err == nil)
	test.ExpectSuccess(t, strings.Contains(out.String(), "entry covers no range"))
}
