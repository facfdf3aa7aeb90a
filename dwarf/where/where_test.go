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

package where_test

import (
	"testing"

	"github.com/dwarflint/dwarflint/dwarf/where"
	"github.com/dwarflint/dwarflint/test"
)

func TestInfoCoordinate(t *testing.T) {
	w := where.New(where.SecInfo).Reset1(0).Reset2(0x11)
	test.ExpectEquality(t, w.String(), ".debug_info: CU 0: DIE 0x11")
}

func TestCUDIEFormatting(t *testing.T) {
	w := where.New(where.SecInfo).Reset1(3).WithFormatting(where.FormatCUDIE)
	test.ExpectEquality(t, w.String(), ".debug_info: CU 3 DIE")
}

func TestAbbrevCoordinate(t *testing.T) {
	w := where.New(where.SecAbbrev).Reset1(0)
	test.ExpectEquality(t, w.String(), ".debug_abbrev: 0x0")
}

func TestChain(t *testing.T) {
	cause := where.New(where.SecInfo).Reset1(0).Reset2(0x0b)
	w := where.New(where.SecLoc).Reset1(0x40).Chain(cause)

	ref, ok := w.Ref()
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, ref.String(), ".debug_info: CU 0: DIE 0xb")
}

func TestFileLabel(t *testing.T) {
	w := where.New(where.SecInfo).Reset1(0).WithFile("a.elf")
	test.ExpectEquality(t, w.String(), "a.elf: .debug_info: CU 0")
}

func TestReset2RequiresReset1(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic calling Reset2 without Reset1")
		}
	}()
	where.New(where.SecInfo).Reset2(1)
}
