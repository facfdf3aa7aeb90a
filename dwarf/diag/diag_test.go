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

package diag_test

import (
	"strings"
	"testing"

	"github.com/dwarflint/dwarflint/dwarf/diag"
	"github.com/dwarflint/dwarflint/dwarf/where"
	"github.com/dwarflint/dwarflint/test"
)

func TestCriterionAccept(t *testing.T) {
	c := diag.Accepting().AndNot(diag.Term{Positive: diag.AccBloat})
	test.ExpectFailure(t, c.Accept(diag.AccBloat))
	test.ExpectSuccess(t, c.Accept(diag.CatInfo))
}

func TestCriterionRoundTripShape(t *testing.T) {
	// the dump half of property 7: String names each term's positive
	// categories and its negated ones (no parser exists to read it back)
	c := diag.Nothing().Or(diag.Just(diag.CatLoc)).Or(diag.Not(diag.AccBloat))
	s := c.String()
	test.ExpectSuccess(t, strings.Contains(s, "loc"))
	test.ExpectSuccess(t, strings.Contains(s, "!acc_bloat"))
}

func TestMessageSuppressedWhenRejected(t *testing.T) {
	var b strings.Builder
	d := diag.New(&b, diag.Nothing(), diag.Nothing(), false, false)
	d.Message(diag.CatLoc, where.New(where.SecLoc), "should not appear")
	test.ExpectEquality(t, b.String(), "")
	test.ExpectEquality(t, d.ErrorCount(), 0)
}

func TestMessageEscalatesToError(t *testing.T) {
	var b strings.Builder
	warn := diag.Accepting()
	errC := diag.Accepting().And(diag.Just(diag.CatLoc))
	d := diag.New(&b, warn, errC, false, false)
	d.Message(diag.CatLoc, where.New(where.SecLoc).Reset1(0), "overlap")
	test.ExpectSuccess(t, strings.HasPrefix(b.String(), "error:"))
}

func TestMessageStaysWarning(t *testing.T) {
	var b strings.Builder
	warn := diag.Accepting()
	errC := diag.Nothing()
	d := diag.New(&b, warn, errC, false, false)
	d.Message(diag.AccBloat, where.New(where.SecLoc).Reset1(0), "wasteful")
	test.ExpectSuccess(t, strings.HasPrefix(b.String(), "warning:"))
}

func TestErrorAndWarningAlwaysCount(t *testing.T) {
	var b strings.Builder
	d := diag.New(&b, diag.Nothing(), diag.Nothing(), false, false)
	d.Error(where.New(where.SecInfo), "bad")
	d.Warning(where.New(where.SecInfo), "meh")
	test.ExpectEquality(t, d.ErrorCount(), 2)
}

func TestRefChainPrinted(t *testing.T) {
	var b strings.Builder
	d := diag.New(&b, diag.Nothing(), diag.Nothing(), true, false)
	cause := where.New(where.SecInfo).Reset1(0).Reset2(0x0b)
	d.Error(where.New(where.SecLoc).Reset1(0x40).Chain(cause), "bad")
	test.ExpectSuccess(t, strings.Contains(b.String(), "caused by this reference"))
}
