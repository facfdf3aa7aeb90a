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

package readctx_test

import (
	"encoding/binary"
	"testing"

	"github.com/dwarflint/dwarflint/dwarf/readctx"
	"github.com/dwarflint/dwarflint/test"
)

func TestPrimitiveReads(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	c := readctx.New(data, binary.LittleEndian, 4)

	b, err := c.ReadUByte()
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, b, uint8(0x01))

	h, err := c.Read2Ubyte()
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, h, uint16(0x0302))

	w, err := c.Read4Ubyte()
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, w, uint32(0x08070605))

	test.ExpectSuccess(t, c.Eof())
}

func TestOutOfBounds(t *testing.T) {
	c := readctx.New([]byte{0x01}, binary.LittleEndian, 4)
	_, err := c.Read4Ubyte()
	test.ExpectFailure(t, err)
}

func TestULEB128Bloat(t *testing.T) {
	c := readctx.New([]byte{0x80, 0x00}, binary.LittleEndian, 4)
	v, bloat, err := c.ReadULEB128()
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint64(0))
	test.ExpectSuccess(t, bloat)
}

func TestReadStr(t *testing.T) {
	c := readctx.New([]byte("hello\x00world"), binary.LittleEndian, 4)
	s, err := c.ReadStr()
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, s, "hello")
	test.ExpectEquality(t, c.Offset(), 6)
}

func TestSubCursorBounds(t *testing.T) {
	data := make([]byte, 16)
	c := readctx.New(data, binary.LittleEndian, 4)

	sub, err := c.InitSub(4, 10)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, sub.Offset(), 0)
	test.ExpectSuccess(t, sub.Skip(6))
	test.ExpectSuccess(t, sub.Eof())

	_, err = c.InitSub(10, 20)
	test.ExpectFailure(t, err)
}
