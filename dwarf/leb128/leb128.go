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

// Package leb128 decodes the variable-length integer encodings used
// throughout DWARF wire data.
package leb128

// DecodeULEB128 decodes an unsigned LEB128 value from the front of
// encoded. It returns the value, the number of bytes consumed, and
// whether the encoding was "bloated" -- it used more bytes than the
// minimum required to represent the value (the final byte is 0x00 and
// follows a continuation byte, so it adds nothing to the value).
func DecodeULEB128(encoded []uint8) (value uint64, n int, bloat bool) {
	var shift uint64

	for _, v := range encoded {
		n++
		payload := uint64(v & 0x7f)
		value |= payload << shift
		if v&0x80 == 0x00 {
			break
		}
		shift += 7
	}

	bloat = isBloatedULEB(encoded[:n])
	return value, n, bloat
}

// isBloatedULEB reports whether the encoding could have been shorter: a
// final 0x00 byte that follows a continuation byte contributes nothing
// to the value and could have been omitted.
func isBloatedULEB(encoded []uint8) bool {
	if len(encoded) < 2 {
		return false
	}
	last := encoded[len(encoded)-1]
	prev := encoded[len(encoded)-2]
	return last == 0x00 && prev&0x80 != 0
}

// DecodeSLEB128 decodes a signed LEB128 value from the front of encoded.
// It returns the value, the number of bytes consumed, and whether the
// encoding used more bytes than the minimum required to represent the
// value and its sign.
func DecodeSLEB128(encoded []uint8) (value int64, n int, bloat bool) {
	const size = 64

	var shift uint64
	var v uint8

	for _, v = range encoded {
		n++
		value |= int64(v&0x7f) << shift
		shift += 7
		if v&0x80 == 0x00 {
			break
		}
	}

	if shift < size && v&0x40 != 0 {
		value |= -(1 << shift)
	}

	// a final 0x00 (or 0x7f) byte is redundant when bit 6 of the byte
	// before it already carries the same sign
	if n >= 2 {
		prev := encoded[n-2]
		bloat = (v == 0x00 && prev&0x40 == 0) || (v == 0x7f && prev&0x40 != 0)
	}
	return value, n, bloat
}
