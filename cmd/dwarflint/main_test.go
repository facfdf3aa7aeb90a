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

package main

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dwarflint/dwarflint/test"
)

// buildMinimalELF assembles the same tiny ET_EXEC object engine_test.go
// uses: .debug_abbrev, .debug_info and .shstrtab, one compile unit with
// a single childless DIE.
func buildMinimalELF() []byte {
	abbrevData := []byte{0x01, 0x11, 0x00, 0x00, 0x00, 0x00}

	var infoBody bytes.Buffer
	binary.Write(&infoBody, binary.LittleEndian, uint16(2))
	binary.Write(&infoBody, binary.LittleEndian, uint32(0))
	infoBody.WriteByte(4)
	infoBody.WriteByte(0x01)
	infoBody.WriteByte(0x00)

	var infoData bytes.Buffer
	binary.Write(&infoData, binary.LittleEndian, uint32(infoBody.Len()))
	infoData.Write(infoBody.Bytes())

	shstrtab := []byte("\x00.debug_abbrev\x00.debug_info\x00.shstrtab\x00")
	abbrevNameOff := uint32(1)
	infoNameOff := abbrevNameOff + uint32(len(".debug_abbrev\x00"))
	shstrtabNameOff := infoNameOff + uint32(len(".debug_info\x00"))

	const ehdrSize = 64
	const shdrSize = 64

	abbrevOff := uint64(ehdrSize)
	infoOff := abbrevOff + uint64(len(abbrevData))
	shstrtabOff := infoOff + uint64(infoData.Len())
	shoff := shstrtabOff + uint64(len(shstrtab))

	var buf bytes.Buffer

	buf.Write([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0})
	buf.Write(make([]byte, 8))

	binary.Write(&buf, binary.LittleEndian, uint16(elf.ET_EXEC))
	binary.Write(&buf, binary.LittleEndian, uint16(elf.EM_NONE))
	binary.Write(&buf, binary.LittleEndian, uint32(elf.EV_CURRENT))
	binary.Write(&buf, binary.LittleEndian, uint64(0))
	binary.Write(&buf, binary.LittleEndian, uint64(0))
	binary.Write(&buf, binary.LittleEndian, shoff)
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	binary.Write(&buf, binary.LittleEndian, uint16(ehdrSize))
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint16(shdrSize))
	binary.Write(&buf, binary.LittleEndian, uint16(4))
	binary.Write(&buf, binary.LittleEndian, uint16(3))

	buf.Write(abbrevData)
	buf.Write(infoData.Bytes())
	buf.Write(shstrtab)

	writeShdr := func(name uint32, typ elf.SectionType, offset, size uint64) {
		binary.Write(&buf, binary.LittleEndian, name)
		binary.Write(&buf, binary.LittleEndian, uint32(typ))
		binary.Write(&buf, binary.LittleEndian, uint64(0))
		binary.Write(&buf, binary.LittleEndian, uint64(0))
		binary.Write(&buf, binary.LittleEndian, offset)
		binary.Write(&buf, binary.LittleEndian, size)
		binary.Write(&buf, binary.LittleEndian, uint32(0))
		binary.Write(&buf, binary.LittleEndian, uint32(0))
		binary.Write(&buf, binary.LittleEndian, uint64(1))
		binary.Write(&buf, binary.LittleEndian, uint64(0))
	}

	writeShdr(0, elf.SHT_NULL, 0, 0)
	writeShdr(abbrevNameOff, elf.SHT_PROGBITS, abbrevOff, uint64(len(abbrevData)))
	writeShdr(infoNameOff, elf.SHT_PROGBITS, infoOff, uint64(infoData.Len()))
	writeShdr(shstrtabNameOff, elf.SHT_STRTAB, shstrtabOff, uint64(len(shstrtab)))

	return buf.Bytes()
}

func writeTempELF(t *testing.T, dir, name string) string {
	path := filepath.Join(dir, name)
	test.ExpectSuccess(t, os.WriteFile(path, buildMinimalELF(), 0o644) == nil)
	return path
}

func TestRunSingleFileNoErrors(t *testing.T) {
	path := writeTempELF(t, t.TempDir(), "test.elf")

	var stdout, stderr strings.Builder
	code := run([]string{path}, &stdout, &stderr)
	test.ExpectEquality(t, code, 0)
	test.ExpectSuccess(t, strings.Contains(stdout.String(), "No errors"))
}

func TestRunMissingFileNameIsUsageError(t *testing.T) {
	var stdout, stderr strings.Builder
	code := run(nil, &stdout, &stderr)
	test.ExpectEquality(t, code, 1)
	test.ExpectSuccess(t, strings.Contains(stderr.String(), "missing file name"))
}

func TestRunQuietAndVerboseAreMutuallyExclusive(t *testing.T) {
	path := writeTempELF(t, t.TempDir(), "test.elf")

	var stdout, stderr strings.Builder
	code := run([]string{"-q", "-v", path}, &stdout, &stderr)
	test.ExpectEquality(t, code, 1)
	test.ExpectSuccess(t, strings.Contains(stderr.String(), "mutually exclusive"))
}

func TestRunMultipleFilesPrintsFileHeader(t *testing.T) {
	dir := t.TempDir()
	a := writeTempELF(t, dir, "a.elf")
	b := writeTempELF(t, dir, "b.elf")

	var stdout, stderr strings.Builder
	code := run([]string{a, b}, &stdout, &stderr)
	test.ExpectEquality(t, code, 0)
	test.ExpectSuccess(t, strings.Contains(stdout.String(), a+":"))
	test.ExpectSuccess(t, strings.Contains(stdout.String(), b+":"))
}

func TestRunMissingInputFileReportsError(t *testing.T) {
	dir := t.TempDir()
	nope := filepath.Join(dir, "nope.elf")

	var stdout, stderr strings.Builder
	code := run([]string{nope}, &stdout, &stderr)
	test.ExpectEquality(t, code, 1)
}

func TestRunVerbosePrintsCriteria(t *testing.T) {
	path := writeTempELF(t, t.TempDir(), "test.elf")

	var stdout, stderr strings.Builder
	code := run([]string{"-v", path}, &stdout, &stderr)
	test.ExpectEquality(t, code, 0)
	test.ExpectSuccess(t, strings.Contains(stdout.String(), "warning criteria:"))
	test.ExpectSuccess(t, strings.Contains(stdout.String(), "error criteria:"))
}
