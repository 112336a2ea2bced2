// This file is part of bwpatch.
//
// bwpatch is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// bwpatch is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with bwpatch.  If not, see <https://www.gnu.org/licenses/>.

package asm_test

import (
	"testing"

	"github.com/scooterteam/bwpatch/asm"
	"github.com/scooterteam/bwpatch/test"
	"github.com/stretchr/testify/assert"
)

func TestAssemble_nop(t *testing.T) {
	a := asm.New()
	got, err := a.Assemble("nop", 0)
	test.ExpectSuccess(t, err)
	assert.Equal(t, []byte{0xC0, 0x46}, got)
}

func TestAssemble_movsNarrow(t *testing.T) {
	a := asm.New()
	got, err := a.Assemble("movs r2, #0x5", 0)
	test.ExpectSuccess(t, err)
	assert.Equal(t, []byte{0x05, 0x22}, got)
}

func TestAssemble_movRegReg(t *testing.T) {
	a := asm.New()
	got, err := a.Assemble("mov r0, r4", 0)
	test.ExpectSuccess(t, err)
	assert.Equal(t, []byte{0x20, 0x46}, got)
}

func TestAssemble_cmpImmediate(t *testing.T) {
	a := asm.New()
	got, err := a.Assemble("cmp r1, #0xff", 0)
	test.ExpectSuccess(t, err)
	assert.Equal(t, []byte{0xff, 0x29}, got)
}

func TestAssemble_lsls(t *testing.T) {
	a := asm.New()
	got, err := a.Assemble("lsls r0, r1, #0x4", 0)
	test.ExpectSuccess(t, err)
	assert.Len(t, got, 2)
}

func TestAssemble_ldrPCNarrow(t *testing.T) {
	a := asm.New()
	got, err := a.Assemble("ldr r0, [pc, #0x8]", 0)
	test.ExpectSuccess(t, err)
	assert.Equal(t, []byte{0x02, 0x48}, got)
}

func TestAssemble_ldrRegOffset(t *testing.T) {
	a := asm.New()
	got, err := a.Assemble("ldr r0, [r1, #0x4]", 0)
	test.ExpectSuccess(t, err)
	assert.Len(t, got, 2)
}

func TestAssemble_movWide(t *testing.T) {
	a := asm.New()
	got, err := a.Assemble("movs.w r0, #0x1234", 0)
	test.ExpectSuccess(t, err)
	assert.Len(t, got, 4)
}

func TestAssemble_ldrbWide(t *testing.T) {
	a := asm.New()
	got, err := a.Assemble("ldrb.w r0, [r8, #0x5]", 0)
	test.ExpectSuccess(t, err)
	assert.Len(t, got, 4)
}

func TestAssemble_branchToLabel(t *testing.T) {
	a := asm.New()
	got, err := a.Assemble("b target; nop; nop; target:; nop", 0)
	test.ExpectSuccess(t, err)
	// b, nop, nop, nop = 8 bytes; branch target sits right after the two nops
	assert.Len(t, got, 8)
}

func TestAssemble_conditionalBranch(t *testing.T) {
	a := asm.New()
	got, err := a.Assemble("bcs target; nop; target:", 0)
	test.ExpectSuccess(t, err)
	assert.Len(t, got, 4)
}

func TestAssemble_branchOutOfRange(t *testing.T) {
	a := asm.New()
	_, err := a.Assemble("b #0x1000", 0)
	test.ExpectFailure(t, err)
}

func TestAssemble_unsupportedInstruction(t *testing.T) {
	a := asm.New()
	_, err := a.Assemble("vmov r0, r1", 0)
	test.ExpectFailure(t, err)
}

func TestDisassemble_roundTripNarrow(t *testing.T) {
	a := asm.New()
	code, err := a.Assemble("movs r2, #0x5; cmp r2, #0x5; bne target; movs r3, #0x1; target:", 0)
	test.ExpectSuccess(t, err)
	out := a.Disassemble(code)
	assert.Contains(t, out, "movs\tr2, #0x5")
	assert.Contains(t, out, "cmp\tr2, #0x5")
	assert.Contains(t, out, "bne")
}

func TestDisassemble_roundTripWideMov(t *testing.T) {
	a := asm.New()
	code, err := a.Assemble("movs.w r0, #0x1234", 0)
	test.ExpectSuccess(t, err)
	out := a.Disassemble(code)
	assert.Equal(t, "movs.w\tr0, #0x1234", out)
}

func TestDisassemble_roundTripWideLdrb(t *testing.T) {
	a := asm.New()
	code, err := a.Assemble("ldrb.w r0, [r8, #0x5]", 0)
	test.ExpectSuccess(t, err)
	out := a.Disassemble(code)
	assert.Equal(t, "ldrb.w\tr0, [r8, #0x5]", out)
}

func TestDisassemble_nop(t *testing.T) {
	a := asm.New()
	out := a.Disassemble([]byte{0xC0, 0x46})
	assert.Equal(t, "nop", out)
}
