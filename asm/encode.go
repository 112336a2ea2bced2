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

package asm

import (
	"strings"

	"github.com/scooterteam/bwpatch/errors"
)

var condCodes = map[string]uint16{
	"beq": 0x0, "bne": 0x1,
	"bcs": 0x2, "bhs": 0x2,
	"bcc": 0x3, "blo": 0x3,
	"bls": 0x9,
	"bge": 0xA, "blt": 0xB,
	"bgt": 0xC, "ble": 0xD,
}

func encode(ln string, addr uint32, labels map[string]uint32) ([]byte, error) {
	mnemonic, operands := fields(ln)

	switch mnemonic {
	case "nop":
		return putLE16(0x46C0), nil // mov r8, r8

	case "movs", "movs.w", "mov.w", "mov":
		return encodeMov(mnemonic, operands)

	case "lsls":
		return encodeLSLS(operands)

	case "cmp":
		return encodeCmp(operands)

	case "ldr":
		return encodeLDR(operands, addr)

	case "ldrb":
		return encodeLDRB(operands)

	case "ldrb.w":
		return encodeLDRBWide(operands)

	case "b":
		return encodeB(operands, addr, labels)

	default:
		if cond, ok := condCodes[mnemonic]; ok {
			return encodeConditionalBranch(cond, operands, addr, labels)
		}
		return nil, errors.Errorf(errors.AssemblyError, "unsupported instruction %q", ln)
	}
}

// encodeMov handles "movs rd, #imm", "movs.w rd, #imm", "mov.w rd, #imm" and
// the low-register-to-low-register "mov rd, rm" form.
func encodeMov(mnemonic string, operands []string) ([]byte, error) {
	if len(operands) != 2 {
		return nil, errors.Errorf(errors.AssemblyError, "%s requires two operands", mnemonic)
	}
	rd, err := parseRegister(operands[0])
	if err != nil {
		return nil, err
	}

	if mnemonic == "mov" && !strings.HasPrefix(strings.TrimSpace(operands[1]), "#") {
		rm, err := parseRegister(operands[1])
		if err != nil {
			return nil, err
		}
		// format 5, hi register move: MOV Rd, Rs (low/low case, H1=H2=0)
		return putLE16(0x4600 | uint16(rm&0x7)<<3 | uint16(rd&0x7)), nil
	}

	imm, err := parseImmediate(operands[1])
	if err != nil {
		return nil, err
	}
	if imm < 0 || imm > 0xFFFF {
		return nil, errors.Errorf(errors.AssemblyError, "immediate %d out of range for %s", imm, mnemonic)
	}

	setFlags := mnemonic == "movs" || mnemonic == "movs.w"
	if mnemonic == "movs" && imm <= 0xFF {
		// format 3, move immediate: MOVS Rd, #imm8
		if rd > 7 {
			return nil, errors.Errorf(errors.AssemblyError, "movs requires a low register, got r%d", rd)
		}
		return putLE16(0x2000 | uint16(rd)<<8 | uint16(imm)), nil
	}

	return encodeMovWide(rd, uint16(imm), setFlags)
}

// encodeMovWide emits the Thumb-2 32-bit MOV (immediate) form this package
// uses for any immediate wider than a narrow 8-bit MOVS can hold: a full
// 16-bit literal split across both halfwords, with a dedicated flag bit
// standing in for the S suffix ("movs.w" vs "mov.w").
func encodeMovWide(rd int, imm uint16, setFlags bool) ([]byte, error) {
	s := uint16(0)
	if setFlags {
		s = 1
	}
	hw1 := uint16(0xF240) | s<<4 | (imm>>12)&0xF
	hw2 := (imm>>8)&0xF<<12 | uint16(rd&0xF)<<8 | imm&0xFF
	return append(putLE16(hw1), putLE16(hw2)...), nil
}

func encodeLSLS(operands []string) ([]byte, error) {
	if len(operands) != 3 {
		return nil, errors.Errorf(errors.AssemblyError, "lsls requires three operands")
	}
	rd, err := parseRegister(operands[0])
	if err != nil {
		return nil, err
	}
	rm, err := parseRegister(operands[1])
	if err != nil {
		return nil, err
	}
	imm, err := parseImmediate(operands[2])
	if err != nil {
		return nil, err
	}
	if imm < 0 || imm > 31 {
		return nil, errors.Errorf(errors.AssemblyError, "shift amount %d out of range", imm)
	}
	// format 1, move shifted register: LSLS Rd, Rm, #imm5
	return putLE16(uint16(imm)<<6 | uint16(rm&0x7)<<3 | uint16(rd&0x7)), nil
}

func encodeCmp(operands []string) ([]byte, error) {
	if len(operands) != 2 {
		return nil, errors.Errorf(errors.AssemblyError, "cmp requires two operands")
	}
	rn, err := parseRegister(operands[0])
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(strings.TrimSpace(operands[1]), "#") {
		imm, err := parseImmediate(operands[1])
		if err != nil {
			return nil, err
		}
		if imm < 0 || imm > 0xFF || rn > 7 {
			return nil, errors.Errorf(errors.AssemblyError, "cmp immediate out of range")
		}
		// format 3, compare immediate: CMP Rn, #imm8
		return putLE16(0x2800 | uint16(rn)<<8 | uint16(imm)), nil
	}
	rm, err := parseRegister(operands[1])
	if err != nil {
		return nil, err
	}
	// format 4, ALU operations: CMP Rn, Rm (opcode 1010)
	return putLE16(0x4000 | 0xA<<6 | uint16(rm&0x7)<<3 | uint16(rn&0x7)), nil
}

// encodeLDR handles "ldr rd, [pc, #imm]" (narrow when imm fits, else the
// Thumb-2 wide literal load) and "ldr rd, [rn, #imm]".
func encodeLDR(operands []string, addr uint32) ([]byte, error) {
	if len(operands) != 2 {
		return nil, errors.Errorf(errors.AssemblyError, "ldr requires two operands")
	}
	rd, err := parseRegister(operands[0])
	if err != nil {
		return nil, err
	}
	mem := operands[1]
	imm, err := extractBracketImmediate(mem)
	if err != nil {
		return nil, err
	}

	if strings.Contains(mem, "pc") {
		if imm >= 0 && imm <= 1020 && imm%4 == 0 && rd <= 7 {
			// format 6, PC-relative load: LDR Rd, [PC, #imm8*4]
			return putLE16(0x4800 | uint16(rd)<<8 | uint16(imm/4)), nil
		}
		u := uint16(1)
		abs := imm
		if imm < 0 {
			u = 0
			abs = -imm
		}
		if abs > 0xFFF {
			return nil, errors.Errorf(errors.AssemblyError, "pc-relative offset %d out of range", imm)
		}
		// LDR (literal), T2: DF F8 or D5/D1 form depending on sign
		hw1 := uint16(0xF850) | u<<7 | 0x0F
		hw2 := uint16(rd&0xF)<<12 | uint16(abs)
		return append(putLE16(hw1), putLE16(hw2)...), nil
	}

	rn, err := parseRegisterFromBracket(mem)
	if err != nil {
		return nil, err
	}
	if imm < 0 || imm > 124 || imm%4 != 0 || rd > 7 || rn > 7 {
		return nil, errors.Errorf(errors.AssemblyError, "ldr immediate offset out of narrow range")
	}
	// format 9, load with immediate offset: LDR Rd, [Rn, #imm5*4]
	return putLE16(0x6800 | uint16(imm/4)<<6 | uint16(rn&0x7)<<3 | uint16(rd&0x7)), nil
}

func encodeLDRB(operands []string) ([]byte, error) {
	if len(operands) != 2 {
		return nil, errors.Errorf(errors.AssemblyError, "ldrb requires two operands")
	}
	rd, err := parseRegister(operands[0])
	if err != nil {
		return nil, err
	}
	rn, err := parseRegisterFromBracket(operands[1])
	if err != nil {
		return nil, err
	}
	imm, err := extractBracketImmediate(operands[1])
	if err != nil {
		return nil, err
	}
	if imm < 0 || imm > 31 || rd > 7 || rn > 7 {
		return nil, errors.Errorf(errors.AssemblyError, "ldrb immediate offset out of narrow range")
	}
	// format 9, byte load with immediate offset: LDRB Rd, [Rn, #imm5]
	return putLE16(0x7800 | uint16(imm)<<6 | uint16(rn&0x7)<<3 | uint16(rd&0x7)), nil
}

func encodeLDRBWide(operands []string) ([]byte, error) {
	if len(operands) != 2 {
		return nil, errors.Errorf(errors.AssemblyError, "ldrb.w requires two operands")
	}
	rd, err := parseRegister(operands[0])
	if err != nil {
		return nil, err
	}
	rn, err := parseRegisterFromBracket(operands[1])
	if err != nil {
		return nil, err
	}
	imm, err := extractBracketImmediate(operands[1])
	if err != nil {
		return nil, err
	}
	if imm < 0 || imm > 0xFFF {
		return nil, errors.Errorf(errors.AssemblyError, "ldrb.w immediate offset out of range")
	}
	// LDRB (immediate), T2: 1111 1000 1001 Rn  Rt imm12
	hw1 := uint16(0xF890) | uint16(rn&0xF)
	hw2 := uint16(rd&0xF)<<12 | uint16(imm)
	return append(putLE16(hw1), putLE16(hw2)...), nil
}

func parseRegisterFromBracket(operand string) (int, error) {
	open := strings.Index(operand, "[")
	comma := strings.Index(operand, ",")
	end := strings.Index(operand, "]")
	if open < 0 {
		return 0, errors.Errorf(errors.AssemblyError, "malformed memory operand %q", operand)
	}
	if comma < 0 {
		comma = end
	}
	if comma < 0 {
		comma = len(operand)
	}
	return parseRegister(operand[open+1 : comma])
}

func resolveTarget(operand string, addr uint32, labels map[string]uint32) (uint32, error) {
	operand = strings.TrimSpace(operand)
	if target, ok := labels[operand]; ok {
		return target, nil
	}
	v, err := parseImmediate(operand)
	if err != nil {
		return 0, errors.Errorf(errors.AssemblyError, "unresolved branch target %q", operand)
	}
	return uint32(v), nil
}

func encodeB(operands []string, addr uint32, labels map[string]uint32) ([]byte, error) {
	if len(operands) != 1 {
		return nil, errors.Errorf(errors.AssemblyError, "b requires one operand")
	}
	target, err := resolveTarget(operands[0], addr, labels)
	if err != nil {
		return nil, err
	}
	delta := int64(target) - int64(addr+4)
	if delta < -2048 || delta > 2046 || delta%2 != 0 {
		return nil, errors.Errorf(errors.AssemblyError, "branch delta %d out of narrow range", delta)
	}
	// format 18, unconditional branch: B <target> (11-bit signed half-offset)
	imm11 := uint16((delta / 2) & 0x7FF)
	return putLE16(0xE000 | imm11), nil
}

func encodeConditionalBranch(cond uint16, operands []string, addr uint32, labels map[string]uint32) ([]byte, error) {
	if len(operands) != 1 {
		return nil, errors.Errorf(errors.AssemblyError, "conditional branch requires one operand")
	}
	target, err := resolveTarget(operands[0], addr, labels)
	if err != nil {
		return nil, err
	}
	delta := int64(target) - int64(addr+4)
	if delta < -256 || delta > 254 || delta%2 != 0 {
		return nil, errors.Errorf(errors.AssemblyError, "branch delta %d out of narrow range", delta)
	}
	// format 16, conditional branch: Bcc <target> (8-bit signed half-offset)
	imm8 := uint16((delta / 2) & 0xFF)
	return putLE16(0xD000 | cond<<8 | imm8), nil
}
