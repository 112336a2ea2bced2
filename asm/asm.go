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

// Package asm is the engine's ARM Thumb assembler/disassembler façade. It
// exposes exactly two operations, Assemble and Disassemble, and supports
// only the small subset of the Thumb and Thumb-2 instruction set that the
// patch engine itself ever needs to synthesize: immediate moves, a shift,
// low-register compare/move, the unconditional branch and the narrow
// conditional branches (the patches themselves use bcs, ble and bne), NOP,
// and the two load forms (PC-relative and register+immediate) used to
// relocate literals and install trampolines.
//
// The decode side mirrors the narrow/wide opcode-mask dispatch a full ARM
// decoder uses, just over a far smaller table, so that Disassemble is a true
// inverse of Assemble for everything this package can produce.
package asm

import (
	"strconv"
	"strings"

	"github.com/scooterteam/bwpatch/errors"
)

// Assembler is the engine's handle onto the Thumb encoder/decoder. It holds
// no state of its own; instances are cheap and re-entrant.
type Assembler struct{}

// New returns a ready-to-use Assembler.
func New() *Assembler {
	return &Assembler{}
}

type label struct {
	name string
	addr uint32
}

// Assemble encodes snippet, a semicolon- or newline-separated sequence of
// Thumb instruction lines, into little-endian bytes. base is the address of
// the first instruction; it is used to resolve absolute branch targets and
// PC-relative loads. Labels local to the snippet (a bare identifier followed
// by ":") may be used as branch targets.
func (a *Assembler) Assemble(snippet string, base uint32) ([]byte, error) {
	lines := splitLines(snippet)

	// first pass: compute the address and byte length of every line, and
	// record label addresses, without resolving any operand yet.
	type pending struct {
		line string
		addr uint32
	}
	var plan []pending
	labels := map[string]uint32{}
	addr := base

	for _, ln := range lines {
		if name, ok := labelName(ln); ok {
			labels[name] = addr
			continue
		}
		size, err := instructionSize(ln)
		if err != nil {
			return nil, err
		}
		plan = append(plan, pending{line: ln, addr: addr})
		addr += size
	}

	out := make([]byte, 0, int(addr-base))
	for _, p := range plan {
		enc, err := encode(p.line, p.addr, labels)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

// Disassemble renders code as "mnemonic\toperand" lines, one per decoded
// instruction, starting at address 0.
func (a *Assembler) Disassemble(code []byte) string {
	var lines []string
	addr := uint32(0)
	for addr < uint32(len(code)) {
		if int(addr)+2 > len(code) {
			break
		}
		op := le16(code[addr:])
		text, size := decode(code, addr, op)
		lines = append(lines, text)
		addr += size
	}
	return strings.Join(lines, "\n")
}

func splitLines(snippet string) []string {
	snippet = strings.ReplaceAll(snippet, ";", "\n")
	raw := strings.Split(snippet, "\n")
	var out []string
	for _, ln := range raw {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		out = append(out, ln)
	}
	return out
}

func labelName(ln string) (string, bool) {
	if strings.HasSuffix(ln, ":") && !strings.Contains(ln, " ") && !strings.Contains(ln, "\t") {
		return strings.TrimSuffix(ln, ":"), true
	}
	return "", false
}

func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLE16(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}

func putLE32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// parseRegister parses a token like "r4" or "R12" and returns its number.
func parseRegister(tok string) (int, error) {
	tok = strings.ToLower(strings.TrimSpace(tok))
	if !strings.HasPrefix(tok, "r") {
		return 0, errors.Errorf(errors.AssemblyError, "expected register operand, got %q", tok)
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 0 || n > 15 {
		return 0, errors.Errorf(errors.AssemblyError, "invalid register %q", tok)
	}
	return n, nil
}

// parseImmediate parses a token like "#0x1a", "#26", or a bare "0x1a" /
// "26" (used for branch targets), returning the numeric value.
func parseImmediate(tok string) (int64, error) {
	tok = strings.TrimSpace(tok)
	tok = strings.TrimPrefix(tok, "#")
	neg := false
	if strings.HasPrefix(tok, "-") {
		neg = true
		tok = tok[1:]
	}
	v, err := strconv.ParseInt(tok, 0, 64)
	if err != nil {
		return 0, errors.Errorf(errors.AssemblyError, "invalid immediate %q", tok)
	}
	if neg {
		v = -v
	}
	return v, nil
}

func fields(ln string) (mnemonic string, operands []string) {
	ln = strings.TrimSpace(ln)
	sp := strings.IndexAny(ln, " \t")
	if sp < 0 {
		return strings.ToLower(ln), nil
	}
	mnemonic = strings.ToLower(ln[:sp])
	rest := strings.TrimSpace(ln[sp+1:])
	// a comma inside a bracketed memory operand ("[pc, #0x8]") belongs to
	// that operand, not to the operand list.
	depth, start := 0, 0
	for i, c := range rest {
		switch c {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				operands = append(operands, strings.TrimSpace(rest[start:i]))
				start = i + 1
			}
		}
	}
	operands = append(operands, strings.TrimSpace(rest[start:]))
	return mnemonic, operands
}

func instructionSize(ln string) (uint32, error) {
	mnemonic, operands := fields(ln)
	switch mnemonic {
	case "b", "bcs", "bhs", "bls", "bne", "beq", "ble", "bge", "blt", "bgt":
		// every branch this engine emits stays within a single function, so
		// the narrow 2-byte encoding always suffices; encode rejects a delta
		// that doesn't fit rather than silently widening the instruction.
		_ = operands
		return 2, nil
	case "movs.w", "mov.w":
		return 4, nil
	case "ldrb.w":
		return 4, nil
	case "ldr":
		if len(operands) == 2 && strings.Contains(operands[1], "pc") {
			if v, ok := pcLoadFitsNarrow(operands[1]); ok && !v {
				return 4, nil
			}
		}
		return 2, nil
	default:
		return 2, nil
	}
}

func pcLoadFitsNarrow(operand string) (fits bool, ok bool) {
	imm, err := extractBracketImmediate(operand)
	if err != nil {
		return false, false
	}
	return imm >= 0 && imm <= 1020 && imm%4 == 0, true
}

func extractBracketImmediate(operand string) (int64, error) {
	open := strings.Index(operand, "#")
	close := strings.Index(operand, "]")
	if open < 0 || close < 0 || close < open {
		return 0, errors.Errorf(errors.AssemblyError, "malformed memory operand %q", operand)
	}
	return parseImmediate(operand[open:close])
}
