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

// Package es32 specializes the base patcher for the ES32 chip family: a
// CRC-16/CCITT body checksum anchored on a "SZMC-ES-ZM-" marker, the
// floor(factor*kmh) speed converter, and the region-table tag-rewrite form
// of region unlock used by the ES32 models.
package es32

import (
	"encoding/binary"
	"math"

	"github.com/scooterteam/bwpatch/checksum"
	"github.com/scooterteam/bwpatch/core"
	"github.com/scooterteam/bwpatch/errors"
	"github.com/scooterteam/bwpatch/pattern"
)

var bodyMarker = pattern.Sig(
	'S', 'Z', 'M', 'C', '-', 'E', 'S', '-', 'Z', 'M', '-',
)

// Family is the ES32 specialization of core.Patcher.
type Family struct {
	*core.Patcher
}

// New wraps data as an ES32 image.
func New(data []byte) *Family {
	return &Family{Patcher: core.NewPatcher(data)}
}

// FixChecksum recomputes the CRC-16/CCITT body checksum anchored on the
// "SZMC-ES-ZM-" marker, then the shared header checksum 0x10 bytes before
// the marker. Satisfies core.ChecksumFixer.
func (f *Family) FixChecksum() (core.Records, error) {
	idx, err := pattern.Find(f.Data, bodyMarker, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	base := idx + 0x20

	var recs core.Records
	if base-0x2A >= 0 && base-0x28 <= len(f.Data) {
		size := int(binary.BigEndian.Uint16(f.Data[base-0x2A : base-0x28]))
		crc, err := checksum.CCITT(f.Data, base+0x50, size)
		if err != nil {
			return recs, err
		}
		recs = append(recs, core.Write(f.Data, "es32_body_checksum", base, crc))
	}

	hdr, err := core.FixHeaderChecksum(f.Data, idx-0x10)
	if err != nil {
		return recs, err
	}
	if hdr != nil {
		recs = append(recs, *hdr)
	}
	return recs, nil
}

// CalcSpeedValue returns floor(factor*kmh), the raw integer a model embeds
// directly into a synthesized immediate.
func CalcSpeedValue(kmh float64, factor float64) int {
	return int(math.Floor(factor * kmh))
}

// CalcSpeed returns the little-endian bytes of floor(factor*kmh) at the
// given width (1, 2 or 4 bytes).
func CalcSpeed(kmh float64, factor float64, size int) ([]byte, error) {
	v := CalcSpeedValue(kmh, factor)
	buf := make([]byte, size)
	switch size {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	default:
		return nil, errors.Errorf(errors.InvalidParameter, "unsupported speed encoding width %d", size)
	}
	return buf, nil
}

var cruiseControlSig = pattern.Sig(
	0xCA, 0x09, 0x1A, 0x70, 0x4A, 0x06, pattern.Wildcard, 0x4B, 0xD2, 0x0F,
	0x1A, 0x70, 0x8A, 0x06, pattern.Wildcard, 0x4B, 0xD2, 0x0F, 0x1A, 0x70,
)

// CruiseControlEnable assembles "movs r2, #1" four bytes before the end of
// the fixed cruise-control gate signature. Every ES32 model inherits this
// unchanged through Family embedding. Satisfies core.CruiseControlEnabler.
func (f *Family) CruiseControlEnable() (core.Records, error) {
	idx, err := pattern.Find(f.Data, cruiseControlSig, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	ofs := idx + len(cruiseControlSig) - 4
	enc, err := f.Asm.Assemble("movs r2, #0x1", uint32(ofs))
	if err != nil {
		return nil, err
	}
	return core.Records{core.Write(f.Data, "cce", ofs, enc)}, nil
}

// MotorStartSpeed writes two single-byte comparison thresholds: the primary
// value at sig1+offset1 and a hysteresis threshold equal to half of it at
// sig2+offset2.
func (f *Family) MotorStartSpeed(sig1, sig2 pattern.Signature, offset1, offset2 int, kmh float64, factor float64) (core.Records, error) {
	v := CalcSpeedValue(kmh, factor)
	idx1, err := pattern.Find(f.Data, sig1, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	idx2, err := pattern.Find(f.Data, sig2, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	recs := core.Records{
		core.Write(f.Data, "mss", idx1+offset1, []byte{byte(v)}),
		core.Write(f.Data, "mss", idx2+offset2, []byte{byte(v / 2)}),
	}
	return recs, nil
}

// RegionFree overwrites seven consecutive 4-byte region-table entries
// starting at the first match of tableSig with tag, then optionally patches
// a trailing "cmp r0, #0xff" guard at the first match of guardSig.
func (f *Family) RegionFree(tableSig pattern.Signature, tag []byte, guardSig pattern.Signature) (core.Records, error) {
	idx, err := pattern.Find(f.Data, tableSig, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	var recs core.Records
	for i := 0; i < 7; i++ {
		off := idx + i*4
		if off+len(tag) > len(f.Data) {
			return recs, errors.Errorf(errors.RangeError, "region table entry at 0x%x exceeds buffer", off)
		}
		recs = append(recs, core.Write(f.Data, "rfm", off, tag))
	}

	if guardSig != nil {
		if gIdx, gerr := pattern.Find(f.Data, guardSig, nil, 0, 0); gerr == nil {
			enc, err := f.Asm.Assemble("cmp r0, #0xff", uint32(gIdx))
			if err == nil {
				recs = append(recs, core.Write(f.Data, "rfm_guard", gIdx, enc))
			}
		}
	}
	return recs, nil
}

// RemoveSpeedCheck NOPs out a redundant speed-limit guard, swallowing
// PatternNotFound since the guard may already be gone or never present in
// a given firmware revision.
func (f *Family) RemoveSpeedCheck(guardSig pattern.Signature) (*core.Record, error) {
	idx, err := pattern.Find(f.Data, guardSig, nil, 0, 0)
	if err != nil {
		if errors.Is(err, errors.PatternNotFound) {
			return nil, nil
		}
		return nil, err
	}
	rec, err := f.NopOut("remove_speed_check", idx, len(guardSig))
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// LiteralOffsetFromDisassembly reads the PC-relative immediate out of the
// existing "ldr rN, [pc, #imm]" instruction at ldrOffset and returns the
// word-aligned literal offset it refers to. This is the ES32 models' own
// way of finding a literal slot, used instead of SafeLDR's relocation.
func (f *Family) LiteralOffsetFromDisassembly(ldrOffset int) (int, error) {
	if ldrOffset+2 > len(f.Data) {
		return 0, errors.Errorf(errors.RangeError, "ldr offset 0x%x exceeds buffer", ldrOffset)
	}
	insn := f.Asm.Disassemble(f.Data[ldrOffset : ldrOffset+2])
	ofs, ok := pattern.ExtractLDROffset(insn)
	if !ok {
		return 0, errors.Errorf(errors.AssemblyError, "no pc-relative ldr at offset 0x%x", ldrOffset)
	}
	pcBase := (ldrOffset &^ 3) + 4
	return pattern.OffsetToNearestWord(pcBase + ofs), nil
}
