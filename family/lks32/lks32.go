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

// Package lks32 specializes the base patcher for the LKS32 chip family: a
// CRC-32 body checksum anchored on a "LKS32MC0" marker, a PC-relative
// literal-pool allocator, a branch-redirect helper, and regional-serial
// neutralization.
package lks32

import (
	"encoding/binary"
	"fmt"

	"github.com/scooterteam/bwpatch/core"
	"github.com/scooterteam/bwpatch/checksum"
	"github.com/scooterteam/bwpatch/errors"
	"github.com/scooterteam/bwpatch/pattern"
)

var bodyMarker = pattern.Sig(
	'L', 'K', 'S', '3', '2', 'M', 'C', '0',
)

// Family is the LKS32 specialization of core.Patcher. Model patchers embed
// it to inherit the body checksum, SafeLDR and BranchFromTo helpers.
type Family struct {
	*core.Patcher
}

// New wraps data as an LKS32 image.
func New(data []byte) *Family {
	return &Family{Patcher: core.NewPatcher(data)}
}

func (f *Family) markerBase() (int, error) {
	idx, err := pattern.Find(f.Data, bodyMarker, nil, 0, 0)
	if err != nil {
		return 0, err
	}
	return idx - 8, nil
}

// FixChecksum recomputes the CRC-32 body checksum anchored on the
// "LKS32MC0" marker, then the shared CRC-16/CCITT header checksum at the
// same base offset. Satisfies core.ChecksumFixer.
func (f *Family) FixChecksum() (core.Records, error) {
	base, err := f.markerBase()
	if err != nil {
		return nil, err
	}

	var recs core.Records
	if base >= 2 && base+0x18 <= len(f.Data) && f.Data[base-2] == 0xFF && f.Data[base-1] == 0xFF {
		size := int(binary.LittleEndian.Uint32(f.Data[base : base+4]))
		crc, err := checksum.LKS32Body(f.Data, base+0x18, size)
		if err != nil {
			return recs, err
		}
		recs = append(recs, core.Write(f.Data, "lks32_body_checksum", base+4, crc))
	}

	hdr, err := core.FixHeaderChecksum(f.Data, base)
	if err != nil {
		return recs, err
	}
	if hdr != nil {
		recs = append(recs, *hdr)
	}
	return recs, nil
}

// SafeLDR chooses a word-aligned literal slot at or after minDst that is
// reachable by a narrow PC-relative LDR issued from ldrOffset. It fails
// closed with InvalidParameter if minDst falls before the LDR's own PC
// base, since that base is ordinarily the address of the next live
// instruction, not spare literal-pool space - writing there would
// overwrite executable bytes. It returns the literal's absolute offset and
// the byte immediate to encode in the LDR.
func (f *Family) SafeLDR(ldrOffset, minDst int) (literalOffset int, imm int, err error) {
	pcBase := (ldrOffset &^ 3) + 4
	if minDst < pcBase {
		return 0, 0, errors.Errorf(errors.InvalidParameter, "minimum destination offset %d is earlier than pc base %d", minDst, pcBase)
	}
	target := minDst
	if rem := target % 4; rem != 0 {
		target += 4 - rem
	}
	imm = target - pcBase
	if imm < 0 || imm > 1020 {
		return 0, 0, errors.Errorf(errors.InvalidParameter, "literal offset %d exceeds narrow ldr reach", imm)
	}
	return target, imm, nil
}

// BranchFromTo assembles an unconditional branch at the first match of
// srcSig (placed at that match plus len(srcSig)) targeting dstOffset bytes
// past the first match of dstSig found at or after the source. It is a
// byte-level no-op (returns a nil record, nil error) if the destination
// already holds the planned encoding.
func (f *Family) BranchFromTo(srcSig, dstSig pattern.Signature, name string, dstOffset int) (*core.Record, error) {
	srcIdx, err := pattern.Find(f.Data, srcSig, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	addr := srcIdx + len(srcSig)

	dstIdx, err := pattern.Find(f.Data, dstSig, nil, srcIdx, 0)
	if err != nil {
		return nil, err
	}
	target := uint32(dstIdx + dstOffset)

	enc, err := f.Asm.Assemble(fmt.Sprintf("b #0x%x", target), uint32(addr))
	if err != nil {
		return nil, err
	}
	if addr+len(enc) > len(f.Data) {
		return nil, errors.Errorf(errors.RangeError, "branch site at 0x%x exceeds buffer", addr)
	}
	if bytesEqual(f.Data[addr:addr+len(enc)], enc) {
		return nil, nil
	}
	rec := core.Write(f.Data, name, addr, enc)
	return &rec, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RegionFree overwrites every occurrence of each 4-byte regional-serial tag
// in tags with zeros. Fails with PatternNotFound only if none of the tags
// matched anywhere in the image.
func (f *Family) RegionFree(tags []pattern.Signature) (core.Records, error) {
	zero := []byte{0, 0, 0, 0}
	var recs core.Records
	for _, tag := range tags {
		start := 0
		for {
			idx, err := pattern.Find(f.Data, tag, nil, start, 0)
			if err != nil {
				break
			}
			recs = append(recs, core.Write(f.Data, "rfm", idx, zero))
			start = idx + len(tag)
		}
	}
	if len(recs) == 0 {
		return nil, errors.Errorf(errors.PatternNotFound, "no regional-serial signature found")
	}
	return recs, nil
}

// CruiseControlEnable assembles "movs r1, #1" at the first match of sig,
// then optionally NOPs out a model-specific cruise-control unlock guard at
// the first match of guardSig (if non-nil), swallowing PatternNotFound for
// the guard since not every firmware revision carries one. The concrete
// signatures are a model's responsibility; models wrap this to satisfy
// core.CruiseControlEnabler.
func (f *Family) CruiseControlEnable(sig pattern.Signature, guardSig pattern.Signature) (core.Records, error) {
	idx, err := pattern.Find(f.Data, sig, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	enc, err := f.Asm.Assemble("movs r1, #0x1", uint32(idx))
	if err != nil {
		return nil, err
	}
	recs := core.Records{core.Write(f.Data, "cce", idx, enc)}

	if guardSig != nil {
		if gIdx, gerr := pattern.Find(f.Data, guardSig, nil, 0, 0); gerr == nil {
			rec, err := f.NopOut("cce_guard", gIdx, len(guardSig))
			if err != nil {
				return recs, err
			}
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

// FakeDrvVersion delegates to the shared firmware-version spoof,
// core.FakeDrvVersion.
func (f *Family) FakeDrvVersion(version string) (core.Records, error) {
	return core.FakeDrvVersion(f.Data, version)
}
