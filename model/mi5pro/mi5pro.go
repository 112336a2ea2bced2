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

// Package mi5pro implements the Xiaomi Mi5 Pro ES32 patch set. Its
// speed-limit patches don't relocate a literal via SafeLDR the way the
// LKS32 models do: the literal slot already exists next to an untouched
// PC-relative LDR, so the patch only needs to read that LDR's existing
// offset and overwrite the value it points at. It does not offer a
// firmware-version spoof; that capability was never implemented for this
// model upstream.
package mi5pro

import (
	"fmt"

	"github.com/scooterteam/bwpatch/core"
	"github.com/scooterteam/bwpatch/errors"
	"github.com/scooterteam/bwpatch/family/es32"
	"github.com/scooterteam/bwpatch/pattern"
)

var (
	sigRegionTable  = pattern.Sig(0xC8, 0x03, 0x00, 0x20, pattern.Wildcard, 0x03, 0x00, 0x20)
	sigRegionGuard  = pattern.Sig(pattern.Wildcard, 0x8B, pattern.Wildcard, 0x82, pattern.Wildcard, 0x48, 0x00, 0x78)
	sigSpeedGuard   = pattern.Sig(0x00, 0x88, 0x09, 0xB2, 0x81, 0x42, 0x00, 0xDD, 0xA0, 0x82)
	sigDriveLiteral = pattern.Sig(0x77, 0x49, 0x09, 0x88, 0xD2, 0xE7)
	sigSportLiteral = pattern.Sig(0x87, 0x48, 0x01, 0x29, 0x2D, 0xD0)
	sigSportSite    = pattern.Sig(0x01, 0x88, 0xD0, 0xE7, 0x12, 0x78, 0x0B, 0x78)
)

// Model is the Mi5 Pro ES32 patcher.
type Model struct {
	*es32.Family
}

// New wraps data as a Mi5 Pro firmware image.
func New(data []byte) *Model {
	return &Model{Family: es32.New(data)}
}

// RegionFree rewrites the region-table entries whose tag byte matches the
// first rewritten entry's tag (a firmware revision may mix region-table
// layouts, and only one layout applies to a given unit), then patches the
// trailing comparison guard to always treat the region as unlocked.
func (m *Model) RegionFree() (core.Records, error) {
	idx, err := pattern.Find(m.Data, sigRegionTable, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	tag := []byte{0x28, 0x03, 0x00, 0x20}

	var recs core.Records
	ofs := idx
	var anchor byte
	haveAnchor := false
	for i := 0; i < 7; i++ {
		ofs += 4
		if ofs+4 > len(m.Data) {
			return recs, errors.Errorf(errors.RangeError, "region table entry %d at 0x%x exceeds buffer", i, ofs)
		}
		if haveAnchor && m.Data[ofs+1] != anchor {
			continue
		}
		anchor = m.Data[ofs+1]
		haveAnchor = true
		recs = append(recs, core.Write(m.Data, fmt.Sprintf("region_free_%d", i), ofs, tag))
	}

	guardIdx, err := pattern.Find(m.Data, sigRegionGuard, nil, 0, 0)
	if err != nil {
		return recs, err
	}
	guardOfs := guardIdx + len(sigRegionGuard)
	enc, err := m.Asm.Assemble("cmp r0, #0xff", uint32(guardOfs))
	if err != nil {
		return recs, err
	}
	recs = append(recs, core.Write(m.Data, "region_free_fix", guardOfs, enc))
	return recs, nil
}

func (m *Model) writeSpeedLiteral(recs core.Records, name string, literalInsnOfs int, kmh float64) (core.Records, error) {
	literalOfs, err := m.LiteralOffsetFromDisassembly(literalInsnOfs)
	if err != nil {
		return recs, err
	}
	post, err := es32.CalcSpeed(kmh, 20.9, 4)
	if err != nil {
		return recs, err
	}
	recs = append(recs, core.Write(m.Data, name+"_1", literalOfs, post))

	if rec, err := m.RemoveSpeedCheck(sigSpeedGuard); err != nil {
		return recs, err
	} else if rec != nil {
		recs = append(recs, *rec)
	}
	return recs, nil
}

// SpeedLimitDrive sets the drive-mode speed limit to kmh.
func (m *Model) SpeedLimitDrive(kmh float64) (core.Records, error) {
	literalInsnOfs, err := pattern.Find(m.Data, sigDriveLiteral, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	nopOfs := literalInsnOfs + 2
	enc, err := m.Asm.Assemble("nop", uint32(nopOfs))
	if err != nil {
		return nil, err
	}
	recs := core.Records{core.Write(m.Data, "speed_limit_drive_0", nopOfs, enc)}
	return m.writeSpeedLiteral(recs, "speed_limit_drive", literalInsnOfs, kmh)
}

// SpeedLimitSport sets the sport-mode speed limit to kmh.
func (m *Model) SpeedLimitSport(kmh float64) (core.Records, error) {
	literalInsnOfs, err := pattern.Find(m.Data, sigSportLiteral, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	siteOfs, err := pattern.Find(m.Data, sigSportSite, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	enc, err := m.Asm.Assemble("mov r1, r0", uint32(siteOfs))
	if err != nil {
		return nil, err
	}
	recs := core.Records{core.Write(m.Data, "speed_limit_sport_0", siteOfs, enc)}
	return m.writeSpeedLiteral(recs, "speed_limit_sport", literalInsnOfs, kmh)
}

// RemoveSpeedLimitSport sets the sport-mode limit to the open value 36.7.
func (m *Model) RemoveSpeedLimitSport() (core.Records, error) {
	return m.SpeedLimitSport(36.7)
}
