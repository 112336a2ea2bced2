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

// Package mi5 implements the Xiaomi Mi5 LKS32 patch set.
package mi5

import (
	"encoding/binary"
	"fmt"

	"github.com/scooterteam/bwpatch/core"
	"github.com/scooterteam/bwpatch/errors"
	"github.com/scooterteam/bwpatch/family/lks32"
	"github.com/scooterteam/bwpatch/pattern"
)

var (
	sigBranchSrc    = pattern.Sig(0x59, 0x68, pattern.Wildcard, 0x4A, pattern.Wildcard, 0x3A, 0x91, 0x42)
	sigBranchDst    = pattern.Sig(0xF5, 0x31, 0x41, 0x81, 0x70, 0xBD)
	sigDriveSite    = pattern.Sig(pattern.Wildcard, 0x49, 0x41, 0x82, 0xCB, 0x25, 0x05, 0x80)
	sigSportSite    = pattern.Sig(0xFD, 0x21, 0x41, 0x80, pattern.Wildcard, 0x49, 0x81, 0x61)
	sigMinDstMarker = pattern.Sig(0x59, 0x68, pattern.Wildcard, 0x4A, pattern.Wildcard, 0x3A, 0x91, 0x42, pattern.Wildcard, pattern.Wildcard)
)

// Model is the Mi5 LKS32 patcher.
type Model struct {
	*lks32.Family
}

// New wraps data as a Mi5 firmware image.
func New(data []byte) *Model {
	return &Model{Family: lks32.New(data)}
}

func (m *Model) speedLimit(name string, siteSig pattern.Signature, siteExtra, minDstExtra int, reg string, kmh float64) (core.Records, error) {
	var recs core.Records

	branchRec, err := m.BranchFromTo(sigBranchSrc, sigBranchDst, "speed_limit_fix", 0)
	if err != nil {
		return recs, err
	}
	if branchRec != nil {
		recs = append(recs, *branchRec)
	}

	idx, err := pattern.Find(m.Data, siteSig, nil, 0, 0)
	if err != nil {
		return recs, err
	}
	ofs := idx + siteExtra

	dstIdx, err := pattern.Find(m.Data, sigMinDstMarker, nil, ofs, 0)
	if err != nil {
		return recs, err
	}
	minDst := dstIdx + len(sigMinDstMarker) + minDstExtra

	literalOfs, imm, err := m.SafeLDR(ofs, minDst)
	if err != nil {
		return recs, err
	}
	speed := make([]byte, 4)
	binary.LittleEndian.PutUint32(speed, uint32(int(kmh*10)))
	recs = append(recs, core.Write(m.Data, name+"_value", literalOfs, speed))

	enc, err := m.Asm.Assemble(fmt.Sprintf("ldr %s, [pc, #0x%x]", reg, imm), uint32(ofs))
	if err != nil {
		return recs, err
	}
	if len(enc) != 2 {
		return recs, errors.Errorf(errors.AssemblyError, "%s rewrite encoded to %d bytes, expected 2", name, len(enc))
	}
	recs = append(recs, core.Write(m.Data, name, ofs, enc))
	return recs, nil
}

// SpeedLimitDrive sets the drive-mode speed limit to kmh.
func (m *Model) SpeedLimitDrive(kmh float64) (core.Records, error) {
	return m.speedLimit("speed_limit_drive", sigDriveSite, 4, 0, "r5", kmh)
}

// SpeedLimitSport sets the sport-mode speed limit to kmh.
func (m *Model) SpeedLimitSport(kmh float64) (core.Records, error) {
	return m.speedLimit("speed_limit_sport", sigSportSite, 0, 4, "r1", kmh)
}

// RemoveSpeedLimitSport sets the sport-mode limit to the open value 36.7.
func (m *Model) RemoveSpeedLimitSport() (core.Records, error) {
	return m.SpeedLimitSport(36.7)
}
