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

// Package mi4lite implements the Xiaomi Mi4 Lite LKS32 patch set. Unlike
// mi4, its speed-limit rewrites target fixed registers (r4, r3) rather than
// preserving whichever one the compiler chose.
package mi4lite

import (
	"encoding/binary"
	"fmt"

	"github.com/scooterteam/bwpatch/core"
	"github.com/scooterteam/bwpatch/errors"
	"github.com/scooterteam/bwpatch/family/lks32"
	"github.com/scooterteam/bwpatch/pattern"
)

var (
	sigBranchSrc = pattern.Sig(0x27, 0x4B, 0xD7, 0x18, 0x0A, 0x22, 0x3B, 0x00)
	sigBranchDst = pattern.Sig(0x11, 0x48, 0x00, 0x21, 0x01, 0x70, 0x02, 0x22)
	sigDriveSite = pattern.Sig(0xCA, 0x24, 0x04, 0x80, pattern.Wildcard, 0x4D)
	sigSportSite = pattern.Sig(0xFC, 0x23, 0x43, 0x80, 0x32, 0x23, 0x83, 0x81)
)

// Model is the Mi4 Lite LKS32 patcher.
type Model struct {
	*lks32.Family
}

// New wraps data as a Mi4 Lite firmware image.
func New(data []byte) *Model {
	return &Model{Family: lks32.New(data)}
}

func (m *Model) speedLimit(name string, siteSig pattern.Signature, branchExtra int, reg string, kmh float64) (core.Records, error) {
	var recs core.Records

	branchRec, err := m.BranchFromTo(sigBranchSrc, sigBranchDst, "speed_limit_fix", 0)
	if err != nil {
		return recs, err
	}
	if branchRec != nil {
		recs = append(recs, *branchRec)
	}

	ofs, err := pattern.Find(m.Data, siteSig, nil, 0, 0)
	if err != nil {
		return recs, err
	}
	srcIdx, err := pattern.Find(m.Data, sigBranchSrc, nil, ofs, 0)
	if err != nil {
		return recs, err
	}
	minDst := srcIdx + len(sigBranchSrc) + branchExtra

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
	return m.speedLimit("speed_limit_drive", sigDriveSite, 2, "r4", kmh)
}

// SpeedLimitSport sets the sport-mode speed limit to kmh.
func (m *Model) SpeedLimitSport(kmh float64) (core.Records, error) {
	return m.speedLimit("speed_limit_sport", sigSportSite, 6, "r3", kmh)
}

// RemoveSpeedLimitSport sets the sport-mode limit to the open value 36.7.
func (m *Model) RemoveSpeedLimitSport() (core.Records, error) {
	return m.SpeedLimitSport(36.7)
}
