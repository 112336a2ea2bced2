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

// Package mi4 implements the Xiaomi Mi4 LKS32 patch set.
package mi4

import (
	"encoding/binary"
	"fmt"

	"github.com/scooterteam/bwpatch/core"
	"github.com/scooterteam/bwpatch/errors"
	"github.com/scooterteam/bwpatch/family/lks32"
	"github.com/scooterteam/bwpatch/pattern"
)

var (
	sigBranchSrc = pattern.Sig(0x20, 0x31, pattern.Wildcard, 0x72, 0x0F, pattern.Wildcard, pattern.Wildcard, 0x72)
	sigBranchDst = pattern.Sig(0xF5, 0x31, 0x01, 0x83, 0x11, 0x48)
	sigDashboard = pattern.Sig(0x01, 0x46, 0xF3, 0x39, 0x11, 0x29, 0x00, 0xD2, 0xFF, 0x20)
	sigDriveSite = pattern.Sig(0xCA, pattern.Wildcard, pattern.Wildcard, 0x80, pattern.Wildcard, pattern.Wildcard, 0xB9, 0x21, pattern.Wildcard, 0x80)
	sigSportSite = pattern.Sig(0xFC, 0x21, 0x41, 0x80, 0x78, 0x21, 0x81, 0x81)
)

// Model is the Mi4 LKS32 patcher.
type Model struct {
	*lks32.Family
}

// New wraps data as a Mi4 firmware image.
func New(data []byte) *Model {
	return &Model{Family: lks32.New(data)}
}

// DashboardMaxSpeed splices a fixed 10-byte sequence that clamps the
// dashboard's displayed speed reading to speed km/h.
func (m *Model) DashboardMaxSpeed(speed float64) (core.Records, error) {
	if speed < 1.0 || speed > 29.6 {
		return nil, errors.Errorf(errors.InvalidParameter, "dashboard speed %.2f out of range [1.0, 29.6]", speed)
	}
	v := int(speed / 2 * 10)

	ofs, err := pattern.Find(m.Data, sigDashboard, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	snippet := fmt.Sprintf("movs r1, #0x%x; lsls r1, r1, #0x1; cmp r1, r0; bcs #0xa; mov r0, r1", v)
	enc, err := m.Asm.Assemble(snippet, 0)
	if err != nil {
		return nil, err
	}
	if len(enc) != 10 {
		return nil, errors.Errorf(errors.AssemblyError, "dashboard_max_speed sequence encoded to %d bytes, expected 10", len(enc))
	}
	return core.Records{core.Write(m.Data, "dashboard_max_speed", ofs, enc)}, nil
}

func (m *Model) speedLimit(name string, siteSig pattern.Signature, branchExtra int, defaultReg string, kmh float64) (core.Records, error) {
	var recs core.Records

	branchRec, err := m.BranchFromTo(sigBranchSrc, sigBranchDst, "speed_limit_fix", 4)
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

	insn := m.Asm.Disassemble(m.Data[ofs : ofs+2])
	reg := pattern.RegisterFromDisassembly(insn, defaultReg)
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
	return m.speedLimit("speed_limit_sport", sigSportSite, 6, "r1", kmh)
}

// RemoveSpeedLimitSport sets the sport-mode limit to the open value 36.7.
func (m *Model) RemoveSpeedLimitSport() (core.Records, error) {
	return m.SpeedLimitSport(36.7)
}
