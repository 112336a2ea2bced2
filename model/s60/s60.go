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

// Package s60 implements the Segway S60 ES32 patch set. Structurally
// identical to mi5pro's literal-rewrite technique, minus a region unlock
// and with a fixed r2 destination register on the sport-mode site patch.
package s60

import (
	"github.com/scooterteam/bwpatch/core"
	"github.com/scooterteam/bwpatch/family/es32"
	"github.com/scooterteam/bwpatch/pattern"
)

var (
	sigSpeedGuard   = pattern.Sig(0x14, 0x20, 0x38, 0x5E, 0x88, 0x42, 0xE2, 0xDD, 0xB9, 0x82)
	sigDriveLiteral = pattern.Sig(0x5C, 0x4A, 0x12, 0x88, 0xEA, 0xE7)
	sigSportLiteral = pattern.Sig(0x68, 0x48, 0x01, 0x2A, 0x17, 0xD0)
	sigSportSite    = pattern.Sig(0x02, 0x88, 0xE8, 0xE7, 0x1A, 0x78, 0x01, 0x2A)
)

// Model is the Segway S60 ES32 patcher.
type Model struct {
	*es32.Family
}

// New wraps data as an S60 firmware image.
func New(data []byte) *Model {
	return &Model{Family: es32.New(data)}
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
	enc, err := m.Asm.Assemble("mov r2, r0", uint32(siteOfs))
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
