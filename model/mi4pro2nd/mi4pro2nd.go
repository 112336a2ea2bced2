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

// Package mi4pro2nd implements the Xiaomi Mi4 Pro 2nd-gen ES32 patch set.
// It does not offer a firmware-version spoof; that capability was never
// implemented for this model upstream.
package mi4pro2nd

import (
	"fmt"

	"github.com/scooterteam/bwpatch/core"
	"github.com/scooterteam/bwpatch/errors"
	"github.com/scooterteam/bwpatch/family/es32"
	"github.com/scooterteam/bwpatch/pattern"
)

var (
	sigRegionTable = pattern.Sig(0x9C, 0xA7, 0x00, 0x00, 0x22, 0x03, 0x00, 0x20)
	sigRegionGuard = pattern.Sig(0x60, 0x8B, 0x60, 0x82, 0x56, 0x48, 0x00, 0x78)
	sigDriveSite   = pattern.Sig(0x38, 0x00, 0x39, 0x01, 0xA1, 0x01, 0x39, 0x01, 0x39)
	sigSportSite   = pattern.Sig(0x00, 0x00, 0xA1, 0x01, 0x0A, 0x02, 0xA1, 0x01)
)

// Model is the Mi4 Pro 2nd-gen ES32 patcher.
type Model struct {
	*es32.Family
}

// New wraps data as a Mi4 Pro 2nd-gen firmware image.
func New(data []byte) *Model {
	return &Model{Family: es32.New(data)}
}

// RegionFree overwrites seven consecutive 4-byte region-table entries
// starting 4 bytes past the table signature, then rewrites a trailing
// comparison guard to always treat the region as unlocked.
func (m *Model) RegionFree() (core.Records, error) {
	ofs, err := pattern.Find(m.Data, sigRegionTable, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	tag := []byte{0x21, 0x03, 0x00, 0x20}
	var recs core.Records
	for i := 0; i < 7; i++ {
		ofs += 4
		if ofs+4 > len(m.Data) {
			return recs, errors.Errorf(errors.RangeError, "region table entry %d at 0x%x exceeds buffer", i, ofs)
		}
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

func (m *Model) speedLimit(name string, siteSig pattern.Signature, kmh float64) (core.Records, error) {
	ofs, err := pattern.Find(m.Data, siteSig, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	post, err := es32.CalcSpeed(kmh, 20.9, 2)
	if err != nil {
		return nil, err
	}
	var recs core.Records
	for i := 0; i < 11; i++ {
		ofs += 2
		if ofs+2 > len(m.Data) {
			return recs, errors.Errorf(errors.RangeError, "%s entry %d at 0x%x exceeds buffer", name, i, ofs)
		}
		recs = append(recs, core.Write(m.Data, fmt.Sprintf("%s_%d", name, i), ofs, post))
	}
	return recs, nil
}

// SpeedLimitDrive sets the drive-mode speed limit to kmh.
func (m *Model) SpeedLimitDrive(kmh float64) (core.Records, error) {
	return m.speedLimit("speed_limit_drive", sigDriveSite, kmh)
}

// SpeedLimitSport sets the sport-mode speed limit to kmh.
func (m *Model) SpeedLimitSport(kmh float64) (core.Records, error) {
	return m.speedLimit("speed_limit_sport", sigSportSite, kmh)
}

// RemoveSpeedLimitSport sets the sport-mode limit to the open value 36.7.
func (m *Model) RemoveSpeedLimitSport() (core.Records, error) {
	return m.SpeedLimitSport(36.7)
}
