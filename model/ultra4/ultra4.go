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

// Package ultra4 implements the Segway Ninebot Ultra4 LKS32 patch set. It
// adds a dashboard speed clamp and a motor-start-speed curve on top of the
// usual LKS32 speed-limit relocation.
package ultra4

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/scooterteam/bwpatch/core"
	"github.com/scooterteam/bwpatch/errors"
	"github.com/scooterteam/bwpatch/family/lks32"
	"github.com/scooterteam/bwpatch/pattern"
)

var (
	sigBranchSrc     = pattern.Sig(0xCB, 0x73, pattern.Wildcard, pattern.Wildcard, 0x03, 0x80, pattern.Wildcard, pattern.Wildcard, 0x41, 0x80)
	sigBranchDst     = pattern.Sig(0x45, 0x81, 0x85, 0x81, pattern.Wildcard, 0x48)
	sigDashboard     = pattern.Sig(0x3B, 0x49, 0x0A, 0x88, 0x08, 0x3A, 0x90, 0x42, 0x04, 0xDD)
	sigMotorStart    = pattern.Sig(0x16, 0xE0, pattern.Wildcard, 0x88, 0x49, pattern.Wildcard, pattern.Wildcard, 0x00, pattern.Wildcard, 0x42, 0x11, 0xD2)
	sigDriveSite     = pattern.Sig(0x0F, 0x23, 0xCB, 0x73, 0xCA, 0x23, 0x03, 0x80)
	sigSportSite     = pattern.Sig(0x0F, 0x23, 0xCB, 0x73, pattern.Wildcard, pattern.Wildcard, 0x03, 0x80, 0xFC, 0x21, 0x41, 0x80)
	sigDriveDstExtra = pattern.Sig(0xCB, 0x73, pattern.Wildcard, pattern.Wildcard, 0x03, 0x80, pattern.Wildcard, pattern.Wildcard, 0x41, 0x80, pattern.Wildcard, pattern.Wildcard)

	sigRegionTag    = pattern.Sig(0x43, 0x4E, pattern.Wildcard, pattern.Wildcard)
	sigCruiseSite   = pattern.Sig(0x20, 0x46, 0x01, 0x28, pattern.Wildcard, 0xD1, 0x00, 0x21)
	sigCruiseGuard  = pattern.Sig(0x00, 0x2F, 0x04, 0xD0)
)

// Model is the Ultra4 LKS32 patcher.
type Model struct {
	*lks32.Family
}

// New wraps data as an Ultra4 firmware image.
func New(data []byte) *Model {
	return &Model{Family: lks32.New(data)}
}

// DashboardMaxSpeed splices a fixed 20-byte sequence that clamps the
// dashboard's displayed speed reading to speed km/h, padded out to a fixed
// length with five trailing no-ops.
func (m *Model) DashboardMaxSpeed(speed float64) (core.Records, error) {
	if speed < 1.0 || speed > 29.6 {
		return nil, errors.Errorf(errors.InvalidParameter, "dashboard speed %.2f out of range [1.0, 29.6]", speed)
	}
	v := int(speed / 2 * 10)

	ofs, err := pattern.Find(m.Data, sigDashboard, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	snippet := fmt.Sprintf("movs r1, #0x%x; lsls r1, r1, #0x1; cmp r0, r1; ble #0xe; mov r0, r1; nop; nop; nop; nop; nop", v)
	enc, err := m.Asm.Assemble(snippet, 0)
	if err != nil {
		return nil, err
	}
	if len(enc) != 20 {
		return nil, errors.Errorf(errors.AssemblyError, "dashboard_max_speed sequence encoded to %d bytes, expected 20", len(enc))
	}
	return core.Records{core.Write(m.Data, "dashboard_max_speed", ofs, enc)}, nil
}

// MotorStartSpeed sets the speed below which the motor idles rather than
// drives, picking the destination register from a byte discriminator
// already present in the firmware image.
func (m *Model) MotorStartSpeed(speed float64) (core.Records, error) {
	if speed < 1 || speed > 9 {
		return nil, errors.Errorf(errors.InvalidParameter, "motor start speed %.2f out of range [1, 9]", speed)
	}
	kmh := int(math.Round(-0.36*speed*speed-5.39*speed+68.6) * 3)

	idx, err := pattern.Find(m.Data, sigMotorStart, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	ofs := idx + 4
	if ofs+1 >= len(m.Data) {
		return nil, errors.Errorf(errors.RangeError, "motor_start_speed discriminator at 0x%x exceeds buffer", ofs)
	}

	var reg int
	switch b := m.Data[ofs+1]; b {
	case 0x25:
		reg = 5
	case 0x26:
		reg = 6
	default:
		return nil, errors.Errorf(errors.InvalidParameter, "unrecognised motor_start_speed firmware discriminator 0x%02x", b)
	}

	enc, err := m.Asm.Assemble(fmt.Sprintf("movs r%d, #0x%x", reg, kmh), uint32(ofs))
	if err != nil {
		return nil, err
	}
	if len(enc) != 2 {
		return nil, errors.Errorf(errors.AssemblyError, "motor_start_speed encoded to %d bytes, expected 2", len(enc))
	}
	return core.Records{core.Write(m.Data, "motor_start_speed", ofs, enc)}, nil
}

func (m *Model) speedLimit(name string, siteSig pattern.Signature, siteExtra int, dstSig pattern.Signature, dstExtra int, kmh float64) (core.Records, error) {
	var recs core.Records

	branchRec, err := m.BranchFromTo(sigBranchSrc, sigBranchDst, "speed_limit_fix", 0)
	if err != nil {
		return recs, err
	}
	if branchRec != nil {
		recs = append(recs, *branchRec)
	}

	siteIdx, err := pattern.Find(m.Data, siteSig, nil, 0, 0)
	if err != nil {
		return recs, err
	}
	ofs := siteIdx + siteExtra

	dstIdx, err := pattern.Find(m.Data, dstSig, nil, siteIdx, 0)
	if err != nil {
		return recs, err
	}
	minDst := dstIdx + len(dstSig) + dstExtra

	literalOfs, imm, err := m.SafeLDR(ofs, minDst)
	if err != nil {
		return recs, err
	}
	speed := make([]byte, 4)
	binary.LittleEndian.PutUint32(speed, uint32(int(kmh*10)))
	recs = append(recs, core.Write(m.Data, name+"_value", literalOfs, speed))

	enc, err := m.Asm.Assemble(fmt.Sprintf("ldr r3, [pc, #0x%x]", imm), uint32(ofs))
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
	return m.speedLimit("speed_limit_drive", sigDriveSite, 4, sigDriveDstExtra, 0, kmh)
}

// SpeedLimitSport sets the sport-mode speed limit to kmh.
func (m *Model) SpeedLimitSport(kmh float64) (core.Records, error) {
	return m.speedLimit("speed_limit_sport", sigSportSite, 8, sigBranchSrc, 6, kmh)
}

// RemoveSpeedLimitSport sets the sport-mode limit to the open value 36.7.
func (m *Model) RemoveSpeedLimitSport() (core.Records, error) {
	return m.SpeedLimitSport(36.7)
}

// RegionFree zeroes every occurrence of the Ultra4's regional-serial tag,
// satisfying core.RegionFreer over the LKS32 family's generic helper.
func (m *Model) RegionFree() (core.Records, error) {
	return m.Family.RegionFree([]pattern.Signature{sigRegionTag})
}

// CruiseControlEnable forces the cruise-control decision bit on, then NOPs
// out the firmware's "speed too low for cruise" guard if present.
func (m *Model) CruiseControlEnable() (core.Records, error) {
	return m.Family.CruiseControlEnable(sigCruiseSite, sigCruiseGuard)
}
