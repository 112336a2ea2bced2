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

// Package mi5elite implements the Xiaomi Mi5 Elite N32 patch set.
//
// Unlike every other model, its three speed modes (pedestrian, drive,
// sport) share one rewritable dispatch block rather than three independent
// literal sites: a trampoline at the original speed-limit check loads the
// current mode into r0 and branches into a synthesized chain of
// "cmp mode; bne next; movs.w r0, speed; b return" blocks, one per mode
// that has been patched so far, falling through to the original behaviour
// for any mode that hasn't. Patching a second mode after the first
// therefore means re-synthesizing the whole dispatch block from the
// accumulated set of patched speeds, not just writing a new value.
package mi5elite

import (
	"fmt"
	"strings"

	"github.com/scooterteam/bwpatch/core"
	"github.com/scooterteam/bwpatch/errors"
	"github.com/scooterteam/bwpatch/family/n32"
	"github.com/scooterteam/bwpatch/pattern"
)

const (
	modePedestrian = 1
	modeDrive      = 2
	modeSport      = 3
)

var (
	sigSpeedLimitReturn = pattern.Sig(
		0x08, 0x80, 0x52, 0x48, 0x52, 0x49, 0x00, 0x88,
		0x09, 0x88, 0x00, 0xF1, 0x0A, 0x02, 0x8A, 0x42, 0x01, 0xD9,
	)
	sigSpeedLimitDst = pattern.Sig(
		0xDF, 0xF8, 0xF0, 0x81, 0xA8, 0xF8, 0x00, 0x10, 0x7B, 0x49, 0x67, 0x45,
	)
	sigModeDataAddr = pattern.Sig(0x8A, 0x01, 0x00, 0x20)
	sigR1DataAddr   = pattern.Sig(0xA4, 0x01, 0x00, 0x20)
	sigMotorStart   = pattern.Sig(
		0x01, 0x80, 0x2D, 0x2B, 0xEF, 0xD3, 0x11, 0x70,
		0x70, 0xBD, 0x14, 0x33, 0x2D, 0x2B, 0x07, 0xD2,
	)
)

var modeOrder = []struct {
	key  string
	mode int
}{
	{"ped", modePedestrian},
	{"drive", modeDrive},
	{"sport", modeSport},
}

// Model is the Mi5 Elite N32 patcher.
type Model struct {
	*n32.Family

	patchedSpeeds     map[string]int
	speedBlockPatched bool

	ldrPatchOffset     int
	speedLogicOffset   int
	defaultPathAddress int
	patchedPathAddress int
	ldrR0Offset        int
	ldrR1Offset        int
}

// New wraps data as a Mi5 Elite firmware image.
func New(data []byte) *Model {
	return &Model{
		Family:        n32.New(data),
		patchedSpeeds: map[string]int{},
	}
}

// locateSpeedPatchOffsets discovers every offset the dispatch block needs.
// It's only ever computed once: every later call reuses the values cached
// on Model, since the signatures it searches for stop matching after the
// first patch rewrites the code around them.
func (m *Model) locateSpeedPatchOffsets() error {
	sigOfs, err := pattern.Find(m.Data, sigSpeedLimitReturn, nil, 0, 0)
	if err != nil {
		return errors.Errorf(errors.PatternNotFound, "speed limit return site: %v", err)
	}
	m.ldrPatchOffset = sigOfs - 12

	dstOfs, err := pattern.Find(m.Data, sigSpeedLimitDst, nil, 0, 0)
	if err != nil {
		return errors.Errorf(errors.PatternNotFound, "speed logic destination: %v", err)
	}
	m.speedLogicOffset = dstOfs + len(sigSpeedLimitDst) + 2

	m.defaultPathAddress = m.ldrPatchOffset + 6
	m.patchedPathAddress = m.ldrPatchOffset + 12

	modeDataAddr, err := pattern.Find(m.Data, sigModeDataAddr, nil, 0, 0)
	if err != nil {
		return err
	}
	ldrR0PC := (m.ldrPatchOffset + 4) &^ 3
	m.ldrR0Offset = modeDataAddr - ldrR0PC

	r1DataAddr, err := pattern.Find(m.Data, sigR1DataAddr, nil, 0, 0)
	if err != nil {
		return err
	}
	ldrR1PC := (m.speedLogicOffset + 4) &^ 3
	m.ldrR1Offset = r1DataAddr - ldrR1PC

	return nil
}

// applyBranchPatch installs the 6-byte trampoline that loads the current
// mode byte into r0 and jumps into the speed logic block.
func (m *Model) applyBranchPatch() (core.Record, error) {
	branchAsm := fmt.Sprintf(
		"ldr r0, [pc, #%d]\nldrb r0, [r0, #0]\nb #0x%x",
		m.ldrR0Offset, m.speedLogicOffset,
	)
	enc, err := m.Asm.Assemble(branchAsm, uint32(m.ldrPatchOffset))
	if err != nil {
		return core.Record{}, err
	}
	if len(enc) != 6 {
		return core.Record{}, errors.Errorf(errors.AssemblyError, "branch patch encoded to %d bytes, expected 6", len(enc))
	}
	return core.Write(m.Data, "branch_patch", m.ldrPatchOffset, enc), nil
}

// buildSpeedLogicAsm synthesizes the mode dispatch chain for every mode
// patched so far, falling through to the original byte-5 read for any mode
// that hasn't been.
func (m *Model) buildSpeedLogicAsm() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ldr r1, [pc, #%d]\n", m.ldrR1Offset)

	var active []string
	for _, mo := range modeOrder {
		if _, ok := m.patchedSpeeds[mo.key]; ok {
			active = append(active, mo.key)
		}
	}

	modeByKey := map[string]int{"ped": modePedestrian, "drive": modeDrive, "sport": modeSport}
	for i, key := range active {
		nextLabel := "default_case"
		if i+1 < len(active) {
			nextLabel = "check_" + active[i+1]
		}
		fmt.Fprintf(&sb, "check_%s:\ncmp r0, #%d\nbne %s\nmovs.w r0, #%d\nb #0x%x\n",
			key, modeByKey[key], nextLabel, m.patchedSpeeds[key], m.patchedPathAddress)
	}

	fmt.Fprintf(&sb, "default_case:\nldrb.w r0, [r8, #5]\nb #0x%x\n", m.defaultPathAddress)
	return sb.String()
}

// patchSpeedBlock updates whichever of ped/drive/sport speeds are non-nil,
// performs the one-time structural setup on the first call, and then
// always rebuilds and reassembles the dispatch block to reflect the full
// accumulated set of patched speeds.
func (m *Model) patchSpeedBlock(pedKmh, driveKmh, sportKmh *float64) (core.Records, error) {
	if pedKmh != nil {
		m.patchedSpeeds["ped"] = n32.CalcSpeedValue(*pedKmh, 10)
	}
	if driveKmh != nil {
		m.patchedSpeeds["drive"] = n32.CalcSpeedValue(*driveKmh, 10)
	}
	if sportKmh != nil {
		m.patchedSpeeds["sport"] = n32.CalcSpeedValue(*sportKmh, 10)
	}

	var recs core.Records
	fixRecs, err := m.speedLimitFix()
	if err != nil {
		return recs, err
	}
	recs = append(recs, fixRecs...)

	if !m.speedBlockPatched {
		if err := m.locateSpeedPatchOffsets(); err != nil {
			return recs, err
		}
		rec, err := m.applyBranchPatch()
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}

	asmCode := m.buildSpeedLogicAsm()
	enc, err := m.Asm.Assemble(asmCode, uint32(m.speedLogicOffset))
	if err != nil {
		return recs, err
	}
	name := "speed_logic_block"
	if m.speedBlockPatched {
		name = "speed_constants_updated"
	}
	recs = append(recs, core.Write(m.Data, name, m.speedLogicOffset, enc))

	m.speedBlockPatched = true
	return recs, nil
}

// SpeedLimitPedestrianMode sets the pedestrian-mode speed limit to kmh.
func (m *Model) SpeedLimitPedestrianMode(kmh float64) (core.Records, error) {
	return m.patchSpeedBlock(&kmh, nil, nil)
}

// SpeedLimitDrive sets the drive-mode speed limit to kmh.
func (m *Model) SpeedLimitDrive(kmh float64) (core.Records, error) {
	return m.patchSpeedBlock(nil, &kmh, nil)
}

// SpeedLimitSport sets the sport-mode speed limit to kmh.
func (m *Model) SpeedLimitSport(kmh float64) (core.Records, error) {
	return m.patchSpeedBlock(nil, nil, &kmh)
}

// RemoveSpeedLimitSport sets the sport-mode limit to the open value 36.7.
func (m *Model) RemoveSpeedLimitSport() (core.Records, error) {
	return m.SpeedLimitSport(36.7)
}

// speedLimitFix replaces the regional speed-limit conditional branch with
// an unconditional one, idempotently: if the bytes at the site already
// match the intended encoding, nothing is written.
func (m *Model) speedLimitFix() (core.Records, error) {
	ofsSig, err := pattern.Find(m.Data, sigSpeedLimitDst, nil, 0, 0)
	if err != nil {
		if errors.Is(err, errors.PatternNotFound) {
			return nil, nil
		}
		return nil, err
	}
	ofs := ofsSig + len(sigSpeedLimitDst)
	target := ofs + 130

	enc, err := m.Asm.Assemble(fmt.Sprintf("b #0x%x", target), uint32(ofs))
	if err != nil {
		return nil, err
	}
	if ofs+len(enc) > len(m.Data) {
		return nil, errors.Errorf(errors.RangeError, "speed_limit_fix at 0x%x exceeds buffer", ofs)
	}
	pre := m.Data[ofs : ofs+len(enc)]
	same := true
	for i := range enc {
		if pre[i] != enc[i] {
			same = false
			break
		}
	}
	if same {
		return nil, nil
	}
	return core.Records{core.Write(m.Data, "speed_limit_fix", ofs, enc)}, nil
}

// MotorStartSpeed patches the three comparison thresholds gating the
// minimum speed the motor will engage at: the main threshold (duplicated
// at two offsets) and a hysteresis threshold at half its value.
func (m *Model) MotorStartSpeed(kmh float64) (core.Records, error) {
	ofsSig, err := pattern.Find(m.Data, sigMotorStart, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	speed := n32.CalcSpeedValue(kmh, 10)
	hyst := speed / 2

	recs := core.Records{
		core.Write(m.Data, "motor_start_speed_threshold_1", ofsSig+2, []byte{byte(speed)}),
		core.Write(m.Data, "motor_start_speed_hysteresis", ofsSig+10, []byte{byte(hyst)}),
		core.Write(m.Data, "motor_start_speed_threshold_2", ofsSig+12, []byte{byte(speed)}),
	}
	return recs, nil
}
