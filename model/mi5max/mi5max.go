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

// Package mi5max implements the Xiaomi Mi5 Max LKS32 patch set. It inherits
// the full Mi5 speed-limit logic and adds a region-unlock that the base Mi5
// patcher doesn't offer: the Max's firmware gates its region check behind a
// pair of sensor-calibration comparisons, and behind two literal
// sensor-variant identifiers used to pick which calibration table applies.
package mi5max

import (
	"fmt"

	"github.com/scooterteam/bwpatch/core"
	"github.com/scooterteam/bwpatch/errors"
	"github.com/scooterteam/bwpatch/model/mi5"
	"github.com/scooterteam/bwpatch/pattern"
)

// sigCCU matches two consecutive calibration-compare blocks, each an 8-byte
// ldr/ldr/cmp/bXX sequence whose trailing halfword is the conditional branch
// gating the region lock.
var sigCCU = pattern.Sig(
	0x13, 0x68, 0x93, 0x4D, 0xAB, 0x42, 0x1E, 0xD0,
	0x12, 0x68, 0x92, 0x4B, 0x9A, 0x42, 0x1A, 0xD0,
)

// sensorVariants are the two little-endian sensor-identifier literals
// referenced by the region table; zeroing them removes the variant gate
// entirely rather than satisfying either branch of it.
var sensorVariants = []pattern.Signature{
	pattern.Sig(0x85, 0xEC, 0x00, 0x00),
	pattern.Sig(0xC4, 0xEE, 0x00, 0x00),
}

// Model is the Mi5 Max LKS32 patcher.
type Model struct {
	*mi5.Model
}

// New wraps data as a Mi5 Max firmware image.
func New(data []byte) *Model {
	return &Model{Model: mi5.New(data)}
}

// RegionFree NOPs out both calibration-compare branches in the sensor-gate
// block and zeroes the two sensor-variant literals that select between
// them, so the region lock can never re-arm regardless of which sensor
// variant the unit reports.
func (m *Model) RegionFree() (core.Records, error) {
	idx, err := pattern.Find(m.Data, sigCCU, nil, 0, 0)
	if err != nil {
		return nil, err
	}

	var recs core.Records
	for i := 0; i < 2; i++ {
		branchOfs := idx + i*8 + 6
		rec, err := m.NopOut(fmt.Sprintf("region_free_guard_%d", i), branchOfs, 2)
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}

	for i, sig := range sensorVariants {
		variantIdx, err := pattern.Find(m.Data, sig, nil, 0, 0)
		if err != nil {
			if errors.Is(err, errors.PatternNotFound) {
				continue
			}
			return recs, err
		}
		recs = append(recs, core.Write(m.Data, fmt.Sprintf("region_free_sensor_%d", i), variantIdx, []byte{0, 0, 0, 0}))
	}
	return recs, nil
}
