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

package core

// Model is what every model patcher implements at minimum: a handle onto
// the buffer being patched. The orchestrator dispatches patch tokens by
// type-asserting a Model against the capability interfaces below, the way
// the source's subclass chain offered some patches and not others — here
// that's a compile-time property of which interfaces a model's concrete
// type satisfies, not a runtime attribute lookup.
type Model interface {
	Bytes() []byte
}

// SpeedLimitSporter offers the "sls" capability.
type SpeedLimitSporter interface {
	SpeedLimitSport(kmh float64) (Records, error)
}

// SpeedLimitDriver offers the "sld" capability.
type SpeedLimitDriver interface {
	SpeedLimitDrive(kmh float64) (Records, error)
}

// SpeedLimitPedestrian offers the "slp" capability. Only the N32-family Mi 5
// Elite implements this.
type SpeedLimitPedestrian interface {
	SpeedLimitPedestrianMode(kmh float64) (Records, error)
}

// SpeedLimitSportRemover offers the "rsls" capability.
type SpeedLimitSportRemover interface {
	RemoveSpeedLimitSport() (Records, error)
}

// DashboardMaxSpeeder offers the "dms" capability.
type DashboardMaxSpeeder interface {
	DashboardMaxSpeed(kmh float64) (Records, error)
}

// MotorStartSpeeder offers the "mss" capability.
type MotorStartSpeeder interface {
	MotorStartSpeed(kmh float64) (Records, error)
}

// RegionFreer offers the "rfm" capability.
type RegionFreer interface {
	RegionFree() (Records, error)
}

// CruiseControlEnabler offers the "cce" capability.
type CruiseControlEnabler interface {
	CruiseControlEnable() (Records, error)
}

// FirmwareVersionSpoofer offers the "fdv" capability.
type FirmwareVersionSpoofer interface {
	FakeDrvVersion(version string) (Records, error)
}

// ChecksumFixer offers the "chk" capability.
type ChecksumFixer interface {
	FixChecksum() (Records, error)
}

// FullImager is implemented by families whose Bytes() buffer is not the
// final output on its own — currently only N32, which strips an outer
// envelope at construction time and must splice it back on. The orchestrator
// prefers this over Bytes() when a model provides it.
type FullImager interface {
	CreateFullImage() []byte
}
