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

package registry_test

import (
	"testing"

	"github.com/scooterteam/bwpatch/registry"
	"github.com/stretchr/testify/assert"
)

func TestNames_sortedAndComplete(t *testing.T) {
	names := registry.Names()
	assert.Equal(t, []string{
		"mi4", "mi4lite", "mi4pro2nd", "mi5", "mi5elite", "mi5max", "mi5pro", "s60", "ultra4",
	}, names)
}

func TestLookup_knownModel(t *testing.T) {
	ctor, ok := registry.Lookup("mi4")
	assert.True(t, ok)
	assert.NotNil(t, ctor)
}

func TestLookup_unknownModel(t *testing.T) {
	_, ok := registry.Lookup("nope")
	assert.False(t, ok)
}

func TestChipFamily(t *testing.T) {
	fam, ok := registry.ChipFamily("mi5elite")
	assert.True(t, ok)
	assert.Equal(t, "n32", fam)
}

func TestAutoAppendChecksum(t *testing.T) {
	assert.True(t, registry.AutoAppendChecksum("mi4pro2nd"))
	assert.True(t, registry.AutoAppendChecksum("mi5elite"))
	assert.False(t, registry.AutoAppendChecksum("mi4"))
	assert.False(t, registry.AutoAppendChecksum("nonexistent"))
}
