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

// Package registry is the closed, build-time set of model patchers the
// orchestrator can construct. There is no directory scan and no plugin
// mechanism: adding a model means adding a line here.
package registry

import (
	"sort"

	"github.com/scooterteam/bwpatch/core"
	"github.com/scooterteam/bwpatch/model/mi4"
	"github.com/scooterteam/bwpatch/model/mi4lite"
	"github.com/scooterteam/bwpatch/model/mi4pro2nd"
	"github.com/scooterteam/bwpatch/model/mi5"
	"github.com/scooterteam/bwpatch/model/mi5elite"
	"github.com/scooterteam/bwpatch/model/mi5max"
	"github.com/scooterteam/bwpatch/model/mi5pro"
	"github.com/scooterteam/bwpatch/model/s60"
	"github.com/scooterteam/bwpatch/model/ultra4"
)

// Constructor wraps raw firmware bytes as a model-specific patcher.
type Constructor func(data []byte) core.Model

var constructors = map[string]Constructor{
	"mi4":       func(data []byte) core.Model { return mi4.New(data) },
	"mi4lite":   func(data []byte) core.Model { return mi4lite.New(data) },
	"mi4pro2nd": func(data []byte) core.Model { return mi4pro2nd.New(data) },
	"mi5":       func(data []byte) core.Model { return mi5.New(data) },
	"mi5max":    func(data []byte) core.Model { return mi5max.New(data) },
	"mi5pro":    func(data []byte) core.Model { return mi5pro.New(data) },
	"mi5elite":  func(data []byte) core.Model { return mi5elite.New(data) },
	"s60":       func(data []byte) core.Model { return s60.New(data) },
	"ultra4":    func(data []byte) core.Model { return ultra4.New(data) },
}

// Lookup returns the constructor registered for name, and whether one
// exists.
func Lookup(name string) (Constructor, bool) {
	c, ok := constructors[name]
	return c, ok
}

// Names returns every registered model name, sorted.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// chipFamily classifies each registered model by the chip family it
// specializes, the thing the orchestrator needs to know to decide whether to
// append "chk" automatically.
var chipFamily = map[string]string{
	"mi4":       "lks32",
	"mi4lite":   "lks32",
	"mi5":       "lks32",
	"mi5max":    "lks32",
	"ultra4":    "lks32",
	"mi4pro2nd": "es32",
	"mi5pro":    "es32",
	"s60":       "es32",
	"mi5elite":  "n32",
}

// ChipFamily returns the chip family a registered model specializes
// ("lks32", "es32" or "n32"), and whether name is registered at all.
func ChipFamily(name string) (string, bool) {
	f, ok := chipFamily[name]
	return f, ok
}

// AutoAppendChecksum reports whether the orchestrator should silently append
// "chk" to a patch-token list that omits it. Only ES32 and N32 models get
// this; an LKS32 session that forgets "chk" writes an unfinalized image on
// purpose, matching the source's own asymmetry.
func AutoAppendChecksum(name string) bool {
	f, ok := chipFamily[name]
	return ok && (f == "es32" || f == "n32")
}
