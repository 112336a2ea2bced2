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

// Package engine is the top-level patch orchestrator: given a model name, the
// input bytes and an ordered list of patch tokens, it constructs the right
// model patcher, dispatches each token to the capability it names, and
// returns the finished image plus the audit trail. It is the one place that
// knows about every patch-kind name; everything else only knows its own
// capability interface.
package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/scooterteam/bwpatch/core"
	"github.com/scooterteam/bwpatch/errors"
	"github.com/scooterteam/bwpatch/logger"
	"github.com/scooterteam/bwpatch/registry"
)

// Kind enumerates the closed set of patch-token names the orchestrator
// understands. Replacing the source's attribute-lookup-by-string with this
// means an unrecognized token is a parse-time InvalidParameter, never a
// runtime miss against a model that happens not to implement it.
type Kind int

const (
	SportLimit Kind = iota
	DriveLimit
	PedestrianLimit
	RemoveSportLimit
	DashboardMaxSpeed
	MotorStartSpeed
	RegionFree
	CruiseControlEnable
	FakeDrvVersion
	FixChecksum
)

var kindNames = map[string]Kind{
	"sls":  SportLimit,
	"sld":  DriveLimit,
	"slp":  PedestrianLimit,
	"rsls": RemoveSportLimit,
	"dms":  DashboardMaxSpeed,
	"mss":  MotorStartSpeed,
	"rfm":  RegionFree,
	"cce":  CruiseControlEnable,
	"fdv":  FakeDrvVersion,
	"chk":  FixChecksum,
}

// Token is one parsed element of a patch-token list: a recognized kind plus
// whichever of its two value forms applies.
type Token struct {
	Kind     Kind
	Name     string
	Float    float64
	HasFloat bool
	Str      string
}

var fourDigits = func(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseToken splits raw on "=" into a name and an optional value, validates
// the name against the closed set of recognized patch kinds, and parses the
// value according to that kind's contract: a float for every numeric patch,
// the raw four-digit string for fdv.
func ParseToken(raw string) (Token, error) {
	name, value, hasValue := raw, "", false
	if i := strings.IndexByte(raw, '='); i >= 0 {
		name, value, hasValue = raw[:i], raw[i+1:], true
	}

	kind, ok := kindNames[name]
	if !ok {
		return Token{}, errors.Errorf(errors.InvalidParameter, fmt.Sprintf("unrecognized patch token %q", name))
	}

	tok := Token{Kind: kind, Name: name}
	if kind == FakeDrvVersion {
		if !hasValue || !fourDigits(value) {
			return Token{}, errors.Errorf(errors.InvalidParameter, fmt.Sprintf("fdv value %q is not four ASCII digits", value))
		}
		tok.Str = value
		return tok, nil
	}

	if hasValue {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Token{}, errors.Errorf(errors.InvalidParameter, fmt.Sprintf("patch %q value %q is not a number", name, value))
		}
		tok.Float = f
		tok.HasFloat = true
	} else if numericKinds[kind] {
		return Token{}, errors.Errorf(errors.InvalidParameter, fmt.Sprintf("patch %q requires a value", name))
	}
	return tok, nil
}

// numericKinds is the set of patch kinds whose capability takes a float
// argument. Checked explicitly in ParseToken rather than letting a missing
// value fall through as 0, which is what the source's "if value:" truthy
// dispatch would otherwise do for a deliberately-supplied 0.
var numericKinds = map[Kind]bool{
	SportLimit:        true,
	DriveLimit:        true,
	PedestrianLimit:   true,
	DashboardMaxSpeed: true,
	MotorStartSpeed:   true,
}

// ParseTokens parses a comma-separated patch-token string, per the CLI
// surface's token grammar, and appends "chk" for ES32 and N32 models that
// didn't already end their list with it.
func ParseTokens(modelName string, raw string) ([]Token, error) {
	var names []string
	if strings.TrimSpace(raw) != "" {
		names = strings.Split(raw, ",")
	}

	if registry.AutoAppendChecksum(modelName) {
		last := ""
		if len(names) > 0 {
			last = strings.TrimSpace(strings.SplitN(names[len(names)-1], "=", 2)[0])
		}
		if last != "chk" {
			names = append(names, "chk")
		}
	}

	tokens := make([]Token, 0, len(names))
	for _, n := range names {
		tok, err := ParseToken(strings.TrimSpace(n))
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// dispatch applies a single token to model, type-asserting it against the
// capability interface the token's kind requires.
func dispatch(model core.Model, tok Token) (core.Records, error) {
	switch tok.Kind {
	case SportLimit:
		m, ok := model.(core.SpeedLimitSporter)
		if !ok {
			return nil, unsupported(tok.Name)
		}
		return m.SpeedLimitSport(tok.Float)
	case DriveLimit:
		m, ok := model.(core.SpeedLimitDriver)
		if !ok {
			return nil, unsupported(tok.Name)
		}
		return m.SpeedLimitDrive(tok.Float)
	case PedestrianLimit:
		m, ok := model.(core.SpeedLimitPedestrian)
		if !ok {
			return nil, unsupported(tok.Name)
		}
		return m.SpeedLimitPedestrianMode(tok.Float)
	case RemoveSportLimit:
		m, ok := model.(core.SpeedLimitSportRemover)
		if !ok {
			return nil, unsupported(tok.Name)
		}
		return m.RemoveSpeedLimitSport()
	case DashboardMaxSpeed:
		m, ok := model.(core.DashboardMaxSpeeder)
		if !ok {
			return nil, unsupported(tok.Name)
		}
		return m.DashboardMaxSpeed(tok.Float)
	case MotorStartSpeed:
		m, ok := model.(core.MotorStartSpeeder)
		if !ok {
			return nil, unsupported(tok.Name)
		}
		return m.MotorStartSpeed(tok.Float)
	case RegionFree:
		m, ok := model.(core.RegionFreer)
		if !ok {
			return nil, unsupported(tok.Name)
		}
		return m.RegionFree()
	case CruiseControlEnable:
		m, ok := model.(core.CruiseControlEnabler)
		if !ok {
			return nil, unsupported(tok.Name)
		}
		return m.CruiseControlEnable()
	case FakeDrvVersion:
		m, ok := model.(core.FirmwareVersionSpoofer)
		if !ok {
			return nil, unsupported(tok.Name)
		}
		return m.FakeDrvVersion(tok.Str)
	case FixChecksum:
		m, ok := model.(core.ChecksumFixer)
		if !ok {
			return nil, unsupported(tok.Name)
		}
		return m.FixChecksum()
	default:
		return nil, errors.Errorf(errors.InvalidParameter, fmt.Sprintf("unhandled patch kind %d", tok.Kind))
	}
}

func unsupported(name string) error {
	return errors.Errorf(errors.UnsupportedCapability, name)
}

// finalBytes returns the bytes the orchestrator should write out: the full
// envelope-spliced image for families that carry one (currently N32), or the
// model's own buffer otherwise.
func finalBytes(model core.Model) []byte {
	if fi, ok := model.(core.FullImager); ok {
		return fi.CreateFullImage()
	}
	return model.Bytes()
}

// PatchFirmware is the engine's programmatic entrypoint. It constructs
// modelName's patcher over input, applies each token in patches in order, and
// returns the resulting image together with every record produced.
//
// In web mode any patch-level error aborts the session immediately and is
// returned unchanged. In CLI mode (web=false) a patch-level error is logged
// and the session continues with whatever patches already succeeded; every
// failure encountered along the way is accumulated and joined into the
// returned error, so a caller printing it at session end sees one line per
// failed patch without losing the partially patched output.
func PatchFirmware(modelName string, input []byte, patches []string, web bool) ([]byte, core.Records, error) {
	ctor, ok := registry.Lookup(modelName)
	if !ok {
		return nil, nil, errors.Errorf(errors.InvalidParameter, fmt.Sprintf("unknown model %q", modelName))
	}

	tokens, err := ParseTokens(modelName, strings.Join(patches, ","))
	if err != nil {
		return nil, nil, err
	}

	data := make([]byte, len(input))
	copy(data, input)
	model := ctor(data)

	var all core.Records
	var failures []string
	for _, tok := range tokens {
		recs, err := dispatch(model, tok)
		if err != nil {
			wrapped := errors.Errorf(errors.PatchError, fmt.Sprintf("%q: %v", tok.Name, err))
			logger.Logf("engine", "patch %q failed: %v", tok.Name, err)
			if web {
				return nil, all, err
			}
			failures = append(failures, wrapped.Error())
			continue
		}
		all = append(all, recs...)
		logger.Log("engine", recs)
	}

	var sessionErr error
	if len(failures) > 0 {
		sessionErr = errors.Errorf(errors.PatchError, strings.Join(failures, "\n"))
	}
	return finalBytes(model), all, sessionErr
}
