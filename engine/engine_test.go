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

package engine_test

import (
	"testing"

	"github.com/scooterteam/bwpatch/engine"
	"github.com/scooterteam/bwpatch/test"
	"github.com/stretchr/testify/assert"
)

func TestParseToken_bareName(t *testing.T) {
	tok, err := engine.ParseToken("chk")
	test.ExpectSuccess(t, err)
	assert.Equal(t, engine.FixChecksum, tok.Kind)
	assert.False(t, tok.HasFloat)
}

func TestParseToken_numericValue(t *testing.T) {
	tok, err := engine.ParseToken("sls=25.5")
	test.ExpectSuccess(t, err)
	assert.Equal(t, engine.SportLimit, tok.Kind)
	assert.True(t, tok.HasFloat)
	assert.Equal(t, 25.5, tok.Float)
}

func TestParseToken_zeroValueNotDroppedAsFalsy(t *testing.T) {
	// the value 0 must be distinguishable from "no value supplied" -
	// a plain float-default-zero check would conflate the two.
	tok, err := engine.ParseToken("dms=0")
	test.ExpectSuccess(t, err)
	assert.True(t, tok.HasFloat)
	assert.Equal(t, 0.0, tok.Float)
}

func TestParseToken_numericKindRequiresValue(t *testing.T) {
	_, err := engine.ParseToken("sls")
	test.ExpectFailure(t, err)
}

func TestParseToken_fdvRequiresFourDigits(t *testing.T) {
	_, err := engine.ParseToken("fdv=123")
	test.ExpectFailure(t, err)

	tok, err := engine.ParseToken("fdv=1234")
	test.ExpectSuccess(t, err)
	assert.Equal(t, "1234", tok.Str)
}

func TestParseToken_unrecognizedName(t *testing.T) {
	_, err := engine.ParseToken("bogus=1")
	test.ExpectFailure(t, err)
}

func TestParseTokens_autoAppendsChkForES32(t *testing.T) {
	toks, err := engine.ParseTokens("mi4pro2nd", "sls=25.5")
	test.ExpectSuccess(t, err)
	assert.Len(t, toks, 2)
	assert.Equal(t, engine.FixChecksum, toks[1].Kind)
}

func TestParseTokens_doesNotDoubleAppendChk(t *testing.T) {
	toks, err := engine.ParseTokens("mi4pro2nd", "sls=25.5,chk")
	test.ExpectSuccess(t, err)
	assert.Len(t, toks, 2)
}

func TestParseTokens_doesNotAutoAppendForLKS32(t *testing.T) {
	toks, err := engine.ParseTokens("mi4", "sld=20.0")
	test.ExpectSuccess(t, err)
	assert.Len(t, toks, 1)
}

func TestPatchFirmware_unknownModel(t *testing.T) {
	_, _, err := engine.PatchFirmware("nonesuch", []byte{0}, []string{"chk"}, false)
	test.ExpectFailure(t, err)
}

func TestPatchFirmware_cliModeAccumulatesErrorsAndStillWrites(t *testing.T) {
	data := make([]byte, 64)
	out, _, err := engine.PatchFirmware("mi4", data, []string{"sls=25.5", "sld=20.0"}, false)
	// neither signature exists in an empty buffer, so both patches fail,
	// but CLI mode must still return a non-nil image.
	test.ExpectFailure(t, err)
	assert.NotNil(t, out)
	assert.Equal(t, len(data), len(out))
}

func TestPatchFirmware_webModeAbortsOnFirstError(t *testing.T) {
	data := make([]byte, 64)
	out, _, err := engine.PatchFirmware("mi4", data, []string{"sls=25.5"}, true)
	test.ExpectFailure(t, err)
	assert.Nil(t, out)
}
