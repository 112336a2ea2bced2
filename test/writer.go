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

package test

import "strings"

// Writer is an io.Writer that accumulates everything written to it, for
// comparison against an expected string.
type Writer struct {
	s strings.Builder
}

// Write implements the io.Writer interface.
func (w *Writer) Write(p []byte) (int, error) {
	return w.s.Write(p)
}

// String returns everything written so far.
func (w *Writer) String() string {
	return w.s.String()
}

// Compare returns true if s equals everything written so far.
func (w *Writer) Compare(s string) bool {
	return w.s.String() == s
}

// Clear resets the writer to empty.
func (w *Writer) Clear() {
	w.s.Reset()
}
