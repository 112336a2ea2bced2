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

import "fmt"

// Record is one byte-level edit performed by a patch. It is advisory only —
// the authoritative output is the mutated buffer — but every capability
// method returns the records it produced so callers can audit a session
// without diffing buffers.
type Record struct {
	Name   string
	Offset int
	Pre    []byte
	Post   []byte
}

// String renders a Record the way a patch log line reads: name, offset, and
// the before/after bytes in hex.
func (r Record) String() string {
	return fmt.Sprintf("%s @0x%x: %x -> %x", r.Name, r.Offset, r.Pre, r.Post)
}

// Records is an ordered sequence of edits, the engine's audit trail for a
// single patch session.
type Records []Record

// String concatenates every record's own String, one per line.
func (rs Records) String() string {
	s := ""
	for i, r := range rs {
		if i > 0 {
			s += "\n"
		}
		s += r.String()
	}
	return s
}

// Write applies a single edit to data in place, overwriting len(post) bytes
// at offset, and returns the Record describing it. It is the one place that both mutates data and produces an
// audit entry, so every capability method funnels through it.
func Write(data []byte, name string, offset int, post []byte) Record {
	pre := make([]byte, len(post))
	copy(pre, data[offset:offset+len(post)])
	copy(data[offset:offset+len(post)], post)
	return Record{Name: name, Offset: offset, Pre: pre, Post: post}
}
