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

import "fmt"

// RingWriter is an io.Writer with a fixed capacity. Once full, writes push
// out the oldest bytes rather than growing the buffer, keeping only the most
// recent N bytes written.
type RingWriter struct {
	buf   []byte
	limit int
}

// NewRingWriter creates a RingWriter with the given byte capacity.
func NewRingWriter(limit int) (*RingWriter, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("test: ring writer limit must be greater than zero")
	}
	return &RingWriter{limit: limit}, nil
}

// Write implements the io.Writer interface.
func (r *RingWriter) Write(p []byte) (int, error) {
	r.buf = append(r.buf, p...)
	if len(r.buf) > r.limit {
		r.buf = r.buf[len(r.buf)-r.limit:]
	}
	return len(p), nil
}

// String returns the most recent bytes written, up to the writer's capacity.
func (r *RingWriter) String() string {
	return string(r.buf)
}

// Reset empties the writer.
func (r *RingWriter) Reset() {
	r.buf = r.buf[:0]
}

// CappedWriter is an io.Writer with a fixed capacity. Once full, further
// writes are silently discarded rather than displacing earlier bytes.
type CappedWriter struct {
	buf   []byte
	limit int
}

// NewCappedWriter creates a CappedWriter with the given byte capacity.
func NewCappedWriter(limit int) (*CappedWriter, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("test: capped writer limit must be greater than zero")
	}
	return &CappedWriter{limit: limit}, nil
}

// Write implements the io.Writer interface. Bytes beyond the writer's
// capacity are dropped without error.
func (c *CappedWriter) Write(p []byte) (int, error) {
	room := c.limit - len(c.buf)
	if room <= 0 {
		return len(p), nil
	}
	if room > len(p) {
		room = len(p)
	}
	c.buf = append(c.buf, p[:room]...)
	return len(p), nil
}

// String returns everything written so far, up to the writer's capacity.
func (c *CappedWriter) String() string {
	return string(c.buf)
}

// Reset empties the writer.
func (c *CappedWriter) Reset() {
	c.buf = c.buf[:0]
}
