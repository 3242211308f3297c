package checksum

import (
	"hash"
	"hash/adler32"
	"io"
)

// Adler32 is the Fletcher-style checksum (mod 65521, initial state 1)
// of the zlib format. The zlib CompressionStream variant does not use
// it (its zlib library checks Adler-32 itself), and it is not part of
// the ZIP wire format proper; it is exposed for parity with quazip's
// QuaChecksum32 hierarchy, which treats CRC-32 and Adler-32 as
// interchangeable implementations of the same interface.
type Adler32 struct {
	h        hash.Hash32
	override bool
	value    uint32
}

// NewAdler32 returns a Checksum seeded to Adler-32's initial state (1).
func NewAdler32() Checksum {
	return &Adler32{h: adler32.New()}
}

func (c *Adler32) Reset() {
	c.h = adler32.New()
	c.override = false
}

func (c *Adler32) Update(p []byte) {
	c.h.Write(p)
	c.override = false
}

func (c *Adler32) UpdateFrom(r io.Reader, n int64) error {
	return updateFrom(c, r, n)
}

func (c *Adler32) Value() uint32 {
	if c.override {
		return c.value
	}
	return c.h.Sum32()
}

func (c *Adler32) SetValue(v uint32) {
	c.override = true
	c.value = v
}
