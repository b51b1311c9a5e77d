// Package dns implements RFC 1035 DNS message parsing and serialization:
// zero-copy views over inbound datagrams and a name-compressing builder for
// outbound ones.
package dns

import "fmt"

const growthFactor = 1.5

// Buffer is a growable, append-only byte buffer used to build outbound DNS
// messages. It is capped at an explicit maximum length (512 for UDP
// responses, 65533 for upstream queries) and grows geometrically up to that
// cap. The read cursor is independent of the write length so the same type
// can also front a receive path.
type Buffer struct {
	data       []byte
	len        int
	readCursor int
	maxLen     int
}

// NewBuffer returns an empty buffer with no maximum length.
func NewBuffer() *Buffer {
	return &Buffer{maxLen: -1}
}

// WithMaxLen caps the buffer at n bytes. A write that would exceed the cap
// never grows past it; callers must check RemainingMut before writing.
func (b *Buffer) WithMaxLen(n int) *Buffer {
	b.maxLen = n
	return b
}

// Reset empties the buffer for reuse without releasing its backing array.
func (b *Buffer) Reset() {
	b.len = 0
	b.readCursor = 0
}

// Len returns the number of committed bytes.
func (b *Buffer) Len() int { return b.len }

// Bytes returns the committed portion of the buffer.
func (b *Buffer) Bytes() []byte { return b.data[:b.len] }

// SetLen truncates (or, if within capacity, extends with zeroed bytes) the
// committed length. Used to roll back a partially written record when space
// runs out.
func (b *Buffer) SetLen(n int) {
	if n > cap(b.data) {
		n = cap(b.data)
	}
	if n > b.len {
		for i := b.len; i < n; i++ {
			b.data[i] = 0
		}
	}
	b.len = n
}

// RemainingMut reports how many more bytes may be committed before the
// maximum length is reached. A negative maxLen means unbounded.
func (b *Buffer) RemainingMut() int {
	if b.maxLen < 0 {
		return 1<<31 - 1
	}
	return b.maxLen - b.len
}

// ChunkMut returns an uninitialized window of at least n writable bytes,
// growing the backing array if necessary. The caller writes into the
// returned slice then calls AdvanceMut to commit the bytes it used.
func (b *Buffer) ChunkMut(n int) []byte {
	b.grow(n)
	return b.data[b.len:cap(b.data)]
}

// AdvanceMut commits n bytes previously written into the slice returned by
// ChunkMut.
func (b *Buffer) AdvanceMut(n int) {
	b.len += n
}

// Put appends p to the buffer, growing as needed.
func (b *Buffer) Put(p []byte) {
	chunk := b.ChunkMut(len(p))
	copy(chunk, p)
	b.AdvanceMut(len(p))
}

// PutByte appends a single byte.
func (b *Buffer) PutByte(c byte) {
	chunk := b.ChunkMut(1)
	chunk[0] = c
	b.AdvanceMut(1)
}

// PutUint16 appends a big-endian uint16.
func (b *Buffer) PutUint16(v uint16) {
	b.Put([]byte{byte(v >> 8), byte(v)})
}

// PutUint32 appends a big-endian uint32.
func (b *Buffer) PutUint32(v uint32) {
	b.Put([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

func (b *Buffer) grow(n int) {
	needed := b.len + n
	if b.maxLen >= 0 && needed > b.maxLen {
		needed = b.maxLen
	}
	if cap(b.data) >= needed {
		return
	}
	newCap := cap(b.data)
	if newCap == 0 {
		newCap = 64
	}
	for newCap < needed {
		newCap = int(float64(newCap) * growthFactor)
	}
	if b.maxLen >= 0 && newCap > b.maxLen {
		newCap = b.maxLen
	}
	grown := make([]byte, newCap)
	copy(grown, b.data[:b.len])
	b.data = grown
}

// Format implements fmt.Formatter so buffers print as a hex dump under %x.
func (b *Buffer) Format(f fmt.State, verb rune) {
	switch verb {
	case 'x', 'X':
		for _, c := range b.Bytes() {
			fmt.Fprintf(f, "%02x", c)
		}
	default:
		fmt.Fprintf(f, "%v", b.Bytes())
	}
}
