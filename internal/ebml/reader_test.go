package ebml

import (
	"errors"
	"testing"

	"subtrans/internal/domain"
)

// memSource is a tiny in-memory ports.ByteSource for unit tests; it
// does not exercise the coalescing behavior of the real bytesource
// package, only the VINT decode shape.
type memSource struct {
	data []byte
	pos  int64
}

func (m *memSource) ReadExact(buf []byte) error {
	if m.pos+int64(len(buf)) > int64(len(m.data)) {
		return domain.ErrShortRead
	}
	copy(buf, m.data[m.pos:m.pos+int64(len(buf))])
	m.pos += int64(len(buf))
	return nil
}
func (m *memSource) Seek(offset int64) error { m.pos = offset; return nil }
func (m *memSource) Position() int64         { return m.pos }
func (m *memSource) Size() int64             { return int64(len(m.data)) }
func (m *memSource) Seekable() bool          { return true }
func (m *memSource) Close() error            { return nil }

func TestReadElementID(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantID   uint32
		wantLen  int
	}{
		{"1-byte id (Block 0xA1)", []byte{0xA1}, 0xA1, 1},
		{"4-byte id (Segment 0x18538067)", []byte{0x18, 0x53, 0x80, 0x67}, 0x18538067, 4},
		{"1-byte id (TrackEntry 0xAE)", []byte{0xAE}, 0xAE, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(&memSource{data: tt.data})
			id, n, err := r.ReadElementID()
			if err != nil {
				t.Fatalf("ReadElementID: %v", err)
			}
			if id != tt.wantID {
				t.Errorf("id = %#x, want %#x", id, tt.wantID)
			}
			if n != tt.wantLen {
				t.Errorf("consumed = %d, want %d", n, tt.wantLen)
			}
		})
	}
}

func TestReadVintSizeKnown(t *testing.T) {
	// 1-byte VINT: 0x82 = 1000_0010 -> marker stripped -> 2.
	r := NewReader(&memSource{data: []byte{0x82}})
	size, unknown, n, err := r.ReadVintSize()
	if err != nil {
		t.Fatalf("ReadVintSize: %v", err)
	}
	if unknown {
		t.Fatal("expected known size")
	}
	if size != 2 || n != 1 {
		t.Errorf("size=%d n=%d, want size=2 n=1", size, n)
	}
}

func TestReadVintSizeUnknown(t *testing.T) {
	// 1-byte VINT all-ones data bits: 0xFF -> unknown length.
	r := NewReader(&memSource{data: []byte{0xFF}})
	_, unknown, _, err := r.ReadVintSize()
	if err != nil {
		t.Fatalf("ReadVintSize: %v", err)
	}
	if !unknown {
		t.Fatal("expected unknown size")
	}
}

func TestReadVintMultiByte(t *testing.T) {
	// 2-byte VINT: 0x40 0x7F -> marker bit in first byte, 14 data bits.
	// 0x40 = 0100_0000 (length 2, data bits after strip = 000_0000),
	// combined with 0x7F gives value 0x7F = 127.
	r := NewReader(&memSource{data: []byte{0x40, 0x7F}})
	size, unknown, n, err := r.ReadVintSize()
	if err != nil {
		t.Fatalf("ReadVintSize: %v", err)
	}
	if unknown {
		t.Fatal("did not expect unknown size")
	}
	if size != 127 || n != 2 {
		t.Errorf("size=%d n=%d, want size=127 n=2", size, n)
	}
}

func TestReadElementIDLeadingZeroByteIsMalformed(t *testing.T) {
	r := NewReader(&memSource{data: []byte{0x00, 0xAE}})
	_, _, err := r.ReadElementID()
	if !errors.Is(err, domain.ErrMalformed) {
		t.Fatalf("err = %v, want wrapping ErrMalformed", err)
	}
}

func TestReadElementIDLengthExceedsBound(t *testing.T) {
	// First byte 0x01 has 7 leading zero bits -> length 8, exceeds
	// the element-ID bound of 4.
	r := NewReader(&memSource{data: []byte{0x01, 0, 0, 0, 0, 0, 0, 0}})
	_, _, err := r.ReadElementID()
	if !errors.Is(err, domain.ErrMalformed) {
		t.Fatalf("err = %v, want wrapping ErrMalformed", err)
	}
}

func TestReadNextElementHeaderAndSkip(t *testing.T) {
	// TrackEntry (0xAE) with size 2, followed by 2 bytes of payload,
	// then a second element TrackNumber(0xD7) size 1 value 0x03.
	data := []byte{0xAE, 0x82, 0xAA, 0xBB, 0xD7, 0x81, 0x03}
	r := NewReader(&memSource{data: data})

	hdr, err := r.ReadNextElementHeader()
	if err != nil {
		t.Fatalf("ReadNextElementHeader: %v", err)
	}
	if hdr.ID != 0xAE || hdr.Size != 2 || hdr.Unknown {
		t.Fatalf("unexpected header: %+v", hdr)
	}
	if err := r.Skip(int64(hdr.Size)); err != nil {
		t.Fatalf("Skip: %v", err)
	}

	hdr2, err := r.ReadNextElementHeader()
	if err != nil {
		t.Fatalf("ReadNextElementHeader (2nd): %v", err)
	}
	if hdr2.ID != 0xD7 || hdr2.Size != 1 {
		t.Fatalf("unexpected second header: %+v", hdr2)
	}
}

func TestPeekElementHeaderDoesNotConsume(t *testing.T) {
	data := []byte{0xAE, 0x81, 0x00}
	r := NewReader(&memSource{data: data})

	peeked, err := r.PeekElementHeader()
	if err != nil {
		t.Fatalf("PeekElementHeader: %v", err)
	}
	consumed, err := r.ReadNextElementHeader()
	if err != nil {
		t.Fatalf("ReadNextElementHeader: %v", err)
	}
	if peeked != consumed {
		t.Errorf("peek %+v != consumed %+v", peeked, consumed)
	}
}
