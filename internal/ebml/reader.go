package ebml

import (
	"fmt"

	"subtrans/internal/domain"
	"subtrans/internal/domain/ports"
)

// maxIDLength and maxSizeLength are the VINT length bounds from spec
// §3: "max 8 for data sizes, max 4 for element IDs".
const (
	maxIDLength   = 4
	maxSizeLength = 8
)

// Reader decodes VINT-encoded element IDs and sizes off a Bounded Byte
// Source (spec §4.2). It does not buffer independently — the
// ByteSource is already responsible for coalescing small reads, per
// spec §4.1 — so Reader just issues ReadExact calls of a few bytes at
// a time.
type Reader struct {
	src ports.ByteSource
}

// NewReader wraps a ByteSource with an EBML element cursor.
func NewReader(src ports.ByteSource) *Reader {
	return &Reader{src: src}
}

// Source returns the underlying ByteSource, for components (like the
// Matroska extractor) that need to read raw element payloads directly.
func (r *Reader) Source() ports.ByteSource { return r.src }

// ReadBytes reads and returns the next n bytes verbatim — an
// element's raw payload (binary, UTF-8, or fixed-width uint data).
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative read length %d", domain.ErrMalformed, n)
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if err := r.src.ReadExact(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadUint reads an n-byte big-endian EBML "Unsigned Integer" element
// body (Matroska encodes TrackNumber, TrackType, flags, durations etc.
// this way — distinct from the VINT shape used for IDs/sizes).
func (r *Reader) ReadUint(n int) (uint64, error) {
	if n > 8 {
		return 0, fmt.Errorf("%w: uint element length %d exceeds 8 bytes", domain.ErrMalformed, n)
	}
	b, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, c := range b {
		v = (v << 8) | uint64(c)
	}
	return v, nil
}

// ReadInt reads an n-byte big-endian two's-complement EBML "Signed
// Integer" element body (used for SimpleBlock's int16 timestamp
// offset).
func (r *Reader) ReadInt(n int) (int64, error) {
	u, err := r.ReadUint(n)
	if err != nil {
		return 0, err
	}
	if n == 0 || n > 8 {
		return int64(u), nil
	}
	signBit := uint64(1) << (uint(n)*8 - 1)
	if u&signBit != 0 {
		u -= signBit << 1
	}
	return int64(u), nil
}

// ReadElementID reads a VINT-encoded element ID, retaining the length
// marker bit as spec §4.2 requires.
func (r *Reader) ReadElementID() (id uint32, consumed int, err error) {
	v, n, err := r.readVint(maxIDLength, false)
	if err != nil {
		return 0, 0, err
	}
	return uint32(v), n, nil
}

// ReadVintSize reads a VINT-encoded element size, stripping the length
// marker. A size whose remaining data bits are all 1 is "unknown
// length" (spec §3, §4.2) and is reported via the unknown return.
func (r *Reader) ReadVintSize() (size uint64, unknown bool, consumed int, err error) {
	v, n, err := r.readVint(maxSizeLength, true)
	if err != nil {
		return 0, false, 0, err
	}
	if isAllOnes(v, n) {
		return 0, true, n, nil
	}
	return v, false, n, nil
}

// ElementHeader is a decoded (id, size) pair plus how many header
// bytes it took and the absolute file offset its data starts at.
type ElementHeader struct {
	ID         uint32
	Size       uint64
	Unknown    bool
	HeaderLen  int
	DataOffset int64
}

// PeekElementHeader reads the next element's header without
// consuming it — it reads the header then seeks back to the starting
// offset (spec §4.2). It requires a seekable source; non-seekable
// sources should call ReadElementID/ReadVintSize directly and track
// position themselves.
func (r *Reader) PeekElementHeader() (ElementHeader, error) {
	start := r.src.Position()
	hdr, err := r.ReadNextElementHeader()
	if err != nil {
		return ElementHeader{}, err
	}
	if seekErr := r.src.Seek(start); seekErr != nil {
		return ElementHeader{}, seekErr
	}
	return hdr, nil
}

// ReadNextElementHeader reads and consumes one element's (id, size)
// header, returning the absolute offset its data begins at.
func (r *Reader) ReadNextElementHeader() (ElementHeader, error) {
	start := r.src.Position()
	id, idLen, err := r.ReadElementID()
	if err != nil {
		return ElementHeader{}, err
	}
	size, unknown, sizeLen, err := r.ReadVintSize()
	if err != nil {
		return ElementHeader{}, err
	}
	return ElementHeader{
		ID:         id,
		Size:       size,
		Unknown:    unknown,
		HeaderLen:  idLen + sizeLen,
		DataOffset: start + int64(idLen+sizeLen),
	}, nil
}

// Skip advances n bytes via Seek when possible, draining through reads
// otherwise isn't needed here since ByteSource.Seek already falls back
// to repositioning a buffered reader (spec §4.1).
func (r *Reader) Skip(n int64) error {
	if n <= 0 {
		return nil
	}
	return r.src.Seek(r.src.Position() + n)
}

// readVint implements the shared VINT decode shape of spec §4.2: count
// leading zero bits in the first byte (bounded by maxLen), read that
// many additional bytes big-endian, and optionally strip the marker
// bit from the result.
func (r *Reader) readVint(maxLen int, stripMarker bool) (value uint64, consumed int, err error) {
	var first [1]byte
	if err := r.src.ReadExact(first[:]); err != nil {
		return 0, 0, err
	}
	b := first[0]
	if b == 0 {
		return 0, 0, fmt.Errorf("%w: leading zero byte in VINT", domain.ErrMalformed)
	}

	length := 1
	marker := byte(0x80)
	for marker != 0 && b&marker == 0 {
		length++
		marker >>= 1
	}
	if length > maxLen {
		return 0, 0, fmt.Errorf("%w: VINT length %d exceeds bound %d", domain.ErrMalformed, length, maxLen)
	}

	if stripMarker {
		value = uint64(b &^ marker)
	} else {
		value = uint64(b)
	}

	if length > 1 {
		rest := make([]byte, length-1)
		if err := r.src.ReadExact(rest); err != nil {
			return 0, 0, err
		}
		for _, rb := range rest {
			value = (value << 8) | uint64(rb)
		}
	}

	return value, length, nil
}

// isAllOnes reports whether the stripped data bits of an n-byte VINT
// size are all 1 — the "unknown length" sentinel of spec §3.
func isAllOnes(v uint64, n int) bool {
	dataBits := uint(n) * 7
	mask := uint64(1)<<dataBits - 1
	return v&mask == mask
}
