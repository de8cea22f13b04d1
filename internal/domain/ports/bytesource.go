package ports

// ByteSource is the Bounded Byte Source contract (spec §4.1): a
// random-access-capable reader over a local or network URI, with
// buffered forward reads and seekable jumps.
type ByteSource interface {
	// ReadExact fills buf completely or returns a short-read error
	// wrapping domain.ErrShortRead.
	ReadExact(buf []byte) error
	// Seek repositions to an absolute offset. A non-seekable source
	// returns domain.ErrUnsupported so callers fall back to a linear
	// scan instead of treating it as fatal.
	Seek(offset int64) error
	// Position returns the current absolute read offset.
	Position() int64
	// Size returns the total byte length, or -1 if unknown.
	Size() int64
	// Seekable reports whether Seek is expected to succeed.
	Seekable() bool
	Close() error
}
