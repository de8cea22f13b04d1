package domain

import "errors"

// Sentinel errors shared across packages. Concrete packages wrap these
// with fmt.Errorf("%w: ...") rather than defining their own hierarchy,
// so callers can classify failures with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnsupported  = errors.New("unsupported operation")
	ErrMalformed    = errors.New("malformed container")
	ErrShortRead    = errors.New("short read")
	ErrOutOfRange   = errors.New("index out of range")
	ErrCancelled    = errors.New("cancelled")
)
