package bytesource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"subtrans/internal/domain"
)

// httpSource implements ports.ByteSource over a remote video by range
// request, for the "possibly-remote video container" case of spec §1.
// Each refill coalesces into one Range-request fetch of at least
// minCoalesceSize bytes (spec §4.1).
type httpSource struct {
	ctx    context.Context
	client *http.Client
	url    string
	size   int64
	logger *slog.Logger

	pos int64

	buf     []byte
	bufBase int64
	bufLen  int
}

// OpenHTTP probes uri with a HEAD request (falling back to a ranged
// GET if HEAD is rejected) to learn the content length, then returns a
// ByteSource that serves Range requests on demand.
func OpenHTTP(ctx context.Context, client *http.Client, uri string, logger *slog.Logger) (*httpSource, error) {
	size, err := probeSize(ctx, client, uri)
	if err != nil {
		return nil, err
	}
	return &httpSource{
		ctx:    ctx,
		client: client,
		url:    uri,
		size:   size,
		logger: logger,
		buf:    make([]byte, minCoalesceSize),
	}, nil
}

func probeSize(ctx context.Context, client *http.Client, uri string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, uri, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK && resp.ContentLength > 0 {
		return resp.ContentLength, nil
	}

	// Some hosts reject HEAD; fall back to a single-byte ranged GET and
	// read the total size back out of Content-Range.
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err = client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusPartialContent {
		return 0, fmt.Errorf("%w: %s did not report a content length", domain.ErrUnsupported, uri)
	}
	size, ok := parseContentRangeSize(resp.Header.Get("Content-Range"))
	if !ok {
		return 0, fmt.Errorf("%w: %s returned an unparseable Content-Range", domain.ErrUnsupported, uri)
	}
	return size, nil
}

func (s *httpSource) Size() int64     { return s.size }
func (s *httpSource) Position() int64 { return s.pos }
func (s *httpSource) Seekable() bool  { return true }

func (s *httpSource) Seek(offset int64) error {
	if offset < 0 || offset > s.size {
		return fmt.Errorf("%w: seek offset %d out of range [0,%d]", domain.ErrOutOfRange, offset, s.size)
	}
	s.pos = offset
	return nil
}

func (s *httpSource) Close() error { return nil }

func (s *httpSource) ReadExact(buf []byte) error {
	for len(buf) > 0 {
		if s.pos < s.bufBase || s.pos >= s.bufBase+int64(s.bufLen) {
			if err := s.refill(); err != nil {
				return err
			}
		}
		avail := s.bufLen - int(s.pos-s.bufBase)
		n := len(buf)
		if n > avail {
			n = avail
		}
		start := int(s.pos - s.bufBase)
		copy(buf[:n], s.buf[start:start+n])
		buf = buf[n:]
		s.pos += int64(n)
	}
	return nil
}

// refill issues one Range request covering at least minCoalesceSize
// bytes starting at the current position.
func (s *httpSource) refill() error {
	if s.pos >= s.size {
		return fmt.Errorf("%w: read past end of stream at offset %d", domain.ErrShortRead, s.pos)
	}
	end := s.pos + int64(len(s.buf)) - 1
	if end >= s.size {
		end = s.size - 1
	}

	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", s.pos, end))

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: range fetch returned status %d", domain.ErrShortRead, resp.StatusCode)
	}

	want := int(end - s.pos + 1)
	n, err := io.ReadFull(resp.Body, s.buf[:want])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: zero-byte range fetch at offset %d", domain.ErrShortRead, s.pos)
	}
	if s.logger != nil {
		s.logger.Debug("bytesource http refill",
			slog.Int64("offset", s.pos),
			slog.Int("bytes", n),
		)
	}

	s.bufBase = s.pos
	s.bufLen = n
	return nil
}

// parseContentRangeSize is used by callers that only have a 206
// response (e.g. a server refusing HEAD) to recover the total size.
func parseContentRangeSize(header string) (int64, bool) {
	var start, end, total int64
	n, err := fmt.Sscanf(header, "bytes %d-%d/%d", &start, &end, &total)
	if err != nil || n != 3 {
		return 0, false
	}
	return total, true
}
