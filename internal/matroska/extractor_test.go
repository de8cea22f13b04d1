package matroska

import (
	"strings"
	"testing"

	"subtrans/internal/domain"
)

// memSource is a tiny in-memory ports.ByteSource test double, mirroring
// the ebml package's own unexported memSource (package-private there,
// so the matroska package needs its own copy).
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

// --- EBML byte-builder helpers -------------------------------------------
//
// These build minimal, valid-enough Matroska byte streams for the
// extractor's own tests. Sizes are always encoded as fixed-width VINTs
// wide enough for the element, which keeps the builder simple (real
// encoders favor minimal width, but the reader only cares that the
// marker bit plus declared length matches the following bytes).

// vint encodes n as a VINT of the given byte width, with the length
// marker bit set in the first byte.
func vint(n uint64, width int) []byte {
	out := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		out[i] = byte(n)
		n >>= 8
	}
	out[0] |= 1 << uint(8-width)
	return out
}

// elem encodes one EBML element: a big-endian ID (however many bytes
// it naturally needs), a VINT size, then the body.
func elem(id uint32, body []byte) []byte {
	var idBytes []byte
	switch {
	case id <= 0xFF:
		idBytes = []byte{byte(id)}
	case id <= 0xFFFF:
		idBytes = []byte{byte(id >> 8), byte(id)}
	case id <= 0xFFFFFF:
		idBytes = []byte{byte(id >> 16), byte(id >> 8), byte(id)}
	default:
		idBytes = []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	}
	size := vint(uint64(len(body)), 4)
	out := append([]byte{}, idBytes...)
	out = append(out, size...)
	out = append(out, body...)
	return out
}

func uintElem(id uint32, v uint64, width int) []byte {
	body := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		body[i] = byte(v)
		v >>= 8
	}
	return elem(id, body)
}

func strElem(id uint32, s string) []byte {
	return elem(id, []byte(s))
}

// simpleBlock encodes one SimpleBlock body: VINT track number (1-byte
// width here, tracks in these tests are always <128), a 2-byte signed
// timestamp offset, a flags byte (lacing bits zero), then the payload.
func simpleBlock(track int, tsOffset int16, payload string) []byte {
	body := []byte{}
	body = append(body, vint(uint64(track), 1)...)
	body = append(body, byte(tsOffset>>8), byte(tsOffset))
	body = append(body, 0x00) // flags: no lacing, no keyframe-only bits needed
	body = append(body, []byte(payload)...)
	return elem(0xA3, body) // IDSimpleBlock
}

func cluster(timestamp uint64, blocks ...[]byte) []byte {
	body := uintElem(0xE7, timestamp, 2) // IDClusterTimestamp
	for _, b := range blocks {
		body = append(body, b...)
	}
	return elem(0x1F43B675, body) // IDCluster
}

func trackEntry(number int, trackType uint64, codecID string, codecPrivate []byte, language string) []byte {
	body := uintElem(0xD7, uint64(number), 1) // TrackNumber
	body = append(body, uintElem(0x83, trackType, 1)...) // TrackType
	body = append(body, strElem(0x86, codecID)...)       // CodecID
	if len(codecPrivate) > 0 {
		body = append(body, elem(0x63A2, codecPrivate)...) // CodecPrivate
	}
	if language != "" {
		body = append(body, strElem(0x22B59C, language)...) // TrackLanguage
	}
	return elem(0xAE, body) // TrackEntry
}

func tracksElem(entries ...[]byte) []byte {
	body := []byte{}
	for _, e := range entries {
		body = append(body, e...)
	}
	return elem(0x1654AE6B, body) // IDTracks
}

func segmentInfoElem(timecodeScale uint64) []byte {
	return elem(0x1549A966, uintElem(0x2AD7B1, timecodeScale, 3))
}

func cuePoint(track int, clusterOffset int64) []byte {
	trackPos := uintElem(0xF7, uint64(track), 1)               // IDCueTrack
	trackPos = append(trackPos, uintElem(0xF1, uint64(clusterOffset), 4)...) // IDCueClusterPosition
	body := uintElem(0xB3, 0, 1) // IDCueTime, unused by this core
	body = append(body, elem(0xB7, trackPos)...)
	return elem(0xBB, body) // IDCuePoint
}

func cuesElem(points ...[]byte) []byte {
	body := []byte{}
	for _, p := range points {
		body = append(body, p...)
	}
	return elem(0x1C53BB6B, body) // IDCues
}

// seekEntry encodes one SeekHead entry pointing at targetID, written at
// segment-relative byte offset pos. The position field always uses a
// fixed 4-byte width so the SeekHead's own size doesn't depend on the
// (not yet known) offset value while the fixture is being assembled.
func seekEntry(targetID uint32, pos int64) []byte {
	idBytes := []byte{byte(targetID >> 24), byte(targetID >> 16), byte(targetID >> 8), byte(targetID)}
	body := elem(0x53AB, idBytes)                      // IDSeekID
	body = append(body, uintElem(0x53AC, uint64(pos), 4)...) // IDSeekPos
	return elem(0x4DBB, body)                          // IDSeek
}

func seekHeadElem(entries ...[]byte) []byte {
	body := []byte{}
	for _, e := range entries {
		body = append(body, e...)
	}
	return elem(0x114D9B74, body) // IDSeekHead
}

// buildContainer assembles a full EBML-header + Segment(body) stream.
func buildContainer(segmentBody []byte) []byte {
	ebmlHeader := elem(0x1A45DFA3, []byte{}) // IDEBMLHeader, empty is fine; skipped
	segment := elem(0x18538067, segmentBody) // IDSegment
	out := append([]byte{}, ebmlHeader...)
	out = append(out, segment...)
	return out
}

func openFixture(t *testing.T, data []byte) *Extractor {
	t.Helper()
	ex, err := Open(&memSource{data: data})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return ex
}

func TestExtractTextLinearScanNoCues(t *testing.T) {
	track := trackEntry(1, 17, "S_TEXT/UTF8", nil, "eng")
	segBody := append([]byte{}, segmentInfoElem(1_000_000)...)
	segBody = append(segBody, tracksElem(track)...)
	segBody = append(segBody, cluster(0, simpleBlock(1, 0, "hello"))...)
	segBody = append(segBody, cluster(2000, simpleBlock(1, 0, "world"))...)
	data := buildContainer(segBody)

	ex := openFixture(t, data)
	tracks := ex.Tracks()
	if len(tracks) != 1 {
		t.Fatalf("len(tracks) = %d, want 1", len(tracks))
	}
	if tracks[0].Format != domain.FormatSRT {
		t.Fatalf("format = %v, want SRT", tracks[0].Format)
	}

	text, _, err := ex.ExtractText(0)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(text, "hello") || !strings.Contains(text, "world") {
		t.Fatalf("unexpected SRT text: %q", text)
	}
	if !strings.HasPrefix(text, "1\n00:00:00,000 --> 00:00:02,000\nhello") {
		t.Fatalf("unexpected first cue: %q", text)
	}
}

func TestExtractTextCueDrivenSeek(t *testing.T) {
	// Cues lives after the clusters it indexes (as in a real file), so
	// it's reached via a SeekHead entry rather than the inline prefix
	// scan — the scan stops as soon as it hits the first Cluster.
	track := trackEntry(1, 17, "S_TEXT/UTF8", nil, "eng")
	segInfo := segmentInfoElem(1_000_000)
	tracksBody := tracksElem(track)

	// A SeekHead's own encoded size doesn't depend on the pointer
	// value (fixed-width fields throughout), so building a placeholder
	// first gives the exact prefix length needed to compute real
	// cluster and Cues offsets.
	seekHeadPlaceholder := seekHeadElem(seekEntry(0x1C53BB6B, 0))
	prefixLen := len(segInfo) + len(seekHeadPlaceholder) + len(tracksBody)

	cl1 := cluster(0, simpleBlock(1, 0, "first"))
	cl1Offset := int64(prefixLen)
	cl2 := cluster(1000, simpleBlock(1, 0, "second"))
	cl2Offset := cl1Offset + int64(len(cl1))
	cuesOffset := cl2Offset + int64(len(cl2))

	cues := cuesElem(cuePoint(1, cl1Offset), cuePoint(1, cl2Offset))
	seekHead := seekHeadElem(seekEntry(0x1C53BB6B, cuesOffset))
	if len(seekHead) != len(seekHeadPlaceholder) {
		t.Fatalf("seekHead length changed: %d vs placeholder %d", len(seekHead), len(seekHeadPlaceholder))
	}

	segBody := append([]byte{}, segInfo...)
	segBody = append(segBody, seekHead...)
	segBody = append(segBody, tracksBody...)
	segBody = append(segBody, cl1...)
	segBody = append(segBody, cl2...)
	segBody = append(segBody, cues...)
	data := buildContainer(segBody)

	ex := openFixture(t, data)
	if len(ex.cueClustersByTrack[1]) != 2 {
		t.Fatalf("cueClustersByTrack[1] = %v, want 2 entries", ex.cueClustersByTrack[1])
	}

	text, _, err := ex.ExtractText(0)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(text, "first") || !strings.Contains(text, "second") {
		t.Fatalf("unexpected cue-driven SRT text: %q", text)
	}
}

func TestExtractSRTFromASSSource(t *testing.T) {
	codecPrivate := []byte("[Script Info]\nScriptType: v4.00+\n")
	track := trackEntry(1, 17, "S_TEXT/ASS", codecPrivate, "eng")
	segBody := append([]byte{}, segmentInfoElem(1_000_000)...)
	segBody = append(segBody, tracksElem(track)...)

	// MKV ASS payload: ReadOrder,Layer,Style,Name,MarginL,MarginR,MarginV,Effect,Text
	payload := "0,0,Default,,0000,0000,0000,,{\\i1}Hello\\Nworld{\\i0}"
	segBody = append(segBody, cluster(0, simpleBlock(1, 0, payload))...)
	data := buildContainer(segBody)

	ex := openFixture(t, data)
	tracks := ex.Tracks()
	if tracks[0].Format != domain.FormatASS {
		t.Fatalf("format = %v, want ASS", tracks[0].Format)
	}

	srt, _, err := ex.ExtractSRT(0)
	if err != nil {
		t.Fatalf("ExtractSRT: %v", err)
	}
	if strings.Contains(srt, "{") || strings.Contains(srt, `\i1`) {
		t.Fatalf("override tags not stripped: %q", srt)
	}
	if !strings.Contains(srt, "Hello\nworld") {
		t.Fatalf("\\N not converted to newline: %q", srt)
	}

	ass, _, err := ex.ExtractText(0)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(ass, "[Script Info]") {
		t.Fatalf("codec private header not preserved: %q", ass)
	}
	if !strings.Contains(ass, "Dialogue:") {
		t.Fatalf("no Dialogue line rendered: %q", ass)
	}
}
