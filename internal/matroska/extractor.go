// Package matroska implements the streaming Matroska/EBML subtitle
// extractor of spec §4.3: it locates one text subtitle track inside a
// possibly-remote container and reassembles it into a complete SRT or
// ASS/SSA document, reading only the track table, the Cues index, and
// one cluster's blocks at a time.
package matroska

import (
	"errors"
	"fmt"

	"subtrans/internal/domain"
	"subtrans/internal/domain/ports"
	"subtrans/internal/ebml"
)

const defaultTimecodeScale = 1_000_000 // ns; spec §4.3 step 2 default

// Extractor walks one Matroska container and serves subtitle
// extraction requests against its track table.
type Extractor struct {
	r                 *ebml.Reader
	segmentDataStart  int64
	segmentDataEnd    int64 // -1 when the Segment size is unknown
	timecodeScale     uint64
	tracks            []domain.Track // text subtitle tracks, discovery order
	seekHead          map[uint32]int64
	cueClustersByTrack map[int][]int64
}

// Open validates the EBML header, locates the Segment, and scans its
// children up to the first Cluster (or until SeekHead and Tracks have
// both been seen) per spec §4.3 steps 1-3.
func Open(src ports.ByteSource) (*Extractor, error) {
	r := ebml.NewReader(src)

	hdr, err := r.ReadNextElementHeader()
	if err != nil {
		return nil, err
	}
	if hdr.ID != ebml.IDEBMLHeader {
		return nil, fmt.Errorf("%w: expected EBML header, got element %#x", domain.ErrMalformed, hdr.ID)
	}
	if hdr.Unknown {
		return nil, fmt.Errorf("%w: EBML header has unknown size", domain.ErrMalformed)
	}
	if err := r.Skip(int64(hdr.Size)); err != nil {
		return nil, err
	}

	seg, err := r.ReadNextElementHeader()
	if err != nil {
		return nil, err
	}
	if seg.ID != ebml.IDSegment {
		return nil, fmt.Errorf("%w: expected Segment, got element %#x", domain.ErrMalformed, seg.ID)
	}

	e := &Extractor{
		r:                  r,
		segmentDataStart:   seg.DataOffset,
		timecodeScale:      defaultTimecodeScale,
		seekHead:           make(map[uint32]int64),
		cueClustersByTrack: make(map[int][]int64),
	}
	if seg.Unknown {
		e.segmentDataEnd = -1
	} else {
		e.segmentDataEnd = seg.DataOffset + int64(seg.Size)
	}

	if err := e.scanSegmentPrefix(); err != nil {
		return nil, err
	}
	if len(e.tracks) == 0 {
		if err := e.resolveTracksViaSeekHead(); err != nil {
			return nil, err
		}
	}
	e.resolveCuesViaSeekHead() // best-effort; absence just means linear scan later

	return e, nil
}

// scanSegmentPrefix implements spec §4.3 step 2: walk Segment
// children until the first Cluster, recording TimecodeScale, SeekHead
// and Tracks along the way.
func (e *Extractor) scanSegmentPrefix() error {
	tracksSeen, seekHeadSeen := false, false
	for {
		if e.segmentDataEnd >= 0 && e.r.Source().Position() >= e.segmentDataEnd {
			return nil
		}
		hdr, err := e.r.ReadNextElementHeader()
		if err != nil {
			return err
		}

		if hdr.ID == ebml.IDCluster {
			// Reached the first Cluster before seeing both SeekHead
			// and Tracks (spec §4.3 step 2's earlier-of condition).
			// collectBlocks always re-seeks to segmentDataStart before
			// walking clusters, so position here doesn't matter.
			return nil
		}

		switch hdr.ID {
		case ebml.IDSegmentInfo:
			if err := e.parseSegmentInfo(int64(hdr.Size)); err != nil {
				return err
			}
		case ebml.IDSeekHead:
			if err := e.parseSeekHead(int64(hdr.Size)); err != nil {
				return err
			}
			seekHeadSeen = true
		case ebml.IDTracks:
			if err := e.parseTracks(int64(hdr.Size)); err != nil {
				return err
			}
			tracksSeen = true
		case ebml.IDCues:
			clusters, err := parseCues(e.r, int64(hdr.Size))
			if err != nil {
				return err
			}
			mergeClusterMaps(e.cueClustersByTrack, clusters)
		default:
			if hdr.Unknown {
				return fmt.Errorf("%w: unexpected unknown-size Segment child %#x", domain.ErrMalformed, hdr.ID)
			}
			if err := e.r.Skip(int64(hdr.Size)); err != nil {
				return err
			}
		}

		if seekHeadSeen && tracksSeen {
			return nil
		}
	}
}

func (e *Extractor) parseSegmentInfo(size int64) error {
	end := e.r.Source().Position() + size
	for e.r.Source().Position() < end {
		hdr, err := e.r.ReadNextElementHeader()
		if err != nil {
			return err
		}
		if hdr.ID == ebml.IDTimecodeScale {
			v, err := e.r.ReadUint(int(hdr.Size))
			if err != nil {
				return err
			}
			e.timecodeScale = v
			continue
		}
		if err := e.r.Skip(int64(hdr.Size)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Extractor) parseSeekHead(size int64) error {
	end := e.r.Source().Position() + size
	for e.r.Source().Position() < end {
		hdr, err := e.r.ReadNextElementHeader()
		if err != nil {
			return err
		}
		if hdr.ID != ebml.IDSeek {
			if err := e.r.Skip(int64(hdr.Size)); err != nil {
				return err
			}
			continue
		}
		id, pos, err := parseSeekEntry(e.r, int64(hdr.Size))
		if err != nil {
			return err
		}
		if id != 0 {
			e.seekHead[id] = pos
		}
	}
	return nil
}

func parseSeekEntry(r *ebml.Reader, size int64) (id uint32, segmentRelativePos int64, err error) {
	end := r.Source().Position() + size
	for r.Source().Position() < end {
		hdr, err := r.ReadNextElementHeader()
		if err != nil {
			return 0, 0, err
		}
		switch hdr.ID {
		case ebml.IDSeekID:
			b, err := r.ReadBytes(int(hdr.Size))
			if err != nil {
				return 0, 0, err
			}
			var v uint32
			for _, c := range b {
				v = (v << 8) | uint32(c)
			}
			id = v
		case ebml.IDSeekPos:
			v, err := r.ReadUint(int(hdr.Size))
			if err != nil {
				return 0, 0, err
			}
			segmentRelativePos = int64(v)
		default:
			if err := r.Skip(int64(hdr.Size)); err != nil {
				return 0, 0, err
			}
		}
	}
	return id, segmentRelativePos, nil
}

func (e *Extractor) parseTracks(size int64) error {
	end := e.r.Source().Position() + size
	for e.r.Source().Position() < end {
		hdr, err := e.r.ReadNextElementHeader()
		if err != nil {
			return err
		}
		if hdr.ID != ebml.IDTrackEntry {
			if err := e.r.Skip(int64(hdr.Size)); err != nil {
				return err
			}
			continue
		}
		track, ok, err := parseTrackEntry(e.r, int64(hdr.Size))
		if err != nil {
			return err
		}
		if ok {
			e.tracks = append(e.tracks, track)
		}
	}
	return nil
}

// resolveTracksViaSeekHead implements spec §4.3 step 3: if Tracks
// wasn't encountered inline (e.g. it sits after the first Cluster),
// jump there using the SeekHead map.
func (e *Extractor) resolveTracksViaSeekHead() error {
	relPos, ok := e.seekHead[ebml.IDTracks]
	if !ok {
		return nil
	}
	if err := e.r.Source().Seek(e.segmentDataStart + relPos); err != nil {
		return err
	}
	hdr, err := e.r.ReadNextElementHeader()
	if err != nil {
		return err
	}
	if hdr.ID != ebml.IDTracks {
		return fmt.Errorf("%w: SeekHead Tracks entry points at element %#x", domain.ErrMalformed, hdr.ID)
	}
	return e.parseTracks(int64(hdr.Size))
}

// resolveCuesViaSeekHead jumps to the Cues element via SeekHead, when
// present, so cue-driven extraction (spec §4.3 step 5) doesn't require
// scanning the whole file first. Absence of a usable Cues entry is not
// an error — callers fall back to a linear scan (step 6).
func (e *Extractor) resolveCuesViaSeekHead() {
	if len(e.cueClustersByTrack) > 0 {
		return
	}
	relPos, ok := e.seekHead[ebml.IDCues]
	if !ok {
		return
	}
	if err := e.r.Source().Seek(e.segmentDataStart + relPos); err != nil {
		return
	}
	hdr, err := e.r.ReadNextElementHeader()
	if err != nil || hdr.ID != ebml.IDCues {
		return
	}
	clusters, err := parseCues(e.r, int64(hdr.Size))
	if err != nil {
		return
	}
	mergeClusterMaps(e.cueClustersByTrack, clusters)
}

func mergeClusterMaps(dst, src map[int][]int64) {
	for k, v := range src {
		dst[k] = append(dst[k], v...)
	}
}

// Tracks returns the text subtitle tracks found in this container, in
// discovery order (spec §4.3 step 4's selection domain).
func (e *Extractor) Tracks() []domain.Track {
	out := make([]domain.Track, len(e.tracks))
	copy(out, e.tracks)
	return out
}

// ExtractText reassembles trackIndex (zero-based among Tracks()) into
// a complete subtitle document: SRT text for SRT/WebVTT-coded tracks,
// or a full ASS/SSA file for ASS/SSA-coded tracks (spec §4.3 step 8).
func (e *Extractor) ExtractText(trackIndex int) (text string, track domain.Track, err error) {
	if trackIndex < 0 || trackIndex >= len(e.tracks) {
		return "", domain.Track{}, fmt.Errorf("%w: subtitle track index %d out of range [0,%d)", domain.ErrOutOfRange, trackIndex, len(e.tracks))
	}
	target := e.tracks[trackIndex]

	raw, err := e.collectBlocks(target.Number)
	if err != nil {
		return "", domain.Track{}, err
	}

	switch target.Format {
	case domain.FormatASS, domain.FormatSSA:
		return buildASSText(raw, e.timecodeScale, target.CodecPrivate), target, nil
	default:
		return buildSRTText(raw, e.timecodeScale), target, nil
	}
}

// ExtractSRT always returns SRT-shaped text for trackIndex, even when
// the source track is ASS/SSA-coded (spec §4.3 step 8's "SRT output
// ... for ASS source" bullet: override tags stripped, \N converted).
func (e *Extractor) ExtractSRT(trackIndex int) (text string, track domain.Track, err error) {
	if trackIndex < 0 || trackIndex >= len(e.tracks) {
		return "", domain.Track{}, fmt.Errorf("%w: subtitle track index %d out of range [0,%d)", domain.ErrOutOfRange, trackIndex, len(e.tracks))
	}
	target := e.tracks[trackIndex]

	raw, err := e.collectBlocks(target.Number)
	if err != nil {
		return "", domain.Track{}, err
	}

	switch target.Format {
	case domain.FormatASS, domain.FormatSSA:
		return buildSRTFromASSBlocks(raw, e.timecodeScale), target, nil
	default:
		return buildSRTText(raw, e.timecodeScale), target, nil
	}
}

// collectBlocks implements spec §4.3 steps 5-6: prefer cue-driven
// cluster extraction when the Cues index references this track;
// otherwise fall back to a full linear scan of every Cluster.
func (e *Extractor) collectBlocks(trackNumber int) ([]rawBlock, error) {
	var out []rawBlock

	if offsets, ok := e.cueClustersByTrack[trackNumber]; ok && len(offsets) > 0 {
		for _, rel := range offsets {
			if err := e.r.Source().Seek(e.segmentDataStart + rel); err != nil {
				return nil, err
			}
			hdr, err := e.r.ReadNextElementHeader()
			if err != nil {
				return nil, err
			}
			if hdr.ID != ebml.IDCluster {
				continue // stale/corrupt cue; skip rather than abort
			}
			if err := walkCluster(e.r, int64(hdr.Size), hdr.Unknown, trackNumber, &out); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	// Linear scan: walk every Segment child, descending into Clusters.
	if err := e.r.Source().Seek(e.segmentDataStart); err != nil {
		return nil, err
	}
	for {
		if e.segmentDataEnd >= 0 && e.r.Source().Position() >= e.segmentDataEnd {
			break
		}
		hdr, err := e.r.ReadNextElementHeader()
		if err != nil {
			if errors.Is(err, domain.ErrShortRead) {
				break
			}
			return nil, err
		}
		if hdr.ID == ebml.IDCluster {
			if err := walkCluster(e.r, int64(hdr.Size), hdr.Unknown, trackNumber, &out); err != nil {
				return nil, err
			}
			continue
		}
		if hdr.Unknown {
			return nil, fmt.Errorf("%w: unexpected unknown-size Segment child %#x", domain.ErrMalformed, hdr.ID)
		}
		if err := e.r.Skip(int64(hdr.Size)); err != nil {
			return nil, err
		}
	}
	return out, nil
}
