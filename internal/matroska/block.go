package matroska

import (
	"fmt"

	"subtrans/internal/domain"
	"subtrans/internal/ebml"
)

// rawBlock is one (Simple)Block payload still in cluster-relative
// time units, before the timecode-scale conversion of spec §4.3
// step 7.
type rawBlock struct {
	trackNumber   int
	clusterTicks  uint64
	tsOffset      int16
	durationTicks uint64 // 0 if absent
	payload       []byte
}

// walkCluster reads one Cluster element body (already positioned
// right after its header) and appends every block belonging to
// targetTrack to out. Blocks for other tracks are peeked at the track
// field and skipped without reading their payload (spec §4.3
// invariants).
func walkCluster(r *ebml.Reader, clusterSize int64, clusterUnknown bool, targetTrack int, out *[]rawBlock) error {
	var clusterTicks uint64
	start := r.Source().Position()
	end := start + clusterSize // meaningless when clusterUnknown, checked per-iteration instead

	for {
		if !clusterUnknown && r.Source().Position() >= end {
			return nil
		}

		peeked, err := r.PeekElementHeader()
		if err != nil {
			return err
		}
		if clusterUnknown && ebml.IsTopLevelSegmentChild(peeked.ID) && peeked.ID != ebml.IDCluster {
			// Unknown-size Cluster terminates at the next top-level
			// Segment child that isn't itself a Cluster (spec §4.3
			// invariants: conservative bounding rule).
			return nil
		}

		hdr, err := r.ReadNextElementHeader()
		if err != nil {
			return err
		}

		switch hdr.ID {
		case ebml.IDClusterTimestamp:
			v, err := r.ReadUint(int(hdr.Size))
			if err != nil {
				return err
			}
			clusterTicks = v
		case ebml.IDSimpleBlock:
			blk, matched, err := readBlockBody(r, int64(hdr.Size), targetTrack)
			if err != nil {
				return err
			}
			if matched {
				blk.clusterTicks = clusterTicks
				*out = append(*out, blk)
			}
		case ebml.IDBlockGroup:
			blk, matched, err := parseBlockGroup(r, int64(hdr.Size), targetTrack)
			if err != nil {
				return err
			}
			if matched {
				blk.clusterTicks = clusterTicks
				*out = append(*out, blk)
			}
		default:
			if hdr.Unknown {
				return fmt.Errorf("%w: unexpected unknown-size element %#x inside Cluster", domain.ErrMalformed, hdr.ID)
			}
			if err := r.Skip(int64(hdr.Size)); err != nil {
				return err
			}
		}
	}
}

// parseBlockGroup reads a BlockGroup body, combining its Block child
// with an optional BlockDuration sibling.
func parseBlockGroup(r *ebml.Reader, size int64, targetTrack int) (rawBlock, bool, error) {
	end := r.Source().Position() + size
	var (
		blk     rawBlock
		matched bool
	)

	for r.Source().Position() < end {
		hdr, err := r.ReadNextElementHeader()
		if err != nil {
			return rawBlock{}, false, err
		}
		switch hdr.ID {
		case ebml.IDBlock:
			b, m, err := readBlockBody(r, int64(hdr.Size), targetTrack)
			if err != nil {
				return rawBlock{}, false, err
			}
			if m {
				blk, matched = b, true
			}
		case ebml.IDBlockDuration:
			v, err := r.ReadUint(int(hdr.Size))
			if err != nil {
				return rawBlock{}, false, err
			}
			if matched {
				blk.durationTicks = v
			}
		default:
			if err := r.Skip(int64(hdr.Size)); err != nil {
				return rawBlock{}, false, err
			}
		}
	}
	return blk, matched, nil
}

// readBlockBody decodes a (Simple)Block's track number, timestamp
// offset and flags byte, then either reads the frame payload (track
// matches targetTrack) or skips it (spec §4.3: "peek track number...
// without consuming the full block when the track differs").
//
// Laced blocks are rejected: subtitles are never laced (spec §4.3
// step 5), so a non-zero lacing field causes the block to be skipped
// rather than misread as payload.
func readBlockBody(r *ebml.Reader, size int64, targetTrack int) (rawBlock, bool, error) {
	track, _, trackLen, err := r.ReadVintSize()
	if err != nil {
		return rawBlock{}, false, err
	}
	tsOffset, err := r.ReadInt(2)
	if err != nil {
		return rawBlock{}, false, err
	}
	flagsByte, err := r.ReadUint(1)
	if err != nil {
		return rawBlock{}, false, err
	}
	headerLen := int64(trackLen) + 2 + 1
	remaining := size - headerLen

	lacing := (flagsByte >> 1) & 0x03
	if int(track) != targetTrack || lacing != 0 {
		if err := r.Skip(remaining); err != nil {
			return rawBlock{}, false, err
		}
		return rawBlock{}, false, nil
	}

	payload, err := r.ReadBytes(int(remaining))
	if err != nil {
		return rawBlock{}, false, err
	}

	return rawBlock{
		trackNumber: int(track),
		tsOffset:    int16(tsOffset),
		payload:     payload,
	}, true, nil
}
