package matroska

import (
	"subtrans/internal/ebml"
)

// parseCues decodes the Cues element body into per-track lists of
// segment-relative cluster offsets, keyed by the track number each
// CuePoint references (spec §4.3 step 5). It tolerates malformed
// CuePoints by skipping them — a corrupt Cues index should fall the
// caller back to a linear scan, not abort extraction.
func parseCues(r *ebml.Reader, size int64) (map[int][]int64, error) {
	end := r.Source().Position() + size
	out := make(map[int][]int64)

	for r.Source().Position() < end {
		hdr, err := r.ReadNextElementHeader()
		if err != nil {
			return nil, err
		}
		if hdr.ID != ebml.IDCuePoint || hdr.Unknown {
			if err := r.Skip(int64(hdr.Size)); err != nil {
				return nil, err
			}
			continue
		}
		track, offset, ok, err := parseCuePoint(r, int64(hdr.Size))
		if err != nil {
			return nil, err
		}
		if ok {
			out[track] = append(out[track], offset)
		}
	}
	return out, nil
}

// parseCuePoint reads one CuePoint body, returning the track number
// and segment-relative cluster offset from its first
// CueTrackPositions child (a CuePoint may list several tracks; this
// core only needs the one it was asked about, so later positions for
// the same CuePoint are skipped once the first is captured).
func parseCuePoint(r *ebml.Reader, size int64) (track int, clusterOffset int64, ok bool, err error) {
	end := r.Source().Position() + size

	for r.Source().Position() < end {
		hdr, err := r.ReadNextElementHeader()
		if err != nil {
			return 0, 0, false, err
		}
		switch hdr.ID {
		case ebml.IDCueTrackPositions:
			t, off, innerErr := parseCueTrackPositions(r, int64(hdr.Size))
			if innerErr != nil {
				return 0, 0, false, innerErr
			}
			if !ok {
				track, clusterOffset, ok = t, off, true
			}
		default:
			if err := r.Skip(int64(hdr.Size)); err != nil {
				return 0, 0, false, err
			}
		}
	}
	return track, clusterOffset, ok, nil
}

func parseCueTrackPositions(r *ebml.Reader, size int64) (track int, clusterOffset int64, err error) {
	end := r.Source().Position() + size

	for r.Source().Position() < end {
		hdr, err := r.ReadNextElementHeader()
		if err != nil {
			return 0, 0, err
		}
		switch hdr.ID {
		case ebml.IDCueTrack:
			v, err := r.ReadUint(int(hdr.Size))
			if err != nil {
				return 0, 0, err
			}
			track = int(v)
		case ebml.IDCueClusterPosition:
			v, err := r.ReadUint(int(hdr.Size))
			if err != nil {
				return 0, 0, err
			}
			clusterOffset = int64(v)
		default:
			if err := r.Skip(int64(hdr.Size)); err != nil {
				return 0, 0, err
			}
		}
	}
	return track, clusterOffset, nil
}
