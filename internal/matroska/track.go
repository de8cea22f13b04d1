package matroska

import (
	"fmt"

	"subtrans/internal/domain"
	"subtrans/internal/ebml"
)

// parseTrackEntry decodes one TrackEntry element body (already
// positioned right after its header) into a domain.Track. It returns
// ok=false for non-text-subtitle tracks, which the caller filters out
// of the track table (spec §4.3 step 2, §3).
func parseTrackEntry(r *ebml.Reader, size int64) (domain.Track, bool, error) {
	end := r.Source().Position() + size

	var (
		number       int
		trackType    uint64
		codecID      string
		codecPrivate []byte
		language     string
		name         string
		flagDefault  = true // EBML default per Matroska spec
		flagForced   bool
		defaultDur   uint64
	)

	for r.Source().Position() < end {
		hdr, err := r.ReadNextElementHeader()
		if err != nil {
			return domain.Track{}, false, err
		}
		if hdr.Unknown {
			return domain.Track{}, false, fmt.Errorf("%w: TrackEntry child has unknown size", domain.ErrMalformed)
		}

		switch hdr.ID {
		case ebml.IDTrackNumber:
			v, err := r.ReadUint(int(hdr.Size))
			if err != nil {
				return domain.Track{}, false, err
			}
			number = int(v)
		case ebml.IDTrackType:
			v, err := r.ReadUint(int(hdr.Size))
			if err != nil {
				return domain.Track{}, false, err
			}
			trackType = v
		case ebml.IDCodecID:
			b, err := r.ReadBytes(int(hdr.Size))
			if err != nil {
				return domain.Track{}, false, err
			}
			codecID = string(b)
		case ebml.IDCodecPrivate:
			b, err := r.ReadBytes(int(hdr.Size))
			if err != nil {
				return domain.Track{}, false, err
			}
			codecPrivate = b
		case ebml.IDTrackLanguageBCP47:
			b, err := r.ReadBytes(int(hdr.Size))
			if err != nil {
				return domain.Track{}, false, err
			}
			language = string(b)
		case ebml.IDTrackLanguage:
			b, err := r.ReadBytes(int(hdr.Size))
			if err != nil {
				return domain.Track{}, false, err
			}
			if language == "" {
				language = string(b)
			}
		case ebml.IDTrackName:
			b, err := r.ReadBytes(int(hdr.Size))
			if err != nil {
				return domain.Track{}, false, err
			}
			name = string(b)
		case ebml.IDFlagDefault:
			v, err := r.ReadUint(int(hdr.Size))
			if err != nil {
				return domain.Track{}, false, err
			}
			flagDefault = v != 0
		case ebml.IDFlagForced:
			v, err := r.ReadUint(int(hdr.Size))
			if err != nil {
				return domain.Track{}, false, err
			}
			flagForced = v != 0
		case ebml.IDDefaultDuration:
			v, err := r.ReadUint(int(hdr.Size))
			if err != nil {
				return domain.Track{}, false, err
			}
			defaultDur = v
		default:
			if err := r.Skip(int64(hdr.Size)); err != nil {
				return domain.Track{}, false, err
			}
		}
	}

	if trackType != uint64(ebml.TrackTypeSubtitle) {
		return domain.Track{}, false, nil
	}
	format, ok := domain.CodecIDToFormat(codecID)
	if !ok {
		// Unsupported codec (including image-based subtitle codecs
		// like PGS/VobSub) — filtered out during track selection.
		return domain.Track{}, false, nil
	}

	return domain.Track{
		Number:            number,
		CodecID:           codecID,
		Format:            format,
		CodecPrivate:      codecPrivate,
		Language:          language,
		Name:              name,
		Default:           flagDefault,
		Forced:            flagForced,
		DefaultDurationNs: defaultDur,
	}, true, nil
}
