package orchestrator

import (
	"context"
	"fmt"

	"subtrans/internal/domain"
	"subtrans/internal/matroska"
	"subtrans/internal/subtitle"
)

// candidateTrack unifies an embedded subtitle track (MKV-native or
// host-reported) and an external subtitle file into one list the
// Selecting stage (spec §4.7) can reason about uniformly.
type candidateTrack struct {
	trackIndex   int // index into the "accepted text tracks" enumeration; -1 for external
	externalPath string
	language     string
}

// selectSource implements spec §4.7 Selecting: short-circuit if a
// target-language subtitle already exists, else pick a source track
// by configured language preference, falling back to English, then to
// whatever is first.
func (o *Orchestrator) selectSource(ctx context.Context, req JobRequest) (domain.Selection, error) {
	candidates, err := o.listCandidates(ctx, req)
	if err != nil {
		return domain.Selection{}, err
	}
	if len(candidates) == 0 {
		return domain.Selection{}, fmt.Errorf("%w: no subtitle track available", domain.ErrNotFound)
	}

	for _, c := range candidates {
		if subtitle.LanguagesMatch(c.language, req.TargetLanguage) {
			return domain.Selection{
				SourceURI:        req.SourceURI,
				TrackIndex:       c.trackIndex,
				ExternalPath:     c.externalPath,
				SourceLanguage:   c.language,
				TargetLanguage:   req.TargetLanguage,
				AlreadyAvailable: true,
			}, nil
		}
	}

	chosen, ok := pickByLanguage(candidates, req.PreferredSourceLanguage)
	if !ok {
		chosen, ok = pickByLanguage(candidates, "en")
	}
	if !ok {
		chosen = candidates[0]
	}

	return domain.Selection{
		SourceURI:      req.SourceURI,
		TrackIndex:     chosen.trackIndex,
		ExternalPath:   chosen.externalPath,
		SourceLanguage: chosen.language,
		TargetLanguage: req.TargetLanguage,
	}, nil
}

func pickByLanguage(candidates []candidateTrack, lang string) (candidateTrack, bool) {
	if lang == "" {
		return candidateTrack{}, false
	}
	for _, c := range candidates {
		if subtitle.LanguagesMatch(c.language, lang) {
			return c, true
		}
	}
	return candidateTrack{}, false
}

// listCandidates enumerates embedded tracks (via the internal
// extractor for MKV, via the host collaborator otherwise) plus any
// external subtitle file named in the request.
func (o *Orchestrator) listCandidates(ctx context.Context, req JobRequest) ([]candidateTrack, error) {
	var candidates []candidateTrack

	if isMatroska(req.SourceURI) {
		src, err := o.openSource(ctx, req.SourceURI)
		if err != nil {
			return nil, err
		}
		defer src.Close()

		ext, err := matroska.Open(src)
		if err != nil {
			return nil, err
		}
		for i, t := range ext.Tracks() {
			candidates = append(candidates, candidateTrack{trackIndex: i, language: t.Language})
		}
	} else if o.host != nil {
		streams, err := o.host.ListEmbeddedSubtitleStreams(ctx, req.SourceURI)
		if err != nil {
			return nil, err
		}
		for _, s := range streams {
			candidates = append(candidates, candidateTrack{trackIndex: s.Index, language: s.Language})
		}
	}

	if req.ExternalSubtitlePath != "" {
		candidates = append(candidates, candidateTrack{
			trackIndex:   -1,
			externalPath: req.ExternalSubtitlePath,
			language:     detectExternalLanguage(req.ExternalSubtitlePath),
		})
	}

	return candidates, nil
}

// detectExternalLanguage reads the common "<stem>.<lang>.<ext>"
// convention from an external subtitle file's name; "" if absent.
func detectExternalLanguage(path string) string {
	return externalLanguageFromName(path)
}
