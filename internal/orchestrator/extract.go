package orchestrator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"subtrans/internal/domain"
	"subtrans/internal/matroska"
	"subtrans/internal/subtitle"
)

// extract implements spec §4.7 Extract: invoke the internal Matroska
// extractor for MKV sources, the host collaborator for other embedded
// containers, or read an external subtitle file directly.
func (o *Orchestrator) extract(ctx context.Context, req JobRequest, sel domain.Selection) (string, domain.Format, error) {
	if sel.ExternalPath != "" {
		raw, err := o.readExternalFile(ctx, sel.ExternalPath)
		if err != nil {
			return "", domain.FormatUnknown, err
		}
		text := subtitle.DecodeLegacyText(raw)
		return text, subtitle.Detect(text), nil
	}

	if isMatroska(req.SourceURI) {
		src, err := o.openSource(ctx, req.SourceURI)
		if err != nil {
			return "", domain.FormatUnknown, err
		}
		defer src.Close()

		ext, err := matroska.Open(src)
		if err != nil {
			return "", domain.FormatUnknown, err
		}
		text, track, err := ext.ExtractText(sel.TrackIndex)
		if err != nil {
			return "", domain.FormatUnknown, err
		}
		return text, track.Format, nil
	}

	if o.host == nil {
		return "", domain.FormatUnknown, fmt.Errorf("%w: no host collaborator configured for non-Matroska extraction", domain.ErrUnsupported)
	}
	raw, err := o.host.ExtractSubtitleStream(ctx, req.SourceURI, sel.TrackIndex)
	if err != nil {
		return "", domain.FormatUnknown, err
	}
	text := subtitle.DecodeLegacyText(raw)
	return text, subtitle.Detect(text), nil
}

func (o *Orchestrator) readExternalFile(ctx context.Context, path string) ([]byte, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		resp, err := o.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: fetching external subtitle: status %d", domain.ErrNotFound, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(path)
}

// externalLanguageFromName reads the "<stem>.<lang>.<ext>" convention
// (e.g. "movie.fr.srt") off an external subtitle's file name. It
// returns "" when the middle segment doesn't parse as a language tag.
func externalLanguageFromName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.Split(base, ".")
	if len(parts) < 2 {
		return ""
	}
	candidate := parts[len(parts)-1]
	if tag, err := language.Parse(candidate); err == nil && tag != language.Und {
		return candidate
	}
	return ""
}
