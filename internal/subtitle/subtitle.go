package subtitle

import "subtrans/internal/domain"

// Parse dispatches to the format-specific parser, auto-detecting the
// format first when format is domain.FormatUnknown (spec §4.4).
func Parse(text string, format domain.Format) ([]domain.Entry, domain.Format) {
	if format == domain.FormatUnknown {
		format = Detect(text)
	}
	switch format {
	case domain.FormatVTT:
		return ParseVTT(text), format
	case domain.FormatASS, domain.FormatSSA:
		return ToPlainEntries(ParseASS(text)), format
	default:
		return ParseSRT(text), domain.FormatSRT
	}
}

// Generate dispatches to the format-specific serializer (spec §4.4
// Generation).
func Generate(entries []domain.Entry, format domain.Format) string {
	switch format {
	case domain.FormatVTT:
		return GenerateVTT(entries)
	case domain.FormatASS, domain.FormatSSA:
		return GenerateASS(entries)
	default:
		return GenerateSRT(entries)
	}
}
