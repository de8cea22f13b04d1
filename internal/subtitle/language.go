package subtitle

import (
	"strings"

	"golang.org/x/text/language"
)

// commonLanguageNames maps the handful of spelled-out language names
// that show up in track metadata and user configuration to an ISO
// 639-1 code language.Parse understands directly.
var commonLanguageNames = map[string]string{
	"english":    "en",
	"french":     "fr",
	"german":     "de",
	"spanish":    "es",
	"italian":    "it",
	"portuguese": "pt",
	"russian":    "ru",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"arabic":     "ar",
	"dutch":      "nl",
}

// ParseLanguage resolves s — an ISO 639-1 code, an ISO 639-2/3 code
// (Matroska tracks usually carry "eng", "fre", etc.), or a common
// English name — into a BCP 47 language.Tag.
func ParseLanguage(s string) (language.Tag, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return language.Und, false
	}
	if code, ok := commonLanguageNames[s]; ok {
		s = code
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// LanguagesMatch implements spec §4.7's "flexible matching across
// ISO 639-1/2 and common names": two language identifiers match if
// they resolve to the same base language, falling back to a
// case-insensitive literal comparison when either fails to parse.
func LanguagesMatch(a, b string) bool {
	ta, oka := ParseLanguage(a)
	tb, okb := ParseLanguage(b)
	if !oka || !okb {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	baseA, confA := ta.Base()
	baseB, confB := tb.Base()
	if confA == language.No || confB == language.No {
		return strings.EqualFold(a, b)
	}
	return baseA == baseB
}
