package subtitle

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodeLegacyText returns b decoded as UTF-8 if it already is valid
// UTF-8, otherwise falls back to Windows-1252 — the overwhelmingly
// common legacy encoding for SRT files shipped without a BOM. This
// mirrors the rutracker provider's Windows-1251 fallback for a
// different regional default (spec §4.4 is silent on source encoding,
// so this follows the pack's established pattern for legacy-text
// fallback decoding).
func DecodeLegacyText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(decoded)
}
