// Package subtitle implements the format-agnostic subtitle codec of
// spec §4.4: SRT/ASS-SSA/WebVTT parsing and generation, format
// auto-detection, and the ASS-to-plaintext bridging the translation
// stage relies on.
package subtitle

import (
	"strings"

	"subtrans/internal/domain"
)

// Detect implements spec §4.4's format-detection rule when the caller
// hasn't supplied one: a WEBVTT header line selects VTT; the presence
// of an ASS/SSA script section or Dialogue line selects ASS; anything
// else is assumed to be SRT.
func Detect(text string) domain.Format {
	trimmed := strings.TrimLeft(text, "﻿ \t\r\n")
	if strings.HasPrefix(trimmed, "WEBVTT") {
		return domain.FormatVTT
	}
	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "[script info]") || strings.Contains(lower, "\ndialogue:") || strings.HasPrefix(lower, "dialogue:") {
		return domain.FormatASS
	}
	return domain.FormatSRT
}
