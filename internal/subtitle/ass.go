package subtitle

import (
	"fmt"
	"strings"

	"subtrans/internal/domain"
)

// ParseASS implements spec §4.4: every line beginning with
// "dialogue:" (case-insensitive) is split into 10 fields; fields 2/3
// are Start/End, field 10 is text with override-tag stripping and
// \N/\n converted to line breaks.
func ParseASS(text string) []domain.Entry {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	entries := make([]domain.Entry, 0)

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToLower(trimmed), "dialogue:") {
			continue
		}
		body := trimmed[strings.Index(trimmed, ":")+1:]
		fields := strings.SplitN(body, ",", 10)
		if len(fields) != 10 {
			continue // malformed row — skipped, not fatal
		}

		start, ok1 := parseASSClock(strings.TrimSpace(fields[1]))
		end, ok2 := parseASSClock(strings.TrimSpace(fields[2]))
		if !ok1 || !ok2 {
			continue
		}

		rawText := stripASSOverrideTags(fields[9])
		rawText = strings.ReplaceAll(rawText, `\N`, "\n")
		rawText = strings.ReplaceAll(rawText, `\n`, "\n")

		entries = append(entries, domain.Entry{
			Index:   len(entries) + 1,
			StartMs: start,
			EndMs:   end,
			Text:    rawText,
			Style:   strings.TrimSpace(fields[3]),
		})
	}
	return entries
}

// stripASSOverrideTags removes `{...}` override blocks from ASS text.
func stripASSOverrideTags(s string) string {
	var b strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteByte(s[i])
			}
		}
	}
	return b.String()
}

// parseASSClock parses ASS's H:MM:SS.cc (centisecond) timestamp into
// milliseconds.
func parseASSClock(s string) (int64, bool) {
	var h, m, sec, cs int
	n, err := fmt.Sscanf(s, "%d:%d:%d.%d", &h, &m, &sec, &cs)
	if err != nil || n != 4 {
		return 0, false
	}
	return int64(h)*3_600_000 + int64(m)*60_000 + int64(sec)*1000 + int64(cs)*10, true
}

const defaultASSHeader = "[Script Info]\nScriptType: v4.00+\n\n" +
	"[V4+ Styles]\n" +
	"Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n" +
	"Style: Default,Arial,20,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,2,0,2,10,10,10,1\n\n" +
	"[Events]\n" +
	"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n"

// GenerateASS implements spec §4.4's Generation rule for ASS/SSA: a
// minimal script header with a default "Default" style, one Dialogue
// line per entry.
func GenerateASS(entries []domain.Entry) string {
	var b strings.Builder
	b.WriteString(defaultASSHeader)
	for _, e := range entries {
		style := e.Style
		if style == "" {
			style = "Default"
		}
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,%s,,0000,0000,0000,,%s\n",
			formatASSClock(e.StartMs), formatASSClock(e.EndMs), style, strings.ReplaceAll(e.Text, "\n", `\N`))
	}
	return b.String()
}

func formatASSClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	cs := ms / 10
	return fmt.Sprintf("%d:%02d:%02d.%02d", cs/360000, (cs/6000)%60, (cs/100)%60, cs%100)
}

// ToPlainEntries bridges an ASS/SSA parse into plain entries with
// Style cleared — the shape the translation stage works with,
// regardless of which format the subtitle originated in (spec §4.4
// "ASS bridging").
func ToPlainEntries(entries []domain.Entry) []domain.Entry {
	out := make([]domain.Entry, len(entries))
	for i, e := range entries {
		out[i] = e
		out[i].Style = ""
	}
	return out
}
