package matroska

import (
	"fmt"
	"strconv"
	"strings"
)

// dialogueRow is one MKV-embedded ASS/SSA block decoded into its
// 9 comma-separated fields (spec §4.3 step 8:
// "ReadOrder,Layer,Style,Name,MarginL,MarginR,MarginV,Effect,Text").
// Start/End are filled in from the block's own timing, not the
// payload, since Matroska strips them from the embedded row.
type dialogueRow struct {
	readOrder int
	layer     int
	style     string
	name      string
	marginL   int
	marginR   int
	marginV   int
	effect    string
	text      string
	startMs   int64
	endMs     int64
}

// parseMKVASSPayload splits a block's payload into the 9-field MKV
// ASS layout. The text field may itself contain commas, so only the
// first 8 separators are significant.
func parseMKVASSPayload(payload []byte) (dialogueRow, error) {
	fields := strings.SplitN(string(payload), ",", 9)
	if len(fields) != 9 {
		return dialogueRow{}, fmt.Errorf("MKV ASS payload has %d fields, want 9", len(fields))
	}
	row := dialogueRow{
		style:  fields[2],
		name:   fields[3],
		effect: fields[7],
		text:   fields[8],
	}
	row.readOrder, _ = strconv.Atoi(fields[0])
	row.layer, _ = strconv.Atoi(fields[1])
	row.marginL, _ = strconv.Atoi(fields[4])
	row.marginR, _ = strconv.Atoi(fields[5])
	row.marginV, _ = strconv.Atoi(fields[6])
	return row, nil
}

// stripOverrideTags removes ASS override blocks (`{...}`) and
// converts the format's hard line-break escapes to real newlines
// (spec §4.3 step 8, §4.4).
func stripOverrideTags(s string) string {
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
	out := b.String()
	out = strings.ReplaceAll(out, `\N`, "\n")
	out = strings.ReplaceAll(out, `\n`, "\n")
	return out
}

// formatASSTime renders milliseconds as ASS's H:MM:SS.cc
// (centisecond) timestamp (spec §4.4 Generation).
func formatASSTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	cs := ms / 10
	hh := cs / 360000
	mm := (cs / 6000) % 60
	ss := (cs / 100) % 60
	cc := cs % 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", hh, mm, ss, cc)
}

const defaultASSEventsHeader = "[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n"

// buildASSDocument reassembles a complete .ass file: the original
// CodecPrivate header verbatim, with an [Events] section and its
// Format line appended if the header doesn't already declare one,
// followed by one rewritten Dialogue line per row (spec §4.3 step 8).
func buildASSDocument(codecPrivate []byte, rows []dialogueRow) string {
	var b strings.Builder
	header := strings.TrimRight(string(codecPrivate), "\n")
	if header != "" {
		b.WriteString(header)
		b.WriteString("\n")
	}
	if !strings.Contains(header, "[Events]") {
		b.WriteString(defaultASSEventsHeader)
	}
	for _, row := range rows {
		b.WriteString("Dialogue: ")
		b.WriteString(strconv.Itoa(row.layer))
		b.WriteString(",")
		b.WriteString(formatASSTime(row.startMs))
		b.WriteString(",")
		b.WriteString(formatASSTime(row.endMs))
		b.WriteString(",")
		b.WriteString(row.style)
		b.WriteString(",")
		b.WriteString(row.name)
		b.WriteString(",")
		b.WriteString(fmt.Sprintf("%04d", row.marginL))
		b.WriteString(",")
		b.WriteString(fmt.Sprintf("%04d", row.marginR))
		b.WriteString(",")
		b.WriteString(fmt.Sprintf("%04d", row.marginV))
		b.WriteString(",")
		b.WriteString(row.effect)
		b.WriteString(",")
		b.WriteString(strings.ReplaceAll(row.text, "\n", `\N`))
		b.WriteString("\n")
	}
	return b.String()
}
