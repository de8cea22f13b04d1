package matroska

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// defaultTailMs is the synthetic end-time padding for a final block
// with no declared duration (spec §4.3 step 7).
const defaultTailMs = 3000

// timedBlock is a rawBlock after its cluster-relative ticks have been
// converted to absolute milliseconds (spec §4.3 step 7).
type timedBlock struct {
	startMs    int64
	durationMs int64
	hasEnd     bool // true when durationMs came from an explicit BlockDuration
	payload    []byte
}

// scaleBlocks converts raw cluster-relative timestamps into absolute
// milliseconds and sorts by start time — Cues-driven extraction can
// visit clusters out of file order when the index itself is unordered.
func scaleBlocks(raw []rawBlock, timecodeScale uint64) []timedBlock {
	out := make([]timedBlock, 0, len(raw))
	for _, rb := range raw {
		ticks := int64(rb.clusterTicks) + int64(rb.tsOffset)
		startMs := ticks * int64(timecodeScale) / 1_000_000
		var durMs int64
		hasEnd := rb.durationTicks != 0
		if hasEnd {
			durMs = int64(rb.durationTicks) * int64(timecodeScale) / 1_000_000
		}
		out = append(out, timedBlock{startMs: startMs, durationMs: durMs, hasEnd: hasEnd, payload: rb.payload})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].startMs < out[j].startMs })
	return out
}

// endTimes fills in each block's end time per spec §4.3 step 7: an
// explicit duration wins; otherwise the next block's start; the last
// block without either gets a fixed tail.
func endTimes(blocks []timedBlock) []int64 {
	ends := make([]int64, len(blocks))
	for i, b := range blocks {
		switch {
		case b.hasEnd:
			ends[i] = b.startMs + b.durationMs
		case i+1 < len(blocks):
			ends[i] = blocks[i+1].startMs
		default:
			ends[i] = b.startMs + defaultTailMs
		}
	}
	return ends
}

// buildSRTText reassembles plain-text (non-ASS-coded) blocks into a
// complete SRT document: UTF-8 decode with replacement, renumbered
// from 1 (spec §4.3 step 8).
func buildSRTText(raw []rawBlock, timecodeScale uint64) string {
	blocks := scaleBlocks(raw, timecodeScale)
	ends := endTimes(blocks)

	var b strings.Builder
	index := 1
	for i, blk := range blocks {
		text := toValidUTF8(blk.payload)
		text = strings.TrimRight(text, "\r\n")
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", index, formatSRTTime(blk.startMs), formatSRTTime(ends[i]), text)
		index++
	}
	return b.String()
}

// buildSRTFromASSBlocks implements spec §4.3 step 8's "SRT output...
// for ASS source" bullet: extract field 9, strip override tags,
// convert \N/\n to line breaks, then reassemble as SRT.
func buildSRTFromASSBlocks(raw []rawBlock, timecodeScale uint64) string {
	blocks := scaleBlocks(raw, timecodeScale)
	ends := endTimes(blocks)

	var b strings.Builder
	index := 1
	for i, blk := range blocks {
		row, err := parseMKVASSPayload(blk.payload)
		if err != nil {
			continue // malformed dialogue rows are skipped, not fatal
		}
		text := stripOverrideTags(row.text)
		text = strings.TrimRight(text, "\r\n")
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", index, formatSRTTime(blk.startMs), formatSRTTime(ends[i]), text)
		index++
	}
	return b.String()
}

// buildASSText implements spec §4.3 step 8's ASS/SSA output path:
// parse each block's 9-field MKV layout and render a Dialogue line
// with rewritten Start/End against the preserved CodecPrivate header.
func buildASSText(raw []rawBlock, timecodeScale uint64, codecPrivate []byte) string {
	blocks := scaleBlocks(raw, timecodeScale)
	ends := endTimes(blocks)

	rows := make([]dialogueRow, 0, len(blocks))
	for i, blk := range blocks {
		row, err := parseMKVASSPayload(blk.payload)
		if err != nil {
			continue
		}
		row.startMs = blk.startMs
		row.endMs = ends[i]
		rows = append(rows, row)
	}
	return buildASSDocument(codecPrivate, rows)
}

// formatSRTTime renders milliseconds as SRT's HH:MM:SS,mmm timestamp.
func formatSRTTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hh := ms / 3_600_000
	mm := (ms / 60_000) % 60
	ss := (ms / 1000) % 60
	mmm := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hh, mm, ss, mmm)
}

func toValidUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}
