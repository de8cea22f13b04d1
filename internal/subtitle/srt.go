package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"subtrans/internal/domain"
)

// srtTimeLine matches an SRT/VTT-shaped time line; the decimal
// separator is captured separately so one pattern serves both
// formats (spec §4.4: SRT uses a comma, VTT a dot, hours optional).
var srtTimeLine = regexp.MustCompile(`^(?:(\d+):)?(\d{1,2}):(\d{2})[.,](\d{1,3})\s*-->\s*(?:(\d+):)?(\d{1,2}):(\d{2})[.,](\d{1,3})`)

// ParseSRT implements spec §4.4: blocks separated by ≥1 blank line,
// each block an index line, a time line, and 1+ lines of text.
// Malformed blocks are skipped rather than treated as fatal.
func ParseSRT(text string) []domain.Entry {
	return parseTimedBlocks(text, true)
}

// ParseVTT implements spec §4.4's WebVTT shape: an optional leading
// "WEBVTT" header line, cues separated by blank lines, no mandatory
// index line.
func ParseVTT(text string) []domain.Entry {
	text = strings.TrimPrefix(strings.TrimLeft(text, "﻿"), "WEBVTT")
	return parseTimedBlocks(text, false)
}

// parseTimedBlocks is shared by SRT and VTT: both are "blocks
// separated by blank lines, one time line, then text lines" — they
// only differ in whether a numeric index line precedes the time line.
func parseTimedBlocks(text string, requireIndex bool) []domain.Entry {
	blocks := splitBlankLineBlocks(text)
	entries := make([]domain.Entry, 0, len(blocks))

	for _, block := range blocks {
		lines := strings.Split(block, "\n")
		lines = trimEmptyEdges(lines)
		if len(lines) < 2 {
			continue
		}

		timeLineIdx := 0
		if requireIndex {
			if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err != nil {
				continue // malformed index — skip block, not fatal
			}
			timeLineIdx = 1
		} else if !srtTimeLine.MatchString(lines[0]) {
			if !srtTimeLine.MatchString(lines[1]) {
				continue
			}
			timeLineIdx = 1 // optional cue identifier line
		}
		if timeLineIdx >= len(lines) {
			continue
		}

		m := srtTimeLine.FindStringSubmatch(lines[timeLineIdx])
		if m == nil {
			continue
		}
		start, ok1 := parseClockMatch(m[1], m[2], m[3], m[4])
		end, ok2 := parseClockMatch(m[5], m[6], m[7], m[8])
		if !ok1 || !ok2 {
			continue
		}

		text := strings.Join(lines[timeLineIdx+1:], "\n")
		entries = append(entries, domain.Entry{
			Index:   len(entries) + 1,
			StartMs: start,
			EndMs:   end,
			Text:    text,
		})
	}
	return entries
}

func parseClockMatch(hours, minutes, seconds, frac string) (int64, bool) {
	h, _ := strconv.Atoi(hours) // empty hours -> 0, matches spec's "hours optional"
	m, err1 := strconv.Atoi(minutes)
	s, err2 := strconv.Atoi(seconds)
	if err1 != nil || err2 != nil {
		return 0, false
	}
	// frac may be 1-3 digits (VTT/SRT both use milliseconds); pad or
	// truncate to 3 digits.
	for len(frac) < 3 {
		frac += "0"
	}
	frac = frac[:3]
	ms, err3 := strconv.Atoi(frac)
	if err3 != nil {
		return 0, false
	}
	total := int64(h)*3_600_000 + int64(m)*60_000 + int64(s)*1000 + int64(ms)
	return total, true
}

// splitBlankLineBlocks splits text on runs of 1+ blank lines,
// tolerating \r\n line endings.
func splitBlankLineBlocks(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	re := regexp.MustCompile(`\n\s*\n+`)
	parts := re.Split(strings.TrimSpace(text), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func trimEmptyEdges(lines []string) []string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

// GenerateSRT implements spec §4.4's Generation rule for SRT: comma
// decimal, renumbered sequentially.
func GenerateSRT(entries []domain.Entry) string {
	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, formatSRTClock(e.StartMs), formatSRTClock(e.EndMs), e.Text)
	}
	return b.String()
}

// GenerateVTT implements spec §4.4's Generation rule for WebVTT: dot
// decimal, leading WEBVTT header.
func GenerateVTT(entries []domain.Entry) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n", formatVTTClock(e.StartMs), formatVTTClock(e.EndMs), e.Text)
	}
	return b.String()
}

func formatSRTClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3_600_000, (ms/60_000)%60, (ms/1000)%60, ms%1000)
}

func formatVTTClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3_600_000, (ms/60_000)%60, (ms/1000)%60, ms%1000)
}
