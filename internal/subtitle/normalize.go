package subtitle

import (
	"regexp"
	"strings"
)

var (
	htmlTagPattern  = regexp.MustCompile(`<[^>]*>`)
	whitespaceRun   = regexp.MustCompile(`[ \t]+`)
)

// htmlEntities covers the handful of entities that show up in
// subtitle text in practice; this is not a general HTML decoder.
var htmlEntities = map[string]string{
	"&amp;":  "&",
	"&lt;":   "<",
	"&gt;":   ">",
	"&quot;": `"`,
	"&apos;": "'",
	"&nbsp;": " ",
	"&#39;":  "'",
}

// Normalize implements spec §4.4's text-normalization rule: decode
// common HTML entities, strip HTML-like tags, collapse whitespace
// runs, and trim — without touching line breaks the source format
// introduced.
func Normalize(text string) string {
	for entity, repl := range htmlEntities {
		text = strings.ReplaceAll(text, entity, repl)
	}
	text = htmlTagPattern.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = whitespaceRun.ReplaceAllString(line, " ")
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
