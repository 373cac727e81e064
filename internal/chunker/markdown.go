package chunker

import (
	"regexp"
	"strings"
)

var (
	fenceRe    = regexp.MustCompile("(?m)^```[^\n]*$")
	headingRe  = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	imageRe    = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkRe     = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	emphasisRe = regexp.MustCompile(`(\*{1,3}|_{1,3})([^*_]+)(\*{1,3}|_{1,3})`)
	inlineRe   = regexp.MustCompile("`([^`]*)`")
	htmlTagRe  = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	ruleRe     = regexp.MustCompile(`(?m)^(\s*[-*_]){3,}\s*$`)
)

// StripMarkdown reduces markdown to plain text before windowed
// chunking: fences, headings, emphasis, links, inline code markers,
// and HTML tags are removed while the readable text and line structure
// are preserved. This is a lossy, indexing-oriented conversion, not a
// renderer.
func StripMarkdown(src string) string {
	out := fenceRe.ReplaceAllString(src, "")
	out = headingRe.ReplaceAllString(out, "")
	out = imageRe.ReplaceAllString(out, "$1")
	out = linkRe.ReplaceAllString(out, "$1")
	out = emphasisRe.ReplaceAllString(out, "$2")
	out = inlineRe.ReplaceAllString(out, "$1")
	out = htmlTagRe.ReplaceAllString(out, "")
	out = ruleRe.ReplaceAllString(out, "")

	// Blockquote markers at line starts.
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, ">") {
			lines[i] = strings.TrimPrefix(strings.TrimPrefix(trimmed, ">"), " ")
		}
	}
	return strings.Join(lines, "\n")
}
