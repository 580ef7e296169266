package search

import (
	"regexp"
	"strings"
)

var blankLineRE = regexp.MustCompile(`\n[ \t\r]*\n`)

// Paragraphs splits Markdown into notes. Paragraphs are separated by blank
// lines; every table row becomes its own note with cells joined by spaces,
// and header separator rows are dropped. Leading heading markers are removed.
func Paragraphs(md string) []string {
	var out []string
	for _, block := range blankLineRE.Split(strings.ReplaceAll(md, "\r\n", "\n"), -1) {
		var prose []string
		flush := func() {
			if len(prose) > 0 {
				out = append(out, strings.Join(prose, " "))
				prose = nil
			}
		}
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if row, ok := tableRow(line); ok {
				flush()
				if row != "" {
					out = append(out, row)
				}
				continue
			}
			prose = append(prose, strings.TrimSpace(strings.TrimLeft(line, "#")))
		}
		flush()
	}
	return out
}

// tableRow reports whether line is a "| a | b |" row and returns its cells.
// Separator rows ("|---|:--:|") yield an empty string.
func tableRow(line string) (string, bool) {
	if !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") || len(line) < 2 {
		return "", false
	}
	var cells []string
	for _, c := range strings.Split(strings.Trim(line, "|"), "|") {
		c = strings.TrimSpace(c)
		if c == "" || strings.Trim(c, ":-") == "" {
			continue
		}
		cells = append(cells, c)
	}
	return strings.Join(cells, " "), true
}
