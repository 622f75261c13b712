package pipeline

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// speakerPattern matches "name:" at the start of an utterance. Unicode
// letter classes keep Cyrillic names intact.
var speakerPattern = regexp.MustCompile(`([\p{L}\p{N}_-]+):\s`)

var fold = cases.Fold()

// extractSpeakers pulls candidate speaker names from a chunk's transcript
// lines. Each hit is returned as the case-folded dedup key paired with the
// display spelling.
func extractSpeakers(text string) [][2]string {
	var out [][2]string
	for _, match := range speakerPattern.FindAllStringSubmatch(text, -1) {
		display := strings.TrimSpace(match[1])
		if display == "" || isNumeric(display) {
			continue
		}
		out = append(out, [2]string{fold.String(display), display})
	}
	return out
}

// isNumeric filters out timestamp fragments that the pattern can match
// inside free text.
func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
