package summary

import (
	"strings"
)

// section identifiers for the structured response headers.
type section int

const (
	secNone section = iota
	secParticipants
	secDecisions
	secTasks
	secQuestions
	secOverview
)

// headerAliases maps the uppercase header spellings the model is known to
// produce. Both underscore and space variants occur in practice.
var headerAliases = []struct {
	name string
	sec  section
}{
	{"УЧАСТНИКИ", secParticipants},
	{"КЛЮЧЕВЫЕ_РЕШЕНИЯ", secDecisions},
	{"КЛЮЧЕВЫЕ РЕШЕНИЯ", secDecisions},
	{"ЗАДАЧИ_И_ДЕЙСТВИЯ", secTasks},
	{"ЗАДАЧИ И ДЕЙСТВИЯ", secTasks},
	{"ВОПРОСЫ_ОБСУЖДЕННЫЕ", secQuestions},
	{"ВОПРОСЫ ОБСУЖДЕННЫЕ", secQuestions},
	{"ОБЩАЯ_СВОДКА", secOverview},
	{"ОБЩАЯ СВОДКА", secOverview},
}

// noParticipants are answers meaning "no participants listed".
var noParticipants = map[string]bool{
	"нет":         true,
	"отсутствуют": true,
}

var markupReplacer = strings.NewReplacer(
	"**", "",
	"*", "",
	"`", "",
	"[", "",
	"]", "",
	"(", "",
	")", "",
)

// stripMarkup removes the markdown decoration the model tends to sprinkle
// over headers and list items.
func stripMarkup(s string) string {
	return strings.TrimSpace(markupReplacer.Replace(s))
}

// detectHeader reports whether line is a section header, returning the
// section and any content that follows the header on the same line.
func detectHeader(line string) (section, string, bool) {
	stripped := strings.TrimLeft(line, "# ")
	stripped = stripMarkup(stripped)

	upper := strings.ToUpper(stripped)
	for _, alias := range headerAliases {
		if !strings.HasPrefix(upper, alias.name) {
			continue
		}
		rest := strings.TrimSpace(stripped[len(alias.name):])
		rest = strings.TrimLeft(rest, ": ")
		return alias.sec, rest, true
	}
	return secNone, "", false
}

// listItem extracts a list entry from a line, stripping bullet markers and
// markdown. Items of two characters or fewer are treated as noise.
func listItem(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, marker := range []string{"- ", "• ", "– "} {
		if strings.HasPrefix(trimmed, marker) {
			trimmed = strings.TrimPrefix(trimmed, marker)
			break
		}
	}

	item := stripMarkup(trimmed)
	if len([]rune(item)) <= 2 {
		return "", false
	}
	return item, true
}

// splitParticipants splits a participants line into names. Names are
// separated by commas or semicolons; markup is stripped and single-letter
// fragments dropped. "нет" and "отсутствуют" mean the list is empty.
func splitParticipants(raw string) []string {
	clean := stripMarkup(raw)

	var names []string
	for _, token := range strings.FieldsFunc(clean, func(r rune) bool {
		return r == ',' || r == ';'
	}) {
		name := strings.TrimSpace(strings.Trim(strings.TrimSpace(token), "."))
		name = strings.TrimSpace(strings.TrimLeft(name, "-–• "))
		if len([]rune(name)) <= 1 {
			continue
		}
		if noParticipants[strings.ToLower(name)] {
			continue
		}
		names = append(names, name)
	}
	return names
}

// Parse extracts a structured summary from the model response. When the
// response carries none of the expected headers, the whole markup-stripped
// text becomes the summary and every list stays empty.
func Parse(response string) *Summary {
	sum := &Summary{
		Participants:       []string{},
		KeyDecisions:       []string{},
		Tasks:              []string{},
		QuestionsDiscussed: []string{},
	}

	current := secNone
	sawHeader := false
	var overview strings.Builder
	var participantsRaw []string

	appendTo := func(sec section, line string) {
		switch sec {
		case secParticipants:
			participantsRaw = append(participantsRaw, line)
		case secDecisions:
			if item, ok := listItem(line); ok {
				sum.KeyDecisions = append(sum.KeyDecisions, item)
			}
		case secTasks:
			if item, ok := listItem(line); ok {
				sum.Tasks = append(sum.Tasks, item)
			}
		case secQuestions:
			if item, ok := listItem(line); ok {
				sum.QuestionsDiscussed = append(sum.QuestionsDiscussed, item)
			}
		case secOverview:
			if overview.Len() > 0 {
				overview.WriteString(" ")
			}
			overview.WriteString(stripMarkup(line))
		}
	}

	for _, line := range strings.Split(response, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		if sec, rest, ok := detectHeader(line); ok {
			sawHeader = true
			current = sec
			if rest != "" {
				appendTo(sec, rest)
			}
			continue
		}

		if current != secNone {
			appendTo(current, line)
		}
	}

	if !sawHeader {
		sum.SummaryText = stripMarkup(response)
		return sum
	}

	sum.Participants = splitParticipants(strings.Join(participantsRaw, ", "))
	if sum.Participants == nil {
		sum.Participants = []string{}
	}
	sum.SummaryText = strings.TrimSpace(overview.String())

	return sum
}
