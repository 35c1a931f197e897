package calendar

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// normalizeTitle collapses every run of non-alphanumeric characters to a
// single space, trims, and lowercases.
func normalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(nonAlnum.ReplaceAllString(s, " ")))
}

// FilterByKeyword returns the events whose summary contains at least one of
// the keywords as a case-insensitive whole-word match. An empty keyword set
// returns nothing: subscribers opt in explicitly.
func FilterByKeyword(events []Event, keywords []string) []Event {
	if len(keywords) == 0 {
		return nil
	}

	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if n := normalizeTitle(kw); n != "" {
			normalized = append(normalized, n)
		}
	}
	if len(normalized) == 0 {
		return nil
	}

	var out []Event
	for _, ev := range events {
		title := " " + normalizeTitle(ev.Summary) + " "
		for _, kw := range normalized {
			if strings.Contains(title, " "+kw+" ") {
				out = append(out, ev)
				break
			}
		}
	}
	return out
}

// RemoveSent drops events whose UID is in the sent set. Idempotent.
func RemoveSent(events []Event, sent map[string]struct{}) []Event {
	var out []Event
	for _, ev := range events {
		if _, ok := sent[ev.UID]; !ok {
			out = append(out, ev)
		}
	}
	return out
}
