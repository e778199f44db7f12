package splitter

import "strings"

// boilerplateKeywords marks lines that are almost always page furniture in
// the office documents this store targets. Matching is a case-insensitive
// substring check on the whole line.
var boilerplateKeywords = []string{
	"page",
	"copyright",
	"confidential",
	"scan the qr code",
	"seats",
	"policies",
	"help",
}

// CleanBoilerplate drops lines containing any denylisted keyword and trims
// the result. Returns "" when nothing survives, which callers treat as a
// chunk to discard.
func CleanBoilerplate(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if containsBoilerplate(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func containsBoilerplate(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range boilerplateKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
