package parser

import (
	"regexp"
	"strings"
)

// merchantRe captures a capitalized phrase after a location preposition,
// e.g. "lunch at Star Kabab 450" yields "Star Kabab".
var merchantRe = regexp.MustCompile(`(?:\bat|\bin|\bfrom)\s+(?:(?i:the|a|an)\s+)?((?:[A-Z][\w&'.-]*)(?:\s+[A-Z][\w&'.-]*)*)`)

var leadingArticles = []string{"The ", "A ", "An "}

// ExtractMerchant pulls a merchant name out of raw message text. Returns
// nil when no capitalized phrase follows an at/in/from preposition.
func ExtractMerchant(text string) *string {
	m := merchantRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	name := strings.TrimSpace(m[1])
	for _, article := range leadingArticles {
		if strings.HasPrefix(name, article) {
			name = strings.TrimSpace(name[len(article):])
			break
		}
	}
	if name == "" {
		return nil
	}

	name = titleCase(name)
	return &name
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}
	return strings.Join(words, " ")
}
