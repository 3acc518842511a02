package hydrate

import "strings"

// Stop words ignored when picking snippet keywords
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "what": true, "which": true, "must": true,
	"or": true, "any": true, "all": true, "does": true, "how": true,
}

const punctuation = ".,!?;:'\"-()[]{}*_`#>"

// cleanWord lowercases a word and trims surrounding punctuation.
func cleanWord(word string) string {
	return strings.ToLower(strings.Trim(word, punctuation))
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := cleanWord(word)
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// keywordSet returns the distinct non-stop-word tokens of a query.
func keywordSet(query string) map[string]bool {
	words := tokenizeAndFilter(query)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// firstKeyword returns the rune offset of the first word in runes that is a
// keyword, or -1.
func firstKeyword(runes []rune, keywords map[string]bool) int {
	if len(keywords) == 0 {
		return -1
	}

	start := -1
	for i := 0; i <= len(runes); i++ {
		atSpace := i == len(runes) || runes[i] == ' '
		switch {
		case atSpace && start >= 0:
			if keywords[cleanWord(string(runes[start:i]))] {
				return start
			}
			start = -1
		case !atSpace && start < 0:
			start = i
		}
	}
	return -1
}
