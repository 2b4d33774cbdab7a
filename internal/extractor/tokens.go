package extractor

import (
	"strings"
	"unicode"
)

// stopWords filters common English words that add noise to keyword matching.
var stopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "you": true,
	"are": true, "have": true, "will": true, "this": true, "that": true,
	"from": true, "our": true, "your": true, "their": true, "they": true,
	"work": true, "team": true, "role": true, "job": true, "join": true,
	"about": true, "which": true, "what": true, "who": true, "how": true,
	"can": true, "not": true, "but": true, "all": true, "also": true,
	"more": true, "than": true, "into": true, "has": true, "its": true,
	"was": true, "were": true, "been": true, "each": true, "new": true,
	"use": true, "using": true, "used": true, "well": true, "high": true,
	"good": true, "able": true, "get": true, "set": true, "such": true,
	"years": true, "year": true, "experience": true, "strong": true,
}

// Tokenize splits text into lowercase keywords, skipping stop words and
// tokens shorter than 3 runes. Treats + # . as word characters so tech
// names like c++, c# and node.js survive intact.
func Tokenize(text string) map[string]bool {
	kw := make(map[string]bool)
	var word strings.Builder
	flush := func() {
		w := word.String()
		word.Reset()
		w = strings.TrimRight(w, ".")
		if len([]rune(w)) >= 3 && !stopWords[w] {
			kw[w] = true
		}
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.' {
			word.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return kw
}
