// Package symbols turns raw text into the symbol list the reasoning core
// consumes. This is an input adapter; the core itself only ever sees
// pre-tokenized symbols.
package symbols

import (
	"strings"
	"unicode"

	"github.com/tsawler/prose/v3"
)

// stopWords are function words dropped during tokenization. Question and
// modal words (what, is, can, ...) are kept: they carry the intent.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"and": true, "or": true, "but": true, "if": true, "then": true,
	"than": true, "so": true, "as": true, "of": true, "at": true,
	"by": true, "for": true, "with": true, "about": true, "into": true,
	"to": true, "from": true, "in": true, "on": true, "up": true,
	"out": true, "off": true, "over": true, "under": true,
	"i": true, "me": true, "my": true, "we": true, "our": true,
	"you": true, "your": true, "he": true, "she": true, "it": true,
	"they": true, "them": true, "their": true, "this": true, "that": true,
}

// Tokenize splits text into lowercase symbols: prose tokenization,
// punctuation dropped, stop words filtered, first occurrence kept on
// duplicates. Returns nil for text with no usable tokens.
func Tokenize(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	doc, err := prose.NewDocument(text)
	if err != nil {
		// prose only fails on truly degenerate input; fall back to a
		// whitespace split so the cycle still gets symbols.
		return filterTokens(strings.Fields(text))
	}

	tokens := doc.Tokens()
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		words = append(words, tok.Text)
	}
	return filterTokens(words)
}

func filterTokens(words []string) []string {
	var out []string
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		w = normalize(w)
		if w == "" || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// normalize lowercases a token and strips surrounding punctuation.
// Interior hyphens and apostrophes survive; a token that is all
// punctuation normalizes to the empty string.
func normalize(w string) string {
	w = strings.ToLower(w)
	return strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
