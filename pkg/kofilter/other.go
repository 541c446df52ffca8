package kofilter

import (
	"strings"

	"github.com/japaniel/kofilter/pkg/tokenizer"
)

// otherTerms handles Latin, digit and symbol tokens: possessive 's is
// stripped and acronym dots removed.
func otherTerms(tok tokenizer.Token) []IndexTerm {
	text := tok.Text
	switch tok.Kind {
	case tokenizer.Possessive:
		if n := len(text); n >= 2 && text[n-2] == '\'' && (text[n-1] == 's' || text[n-1] == 'S') {
			text = text[:n-2]
		}
	case tokenizer.Acronym:
		text = strings.ReplaceAll(text, ".", "")
	}
	if text == "" {
		return nil
	}
	return []IndexTerm{{Text: text, Start: tok.Start, Increment: 1}}
}
