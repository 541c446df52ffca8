package tokenizer

import (
	"regexp"
	"strings"
)

// Sentence is one sentence of a document with its tokens. Token offsets are
// relative to the sentence text.
type Sentence struct {
	Text   string
	Tokens []Token
}

// SplitDocument splits text into sentences and tokenizes each of them.
// Blank sentences are dropped.
func SplitDocument(text string) []Sentence {
	var result []Sentence
	for _, s := range splitSentences(Normalize(text)) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		result = append(result, Sentence{Text: s, Tokens: Tokenize(s)})
	}
	return result
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		end := r == '\n' || r == '。' || r == '!' || r == '?'
		// a dot only ends a sentence before whitespace, so 3.14 and U.S.A survive
		if r == '.' && (i+1 == len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n') {
			end = true
		}
		if end {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby annotations (<rt>...</rt>) and ruby parentheses
// (<rp>...</rp>) from HTML. Korean pages annotate Hanja with Hangul readings
// this way, and readability would otherwise merge them into the text
// ("漢字한자").
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	cleaned = reRP.ReplaceAll(cleaned, []byte{})
	return cleaned
}
