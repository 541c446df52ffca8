// Package tokenizer splits text into script-classified word tokens.
//
// Offsets are counted in runes of the normalized input; callers that
// need byte offsets into the raw input use NormalizeOffsets.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Script is the writing system class of a token.
type Script int

const (
	// Native tokens contain Hangul and go through morphological analysis.
	Native Script = iota
	// Ideograph tokens are Hanja runs.
	Ideograph
	// Other covers Latin, digits and everything else.
	Other
)

func (s Script) String() string {
	switch s {
	case Native:
		return "native"
	case Ideograph:
		return "ideograph"
	default:
		return "other"
	}
}

// Kind refines Other tokens.
type Kind int

const (
	Word       Kind = iota
	Possessive      // ends with 's
	Acronym         // dotted letters, e.g. U.S.A
)

// Token is a single word of the input.
type Token struct {
	Text   string
	Start  int // rune offset, inclusive
	End    int // rune offset, exclusive
	Script Script
	Kind   Kind
}

// Normalize folds full-width and half-width forms, then applies NFC
// composition. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	return norm.NFC.String(width.Fold.String(text))
}

// NormalizeOffsets returns Normalize(text) and, for every rune of it plus the
// end, the byte offset in text where that rune's source begins. Runes
// composed from several source runes share the offset of the first.
func NormalizeOffsets(text string) (string, []int) {
	var folded strings.Builder
	origin := make([]int, 0, len(text)+1)
	for b, r := range text {
		f := width.Fold.String(string(r))
		folded.WriteString(f)
		for range len(f) {
			origin = append(origin, b)
		}
	}
	origin = append(origin, len(text))

	src := folded.String()
	var out strings.Builder
	offsets := make([]int, 0, len(src)+1)
	for i := 0; i < len(src); {
		n := norm.NFC.NextBoundaryInString(src[i:], true)
		seg := norm.NFC.String(src[i : i+n])
		out.WriteString(seg)
		for range utf8.RuneCountInString(seg) {
			offsets = append(offsets, origin[i])
		}
		i += n
	}
	return out.String(), append(offsets, len(text))
}

func isHan(r rune) bool { return unicode.Is(unicode.Han, r) }

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// Tokenize normalizes text and splits it into tokens. Hanja runs are split
// from their neighbours; Hangul mixed with Latin letters or digits stays one
// token. An apostrophe or dot joins two non-Hanja word characters.
func Tokenize(text string) []Token {
	runes := []rune(Normalize(text))
	var out []Token

	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		word := string(runes[start:end])
		script, kind := Classify(word)
		out = append(out, Token{Text: word, Start: start, End: end, Script: script, Kind: kind})
		start = -1
	}

	for i, r := range runes {
		switch {
		case isWordRune(r):
			if start >= 0 && isHan(r) != isHan(runes[i-1]) {
				flush(i)
			}
			if start < 0 {
				start = i
			}
		case (r == '\'' || r == '.') && start >= 0 && !isHan(runes[i-1]) &&
			i+1 < len(runes) && isWordRune(runes[i+1]) && !isHan(runes[i+1]):
			// joiner inside a word
		default:
			flush(i)
		}
	}
	flush(len(runes))
	return out
}

// Classify returns the script class and kind of a single word.
func Classify(word string) (Script, Kind) {
	hasHangul, allHan := false, word != ""
	for _, r := range word {
		if unicode.Is(unicode.Hangul, r) {
			hasHangul = true
		}
		if !isHan(r) {
			allHan = false
		}
	}
	switch {
	case hasHangul:
		return Native, Word
	case allHan:
		return Ideograph, Word
	}
	return Other, otherKind(word)
}

func otherKind(word string) Kind {
	if n := len(word); n >= 2 && word[n-2] == '\'' && (word[n-1] == 's' || word[n-1] == 'S') {
		return Possessive
	}
	if !strings.Contains(word, ".") {
		return Word
	}
	for _, part := range strings.Split(word, ".") {
		if part == "" {
			return Word
		}
		for _, r := range part {
			if !unicode.IsLetter(r) {
				return Word
			}
		}
	}
	return Acronym
}
