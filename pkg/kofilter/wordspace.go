package kofilter

import (
	"slices"

	"github.com/japaniel/kofilter/pkg/dictionary"
	"github.com/japaniel/kofilter/pkg/morph"
)

// spanClass tells whether a span can end with a particle, an ending or both.
type spanClass int

const (
	classNeither spanClass = iota
	classParticle
	classEnding
	classBoth
)

// analysis window, in syllables, when probing suffixes
const suffixWindow = 5

func (e *Extractor) splitEnding(stem, ending string) bool {
	if e.endings != nil {
		return e.endings.SplitEnding(stem, ending)
	}
	if ending == "" || !e.dict.ExistsEnding(ending) {
		return false
	}
	w := e.dict.Word(stem)
	return w != nil && w.Verb
}

// classify checks whether span ends with a particle that fits its stem or
// with a verbal ending. Split points are tried right to left until the
// syllable at the split cannot continue a particle or an ending.
func (e *Extractor) classify(span string) spanClass {
	r := []rune(span)
	validEnding := e.splitEnding(span, "")
	validParticle := false
	particleOn, endingOn := true, true

	for i := len(r) - 1; i > 0; i-- {
		stem, tail := string(r[:i]), string(r[i:])
		f := e.dict.Syllable(r[i])
		if !validParticle && particleOn && f.ParticleStart {
			validParticle = e.dict.ExistsParticle(tail) && dictionary.ParticleAttaches(r[i-1], tail)
		}
		if !validEnding && endingOn {
			validEnding = e.splitEnding(stem, tail)
		}
		if particleOn && !f.ParticleCont {
			particleOn = false
		}
		if endingOn && !f.EndingCont {
			endingOn = false
		}
		if !particleOn && !endingOn {
			break
		}
	}

	switch {
	case validParticle && validEnding:
		return classBoth
	case validParticle:
		return classParticle
	case validEnding:
		return classEnding
	}
	return classNeither
}

// wordAtEnd finds the last word of snippet by analysis. It returns the word
// and its parses, or "" when no suffix analyzes well enough.
func (e *Extractor) wordAtEnd(snippet string) (string, []morph.Candidate, error) {
	if e.classify(snippet) == classNeither {
		return "", nil, nil
	}
	r := []rune(snippet)
	n := len(r)

	// a final ㅁ, ㄹ or ㄴ may itself be a nominal or adnominal ending
	start := n - 2
	switch dictionary.FinalConsonant(r[n-1]) {
	case 'ㅁ', 'ㄹ', 'ㄴ':
		start = n - 1
	}

	var (
		bestTier  morph.Tier
		bestWord  string
		bestParse []morph.Candidate
	)
	for s := start; s >= 0; s-- {
		text := string(r[s:])
		parses, err := e.an.Analyze(text)
		if err != nil {
			return "", nil, err
		}
		if len(parses) == 0 {
			continue
		}
		parses = slices.Clone(parses)
		morph.SortByTier(parses)
		if parses[0].Tier < bestTier {
			continue
		}
		if start-s > suffixWindow {
			break
		}
		if parses[0].Tier < morph.TierAnalysis {
			continue
		}
		bestTier, bestWord, bestParse = parses[0].Tier, text, parses
	}
	return bestWord, bestParse, nil
}

// fallbackWord picks the last word of snippet when analysis finds none: the
// longest dictionary noun ending there, else the part after the longest
// prefix that ends with a particle or an ending, else the last syllable.
func (e *Extractor) fallbackWord(snippet string) string {
	if w := e.longestNounAtEnd(snippet); w != "" {
		return w
	}
	r := []rune(snippet)
	for i := len(r) - 1; i > 0; i-- {
		if e.classify(string(r[:i])) != classNeither {
			return string(r[i:])
		}
	}
	return string(r[len(r)-1:])
}

func (e *Extractor) longestNounAtEnd(snippet string) string {
	r := []rune(snippet)
	for i := 0; i < len(r); i++ {
		if w := string(r[i:]); dictionary.Noun(e.dict, w) != nil {
			return w
		}
	}
	return ""
}

// byAnalysis segments text right to left, taking the best analyzed word
// that ends at each boundary.
func (e *Extractor) byAnalysis(text string) (Segmentation, error) {
	r := []rune(text)
	var segs []CandidateSegment
	for end := len(r); end > 0; {
		snippet := string(r[:end])
		word, parses, err := e.wordAtEnd(snippet)
		if err != nil {
			return Segmentation{}, err
		}
		if word == "" {
			word, parses = e.fallbackWord(snippet), nil
		}
		segs = append(segs, e.newSegment(word, parses))
		end -= runeLen(word)
	}
	slices.Reverse(segs)
	return segmentationOf(segs), nil
}

// byLongestWord segments text right to left into the longest dictionary
// nouns. Syllables outside any noun are grouped into one segment per run.
func (e *Extractor) byLongestWord(text string) Segmentation {
	r := []rune(text)
	var segs []CandidateSegment
	unknownEnd := -1
	flush := func(start int) {
		if unknownEnd >= 0 {
			segs = append(segs, e.newSegment(string(r[start:unknownEnd]), nil))
			unknownEnd = -1
		}
	}
	for end := len(r); end > 0; {
		w := e.longestNounAtEnd(string(r[:end]))
		if w == "" {
			if unknownEnd < 0 {
				unknownEnd = end
			}
			end--
			continue
		}
		flush(end)
		segs = append(segs, e.newSegment(w, nil))
		end -= runeLen(w)
	}
	flush(0)
	slices.Reverse(segs)
	return segmentationOf(segs)
}

// segment builds the whole-token, analysis and longest-word segmentations
// of text and returns the best one.
func (e *Extractor) segment(text string, cands []morph.Candidate) (Segmentation, error) {
	whole := segmentationOf([]CandidateSegment{e.newSegment(text, cands)})
	analyzed, err := e.byAnalysis(text)
	if err != nil {
		return Segmentation{}, err
	}
	return bestSegmentation(whole, analyzed, e.byLongestWord(text)), nil
}
