package kofilter

import (
	"slices"

	"github.com/japaniel/kofilter/pkg/dictionary"
	"github.com/japaniel/kofilter/pkg/morph"
)

// CandidateSegment is one word of a proposed segmentation.
type CandidateSegment struct {
	Snippet     string
	KnownPrefix bool // some dictionary word starts with Snippet
	ExactWord   bool
	Parses      []morph.Candidate // best first
	Score       morph.Tier
}

func (e *Extractor) newSegment(snippet string, parses []morph.Candidate) CandidateSegment {
	s := CandidateSegment{Snippet: snippet}
	if dictionary.HasPrefix(e.dict, snippet) {
		s.KnownPrefix = true
		s.ExactWord = dictionary.Noun(e.dict, snippet) != nil
		if s.ExactWord {
			s.Score = morph.TierCorrect
		}
	}
	if len(parses) > 0 {
		s.Parses = slices.Clone(parses)
		morph.SortByTier(s.Parses)
		s.Score = s.Parses[0].Tier
		if s.Score == morph.TierCorrect {
			s.ExactWord = true
		}
	}
	return s
}

// Segmentation covers a token left to right with candidate segments.
type Segmentation struct {
	Segments []CandidateSegment
	Score    int
	Consumed int // runes covered so far
}

func (s *Segmentation) add(seg CandidateSegment) {
	n := runeLen(seg.Snippet)
	s.Segments = append(s.Segments, seg)
	s.Score += int(seg.Score)/10*n - 2*n
	s.Consumed += n
}

func (s Segmentation) meanTier() int {
	if len(s.Segments) == 0 {
		return 0
	}
	sum := 0
	for _, seg := range s.Segments {
		sum += int(seg.Score)
	}
	return sum / len(s.Segments)
}

// usable reports whether the segmentation really splits the token into
// confidently analyzed words.
func (s Segmentation) usable() bool {
	return len(s.Segments) > 1 && s.meanTier() > int(morph.TierAnalysis)
}

// bestSegmentation picks the highest score; the earliest wins ties.
func bestSegmentation(cands ...Segmentation) Segmentation {
	var best Segmentation
	for i, c := range cands {
		if i == 0 || c.Score > best.Score {
			best = c
		}
	}
	return best
}

func segmentationOf(segs []CandidateSegment) Segmentation {
	var s Segmentation
	for _, seg := range segs {
		s.add(seg)
	}
	return s
}
