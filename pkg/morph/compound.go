package morph

import (
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/japaniel/kofilter/pkg/dictionary"
)

const maxUnitLen = 8

// CompoundSplitter decomposes nouns into dictionary nouns. Results are cached.
type CompoundSplitter struct {
	dict  dictionary.Dictionary
	cache *lru.Cache[string, []CompoundFragment]
}

// NewCompoundSplitter creates a splitter with an LRU cache of the given size.
func NewCompoundSplitter(d dictionary.Dictionary, cacheSize int) (*CompoundSplitter, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[string, []CompoundFragment](cacheSize)
	if err != nil {
		return nil, err
	}
	return &CompoundSplitter{dict: d, cache: cache}, nil
}

// step is one cell of the segmentation table.
type step struct {
	unknown  int // runes not covered by a dictionary noun
	segments int
	prev     int
	known    bool // segment ending here is a dictionary noun
	ok       bool
}

func (s step) better(o step) bool {
	if !o.ok {
		return true
	}
	if s.unknown != o.unknown {
		return s.unknown < o.unknown
	}
	return s.segments < o.segments
}

// Split returns the fragments of text, or nil when text is not a compound:
// a single noun, an empty string, or a word with no dictionary noun in it.
// Dictionary compounds use their registered parts. Otherwise the split
// covering the most runes with nouns wins, then the one with fewer pieces.
// Adjacent unknown runes form one fragment.
func (s *CompoundSplitter) Split(text string) []CompoundFragment {
	if frags, ok := s.cache.Get(text); ok {
		return slices.Clone(frags)
	}
	frags := s.split(text)
	s.cache.Add(text, frags)
	return slices.Clone(frags)
}

func (s *CompoundSplitter) split(text string) []CompoundFragment {
	if e := s.dict.CompoundNoun(text); e != nil {
		out := make([]CompoundFragment, len(e.Compounds))
		for i, p := range e.Compounds {
			out[i] = CompoundFragment{Text: p, Exists: s.dict.Word(p) != nil}
		}
		return out
	}

	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return nil
	}

	table := make([]step, n+1)
	table[0] = step{ok: true, prev: -1}
	for i := 1; i <= n; i++ {
		// one more unknown rune, glued to a preceding unknown run
		if p := table[i-1]; p.ok {
			cand := step{unknown: p.unknown + 1, segments: p.segments, prev: i - 1, ok: true}
			if i == 1 || p.known {
				cand.segments++
			}
			if cand.better(table[i]) {
				table[i] = cand
			}
		}
		for j := max(0, i-maxUnitLen); j < i; j++ {
			p := table[j]
			if !p.ok || dictionary.Noun(s.dict, string(runes[j:i])) == nil {
				continue
			}
			cand := step{unknown: p.unknown, segments: p.segments + 1, prev: j, known: true, ok: true}
			if cand.better(table[i]) {
				table[i] = cand
			}
		}
	}

	end := table[n]
	if end.segments < 2 || end.unknown == n {
		return nil
	}

	var out []CompoundFragment
	for i := n; i > 0; {
		st := table[i]
		j := st.prev
		if !st.known {
			// walk back over the whole unknown run
			for j > 0 && !table[j].known {
				j = table[j].prev
			}
		}
		out = append(out, CompoundFragment{Text: string(runes[j:i]), Exists: st.known})
		i = j
	}
	slices.Reverse(out)
	if len(out) < 2 {
		return nil
	}
	return out
}
