package dictionary

import (
	"iter"
	"sort"
	"strings"
	"sync"
)

// Index is an in-memory Dictionary built from a Lexicon.
type Index struct {
	// The maps are read concurrently by analysis goroutines. They are only
	// written by Add, which takes the write lock.
	mu        sync.RWMutex
	words     map[string]*Entry
	keys      []string // sorted keys of words, for prefix search
	particles map[string]struct{}
	endings   map[string]struct{}
	hanja     map[rune][]rune
	syllables map[rune]SyllableFeature
}

// NewIndex builds an index from lex. A nil lexicon yields an empty index.
func NewIndex(lex *Lexicon) *Index {
	idx := &Index{
		words:     make(map[string]*Entry),
		particles: make(map[string]struct{}),
		endings:   make(map[string]struct{}),
		hanja:     make(map[rune][]rune),
		syllables: make(map[rune]SyllableFeature),
	}
	if lex != nil {
		idx.Add(lex)
	}
	return idx
}

// Add merges lex into the index.
func (idx *Index) Add(lex *Lexicon) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entry := func(w string) *Entry {
		e, ok := idx.words[w]
		if !ok {
			e = &Entry{Word: w}
			idx.words[w] = e
		}
		return e
	}
	for _, w := range lex.Nouns {
		if w = strings.TrimSpace(w); w != "" {
			entry(w).Noun = true
		}
	}
	for _, w := range lex.Verbs {
		if w = strings.TrimSpace(w); w != "" {
			entry(w).Verb = true
		}
	}
	for w, parts := range lex.Compounds {
		e := entry(w)
		e.Noun = true
		e.Compounds = append([]string(nil), parts...)
	}
	for _, p := range lex.Particles {
		if p == "" {
			continue
		}
		idx.particles[p] = struct{}{}
		idx.markSyllables(p, true)
	}
	for _, e := range lex.Endings {
		if e == "" {
			continue
		}
		idx.endings[e] = struct{}{}
		idx.markSyllables(e, false)
	}
	for ch, readings := range lex.Hanja {
		r := []rune(ch)
		if len(r) != 1 {
			continue
		}
		idx.hanja[r[0]] = append(idx.hanja[r[0]], []rune(readings)...)
	}

	idx.keys = idx.keys[:0]
	for w := range idx.words {
		idx.keys = append(idx.keys, w)
	}
	sort.Strings(idx.keys)
}

// markSyllables assumes idx.mu is held.
func (idx *Index) markSyllables(s string, particle bool) {
	for i, r := range []rune(s) {
		f := idx.syllables[r]
		switch {
		case particle && i == 0:
			f.ParticleStart = true
		case particle:
			f.ParticleCont = true
		case i == 0:
			f.EndingStart = true
		default:
			f.EndingCont = true
		}
		idx.syllables[r] = f
	}
}

// Len returns the number of word entries.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.words)
}

// Word returns the entry for text, or nil when the lexicon lacks it.
func (idx *Index) Word(text string) *Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.words[text]
}

// CompoundNoun returns the entry for text if it is a registered compound noun.
func (idx *Index) CompoundNoun(text string) *Entry {
	e := idx.Word(text)
	if e.IsCompound() {
		return e
	}
	return nil
}

// FindByPrefix yields the entries starting with prefix in lexical order.
func (idx *Index) FindByPrefix(prefix string) iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		idx.mu.RLock()
		i := sort.SearchStrings(idx.keys, prefix)
		var matches []*Entry
		for ; i < len(idx.keys) && strings.HasPrefix(idx.keys[i], prefix); i++ {
			matches = append(matches, idx.words[idx.keys[i]])
		}
		idx.mu.RUnlock()

		for _, e := range matches {
			if !yield(e) {
				return
			}
		}
	}
}

// ExistsParticle reports whether text is a known particle.
func (idx *Index) ExistsParticle(text string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.particles[text]
	return ok
}

// ExistsEnding reports whether text is a known verbal ending.
func (idx *Index) ExistsEnding(text string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.endings[text]
	return ok
}

// Readings returns the Hangul readings of a Hanja character in preference order.
func (idx *Index) Readings(ch rune) []rune {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.hanja[ch]
}

// Syllable reports where ch may occur inside particles and endings.
func (idx *Index) Syllable(ch rune) SyllableFeature {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.syllables[ch]
}
