package dictionary

import (
	_ "embed"
	"fmt"
	"iter"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is a single lexicon word.
type Entry struct {
	Word string
	Noun bool
	Verb bool
	// Compounds holds the unit nouns of a compound noun, in order.
	// It is empty for simple words.
	Compounds []string
}

// IsCompound reports whether the entry decomposes into more than one unit noun.
func (e *Entry) IsCompound() bool { return e != nil && len(e.Compounds) > 1 }

// SyllableFeature describes how a syllable may take part in a particle or an ending.
type SyllableFeature struct {
	ParticleStart bool // can open a particle
	ParticleCont  bool // can appear after the first syllable of a particle
	EndingStart   bool
	EndingCont    bool
}

// Dictionary is the read-only lookup surface used during analysis.
// Implementations must be safe for concurrent readers. A miss is reported
// as nil/false; lookups never fail.
type Dictionary interface {
	Word(text string) *Entry
	CompoundNoun(text string) *Entry
	FindByPrefix(prefix string) iter.Seq[*Entry]
	ExistsParticle(text string) bool
	ExistsEnding(text string) bool
	// Readings returns the Hangul readings of a Hanja character in preference order.
	Readings(ch rune) []rune
	Syllable(ch rune) SyllableFeature
}

// HasPrefix reports whether any entry of d starts with prefix.
func HasPrefix(d Dictionary, prefix string) bool {
	for range d.FindByPrefix(prefix) {
		return true
	}
	return false
}

// Noun returns the entry for text if it is a noun, otherwise nil.
func Noun(d Dictionary, text string) *Entry {
	if e := d.Word(text); e != nil && e.Noun {
		return e
	}
	return nil
}

// Lexicon is the on-disk lexicon document. YAML and JSON are both accepted.
//
//	nouns: [학교, 대학, 교회]
//	compounds:
//	  대학교회: [대학, 교회]
//	particles: [이, 가, 은, 는]
//	endings: [다, 었다]
//	hanja:
//	  長: 장
//	  樂: 락낙악요
type Lexicon struct {
	Nouns     []string            `yaml:"nouns" json:"nouns"`
	Verbs     []string            `yaml:"verbs" json:"verbs"`
	Compounds map[string][]string `yaml:"compounds" json:"compounds"`
	Particles []string            `yaml:"particles" json:"particles"`
	Endings   []string            `yaml:"endings" json:"endings"`
	// Hanja maps a character to its readings; each rune of the value is one reading.
	Hanja map[string]string `yaml:"hanja" json:"hanja"`
}

// Size returns the number of word entries in the lexicon.
func (l *Lexicon) Size() int {
	return len(l.Nouns) + len(l.Verbs) + len(l.Compounds)
}

// ParseLexicon decodes a YAML (or JSON) lexicon document.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	for word, parts := range lex.Compounds {
		if strings.Join(parts, "") != word {
			return nil, fmt.Errorf("compound %q does not match its parts %v", word, parts)
		}
	}
	for ch := range lex.Hanja {
		if len([]rune(ch)) != 1 {
			return nil, fmt.Errorf("hanja key %q must be a single character", ch)
		}
	}
	return &lex, nil
}

// LoadLexicon reads a lexicon file from disk.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLexicon(data)
}

//go:embed data/sample.yaml
var sampleLexicon []byte

// Sample returns the built-in starter lexicon.
func Sample() *Lexicon {
	lex, err := ParseLexicon(sampleLexicon)
	if err != nil {
		panic(fmt.Sprintf("dictionary: embedded sample lexicon is invalid: %v", err))
	}
	return lex
}
