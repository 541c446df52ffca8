package db

import "time"

// Lexicon entry kinds stored in lexicon_words.kind.
const (
	KindNoun     = "noun"
	KindVerb     = "verb"
	KindCompound = "compound"
	KindParticle = "particle"
	KindEnding   = "ending"
)

// LexiconWord is one row of the persisted lexicon.
type LexiconWord struct {
	Word string
	Kind string
	// Parts holds the unit nouns of a compound, empty otherwise.
	Parts []string
}

// Source is a provenance record for an indexed document.
type Source struct {
	ID         int64
	SourceType string
	Title      string
	Author     string
	Website    string
	URL        string
	Meta       string
	AddedAt    time.Time
}

// TermHit is a term occurrence returned by LookupTerm.
type TermHit struct {
	Term            string
	SourceID        int64
	Title           string
	URL             string
	OccurrenceCount int
}

// SearchLog is one audited search request.
type SearchLog struct {
	ID          string
	AddedAt     time.Time
	UserIP      string
	UserName    string
	QueryFull   string
	Q           string
	FQ          string
	ResultCount int
	FacetUsed   bool
}
