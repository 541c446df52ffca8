package dictionary

import (
	"database/sql"
	"fmt"
	"log"
	"sort"

	"github.com/japaniel/kofilter/pkg/db"
)

// Importer persists lexicons into the sqlite store and loads them back.
type Importer struct {
	conn *sql.DB
	// Logger receives per-entry failures. nil means the default logger.
	Logger *log.Logger
}

// NewImporter creates an importer writing to conn.
func NewImporter(conn *sql.DB) *Importer {
	return &Importer{conn: conn}
}

func (im *Importer) logf(format string, args ...interface{}) {
	if im.Logger != nil {
		im.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Import writes lex inside one transaction and returns the number of rows stored.
func (im *Importer) Import(lex *Lexicon) (int, error) {
	tx, err := im.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin import tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	var rows []db.LexiconWord
	add := func(kind string, words []string) {
		for _, w := range words {
			rows = append(rows, db.LexiconWord{Word: w, Kind: kind})
		}
	}
	add(db.KindNoun, lex.Nouns)
	add(db.KindVerb, lex.Verbs)
	add(db.KindParticle, lex.Particles)
	add(db.KindEnding, lex.Endings)

	compounds := make([]string, 0, len(lex.Compounds))
	for w := range lex.Compounds {
		compounds = append(compounds, w)
	}
	sort.Strings(compounds)
	for _, w := range compounds {
		rows = append(rows, db.LexiconWord{Word: w, Kind: db.KindCompound, Parts: lex.Compounds[w]})
	}

	count := 0
	for _, r := range rows {
		if err := db.UpsertLexiconWord(tx, r); err != nil {
			im.logf("Skipping lexicon word %q: %v", r.Word, err)
			continue
		}
		count++
	}
	for ch, readings := range lex.Hanja {
		if err := db.UpsertHanja(tx, ch, readings); err != nil {
			return count, err
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit lexicon import: %w", err)
	}
	return count, nil
}

// Load reads the stored lexicon back.
func (im *Importer) Load() (*Lexicon, error) {
	words, err := db.ListLexiconWords(im.conn)
	if err != nil {
		return nil, fmt.Errorf("failed to list lexicon words: %w", err)
	}
	lex := &Lexicon{Compounds: make(map[string][]string)}
	for _, w := range words {
		switch w.Kind {
		case db.KindNoun:
			lex.Nouns = append(lex.Nouns, w.Word)
		case db.KindVerb:
			lex.Verbs = append(lex.Verbs, w.Word)
		case db.KindParticle:
			lex.Particles = append(lex.Particles, w.Word)
		case db.KindEnding:
			lex.Endings = append(lex.Endings, w.Word)
		case db.KindCompound:
			lex.Compounds[w.Word] = w.Parts
		}
	}
	lex.Hanja, err = db.ListHanja(im.conn)
	if err != nil {
		return nil, fmt.Errorf("failed to list hanja readings: %w", err)
	}
	return lex, nil
}

// LoadIndex loads the stored lexicon into a new in-memory Index.
func (im *Importer) LoadIndex() (*Index, error) {
	lex, err := im.Load()
	if err != nil {
		return nil, err
	}
	return NewIndex(lex), nil
}
