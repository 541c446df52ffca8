package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// CreateOrGetTerm returns the id of term, inserting it when missing.
func CreateOrGetTerm(db DBExecutor, term string) (int64, error) {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return 0, fmt.Errorf("term must be non-empty")
	}

	var id int64
	err := db.QueryRow(`INSERT INTO terms (term) VALUES (?)
			  ON CONFLICT(term) DO UPDATE SET term = excluded.term
			  RETURNING id`, trimmed).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert term: %w", err)
	}
	return id, nil
}

// CreateOrGetSource returns existing source id or inserts a new source and returns its id.
func CreateOrGetSource(db DBExecutor, sourceType, title, author, website, url, meta string) (int64, error) {
	trimmedSourceType := strings.TrimSpace(sourceType)
	if trimmedSourceType == "" {
		return 0, fmt.Errorf("sourceType must be non-empty")
	}

	const maxRetries = 3

	var id int64
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := db.QueryRow(
			`SELECT id FROM sources WHERE IFNULL(url, '') = ? AND IFNULL(title, '') = ? AND IFNULL(author, '') = ?`,
			url, title, author,
		).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, err
		}

		res, err := db.Exec(
			`INSERT INTO sources (source_type, title, author, website, url, meta) VALUES (?, ?, ?, ?, ?, ?)`,
			trimmedSourceType, title, author, website, url, meta,
		)
		if err != nil {
			// A concurrent writer inserted the same source; select it on the next pass.
			if isUniqueConstraintErr(err) {
				continue
			}
			return 0, err
		}
		return res.LastInsertId()
	}

	return 0, fmt.Errorf("could not create or get source after %d retries", maxRetries)
}

func getOrCreateSentence(db DBExecutor, text string) (int64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, nil
	}
	var id int64
	if err := db.QueryRow(`SELECT id FROM sentences WHERE text = ?`, trimmed).Scan(&id); err == nil {
		return id, nil
	} else if err != sql.ErrNoRows {
		return 0, err
	}
	if _, err := db.Exec(`INSERT OR IGNORE INTO sentences (text) VALUES (?)`, trimmed); err != nil {
		return 0, err
	}
	if err := db.QueryRow(`SELECT id FROM sentences WHERE text = ?`, trimmed).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// LinkTermToSource records count occurrences of a term in a source and keeps
// up to five context sentences per pair.
func LinkTermToSource(db DBExecutor, termID, sourceID int64, context string, count int) error {
	if termID <= 0 {
		return fmt.Errorf("termID must be positive")
	}
	if sourceID <= 0 {
		return fmt.Errorf("sourceID must be positive")
	}
	if count < 1 {
		return fmt.Errorf("count must be positive, got %d", count)
	}

	ctxID, err := getOrCreateSentence(db, context)
	if err != nil {
		return fmt.Errorf("get/create context sentence: %w", err)
	}

	var termSourceID int64
	err = db.QueryRow(`INSERT INTO term_sources (term_id, source_id, occurrence_count, first_seen_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(term_id, source_id) DO UPDATE SET
	  occurrence_count = term_sources.occurrence_count + excluded.occurrence_count
	RETURNING id`, termID, sourceID, count, time.Now()).Scan(&termSourceID)
	if err != nil {
		return err
	}
	if ctxID == 0 {
		return nil
	}

	_, err = db.Exec(`
		INSERT INTO term_contexts (term_source_id, sentence_id)
		SELECT ?, ?
		WHERE (SELECT COUNT(*) FROM term_contexts WHERE term_source_id = ?) < 5
		ON CONFLICT DO NOTHING`,
		termSourceID, ctxID, termSourceID)
	return err
}

// LookupTerm returns the sources containing term, most frequent first.
func LookupTerm(db DBExecutor, term string) ([]TermHit, error) {
	rows, err := db.Query(`SELECT t.term, s.id, IFNULL(s.title, ''), IFNULL(s.url, ''), ts.occurrence_count
		FROM terms t
		JOIN term_sources ts ON ts.term_id = t.id
		JOIN sources s ON s.id = ts.source_id
		WHERE t.term = ?
		ORDER BY ts.occurrence_count DESC, s.id`, term)
	if err != nil {
		return nil, err
	}
	return scanHits(rows)
}

// GetTermsBySource returns the terms indexed for a source with their counts.
func GetTermsBySource(db DBExecutor, sourceID int64) ([]TermHit, error) {
	rows, err := db.Query(`SELECT t.term, s.id, IFNULL(s.title, ''), IFNULL(s.url, ''), ts.occurrence_count
		FROM term_sources ts
		JOIN terms t ON t.id = ts.term_id
		JOIN sources s ON s.id = ts.source_id
		WHERE ts.source_id = ?
		ORDER BY t.term`, sourceID)
	if err != nil {
		return nil, err
	}
	return scanHits(rows)
}

func scanHits(rows *sql.Rows) ([]TermHit, error) {
	defer rows.Close()
	var out []TermHit
	for rows.Next() {
		var h TermHit
		if err := rows.Scan(&h.Term, &h.SourceID, &h.Title, &h.URL, &h.OccurrenceCount); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSourceProgress returns the last processed sentence index for a source.
func GetSourceProgress(db DBExecutor, sourceID int64) (int, error) {
	var index int
	err := db.QueryRow("SELECT last_processed_sentence FROM sources WHERE id = ?", sourceID).Scan(&index)
	if err != nil {
		return 0, err
	}
	return index, nil
}

// UpdateSourceProgress updates the last processed sentence index.
func UpdateSourceProgress(db DBExecutor, sourceID int64, index int) error {
	_, err := db.Exec("UPDATE sources SET last_processed_sentence = ? WHERE id = ?", index, sourceID)
	return err
}

// UpsertLexiconWord stores a lexicon word. Compound parts are replaced on conflict.
func UpsertLexiconWord(db DBExecutor, w LexiconWord) error {
	word := strings.TrimSpace(w.Word)
	if word == "" {
		return fmt.Errorf("lexicon word must be non-empty")
	}
	switch w.Kind {
	case KindNoun, KindVerb, KindCompound, KindParticle, KindEnding:
	default:
		return fmt.Errorf("unknown lexicon kind %q", w.Kind)
	}
	_, err := db.Exec(`INSERT INTO lexicon_words (word, kind, parts) VALUES (?, ?, ?)
		ON CONFLICT(word, kind) DO UPDATE SET parts = excluded.parts`,
		word, w.Kind, strings.Join(w.Parts, "+"))
	if err != nil {
		return fmt.Errorf("upsert lexicon word %s: %w", word, err)
	}
	return nil
}

// UpsertHanja stores the readings of a Hanja character.
func UpsertHanja(db DBExecutor, hanja, readings string) error {
	_, err := db.Exec(`INSERT INTO lexicon_hanja (hanja, readings) VALUES (?, ?)
		ON CONFLICT(hanja) DO UPDATE SET readings = excluded.readings`, hanja, readings)
	if err != nil {
		return fmt.Errorf("upsert hanja %s: %w", hanja, err)
	}
	return nil
}

// ListLexiconWords returns every stored lexicon word ordered by id.
func ListLexiconWords(db DBExecutor) ([]LexiconWord, error) {
	rows, err := db.Query(`SELECT word, kind, parts FROM lexicon_words ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LexiconWord
	for rows.Next() {
		var w LexiconWord
		var parts string
		if err := rows.Scan(&w.Word, &w.Kind, &parts); err != nil {
			return nil, err
		}
		if parts != "" {
			w.Parts = strings.Split(parts, "+")
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ListHanja returns the stored Hanja readings keyed by character.
func ListHanja(db DBExecutor) (map[string]string, error) {
	rows, err := db.Query(`SELECT hanja, readings FROM lexicon_hanja`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var h, r string
		if err := rows.Scan(&h, &r); err != nil {
			return nil, err
		}
		out[h] = r
	}
	return out, rows.Err()
}

// InsertSearchLog appends an audited search request.
func InsertSearchLog(db DBExecutor, l SearchLog) error {
	if l.ID == "" {
		return fmt.Errorf("search log id must be non-empty")
	}
	facet := "N"
	if l.FacetUsed {
		facet = "Y"
	}
	added := l.AddedAt
	if added.IsZero() {
		added = time.Now()
	}
	_, err := db.Exec(`INSERT INTO search_logs
		(log_id, added_date, user_ip, user_name, query_full, query_q, query_fq, result_cnt, facet_yn)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, added, l.UserIP, l.UserName, l.QueryFull, l.Q, l.FQ, l.ResultCount, facet)
	return err
}

// ListSearchLogs returns up to limit search logs, newest first.
func ListSearchLogs(db DBExecutor, limit int) ([]SearchLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`SELECT log_id, added_date, IFNULL(user_ip, ''), IFNULL(user_name, ''),
		IFNULL(query_full, ''), IFNULL(query_q, ''), IFNULL(query_fq, ''), result_cnt, facet_yn
		FROM search_logs ORDER BY added_date DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SearchLog
	for rows.Next() {
		var l SearchLog
		var facet string
		if err := rows.Scan(&l.ID, &l.AddedAt, &l.UserIP, &l.UserName, &l.QueryFull, &l.Q, &l.FQ, &l.ResultCount, &facet); err != nil {
			return nil, err
		}
		l.FacetUsed = facet == "Y"
		out = append(out, l)
	}
	return out, rows.Err()
}
