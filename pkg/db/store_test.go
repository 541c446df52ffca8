package db

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Ensure single connection to avoid separate in-memory DBs per connection.
	db.SetMaxOpenConns(1)
	if err := InitDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCreateOrGetTerm(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	id1, err := CreateOrGetTerm(db, "학교")
	if err != nil {
		t.Fatalf("create term: %v", err)
	}
	id2, err := CreateOrGetTerm(db, " 학교 ")
	if err != nil {
		t.Fatalf("get term: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same id, got %d and %d", id1, id2)
	}
	if _, err := CreateOrGetTerm(db, "  "); err == nil {
		t.Fatalf("expected error for blank term")
	}
}

func TestCreateOrGetSource(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	id1, err := CreateOrGetSource(db, "website_article", "", "", "example.com", "https://example.com/a", "")
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	id2, err := CreateOrGetSource(db, "website_article", "", "", "example.com", "https://example.com/a", "")
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same source id, got %d and %d", id1, id2)
	}
	progress, err := GetSourceProgress(db, id1)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress != -1 {
		t.Fatalf("expected fresh source progress -1, got %d", progress)
	}
}

func TestLinkAndLookup(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	tID, err := CreateOrGetTerm(db, "교회")
	if err != nil {
		t.Fatalf("create term: %v", err)
	}
	sID, err := CreateOrGetSource(db, "website_article", "교회 소식", "", "example.com", "https://example.com/b", "")
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	if err := LinkTermToSource(db, tID, sID, "대학교회에 갔다.", 1); err != nil {
		t.Fatalf("link: %v", err)
	}
	// Link again to test occurrence_count increment via upsert
	if err := LinkTermToSource(db, tID, sID, "교회가 크다.", 2); err != nil {
		t.Fatalf("link 2: %v", err)
	}

	hits, err := LookupTerm(db, "교회")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].OccurrenceCount != 3 || hits[0].Title != "교회 소식" {
		t.Fatalf("unexpected hit %+v", hits[0])
	}

	var contexts int
	if err := db.QueryRow(`SELECT COUNT(*) FROM term_contexts`).Scan(&contexts); err != nil {
		t.Fatalf("count contexts: %v", err)
	}
	if contexts != 2 {
		t.Fatalf("expected 2 context sentences, got %d", contexts)
	}

	terms, err := GetTermsBySource(db, sID)
	if err != nil {
		t.Fatalf("terms by source: %v", err)
	}
	if len(terms) != 1 || terms[0].Term != "교회" {
		t.Fatalf("unexpected terms %+v", terms)
	}

	if err := LinkTermToSource(db, tID, sID, "", 0); err == nil {
		t.Fatalf("expected error for zero count")
	}
}

func TestContextsAreCapped(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	tID, _ := CreateOrGetTerm(db, "학교")
	sID, _ := CreateOrGetSource(db, "text", "t", "", "", "", "")
	sentences := []string{"하나 학교.", "둘 학교.", "셋 학교.", "넷 학교.", "다섯 학교.", "여섯 학교."}
	for _, s := range sentences {
		if err := LinkTermToSource(db, tID, sID, s, 1); err != nil {
			t.Fatalf("link: %v", err)
		}
	}
	var contexts int
	if err := db.QueryRow(`SELECT COUNT(*) FROM term_contexts`).Scan(&contexts); err != nil {
		t.Fatalf("count: %v", err)
	}
	if contexts != 5 {
		t.Fatalf("expected contexts capped at 5, got %d", contexts)
	}
}

func TestLexiconRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	words := []LexiconWord{
		{Word: "학교", Kind: KindNoun},
		{Word: "대학교회", Kind: KindCompound, Parts: []string{"대학", "교회"}},
		{Word: "에서", Kind: KindParticle},
	}
	for _, w := range words {
		if err := UpsertLexiconWord(db, w); err != nil {
			t.Fatalf("upsert %s: %v", w.Word, err)
		}
	}
	if err := UpsertLexiconWord(db, LexiconWord{Word: "x", Kind: "adverb"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if err := UpsertHanja(db, "長", "장"); err != nil {
		t.Fatalf("hanja: %v", err)
	}
	if err := UpsertHanja(db, "長", "장창"); err != nil {
		t.Fatalf("hanja update: %v", err)
	}

	got, err := ListLexiconWords(db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 words, got %d", len(got))
	}
	if got[1].Kind != KindCompound || len(got[1].Parts) != 2 || got[1].Parts[1] != "교회" {
		t.Fatalf("compound parts lost: %+v", got[1])
	}

	hanja, err := ListHanja(db)
	if err != nil {
		t.Fatalf("list hanja: %v", err)
	}
	if hanja["長"] != "장창" {
		t.Fatalf("expected updated readings, got %q", hanja["長"])
	}
}

func TestSearchLogs(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	err := InsertSearchLog(db, SearchLog{
		ID:          "4b1f6f8e-0000-4000-8000-000000000001",
		UserIP:      "10.1.2.3",
		QueryFull:   "q=학교&rows=10&facet=true",
		Q:           "학교",
		ResultCount: 7,
		FacetUsed:   true,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := InsertSearchLog(db, SearchLog{}); err == nil {
		t.Fatalf("expected error for missing id")
	}
	logs, err := ListSearchLogs(db, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	if !logs[0].FacetUsed || logs[0].ResultCount != 7 || logs[0].Q != "학교" {
		t.Fatalf("unexpected log %+v", logs[0])
	}
}

func TestCreateOrGetTermConcurrency(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	const n = 8
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		go func() {
			id, err := CreateOrGetTerm(db, "학교")
			if err != nil {
				t.Errorf("create or get term: %v", err)
				ids <- 0
				return
			}
			ids <- id
		}()
	}
	var first int64
	for i := 0; i < n; i++ {
		id := <-ids
		if id == 0 {
			t.Fatalf("error in goroutine")
		}
		if i == 0 {
			first = id
		}
		if id != first {
			t.Fatalf("expected same id, got %d and %d", first, id)
		}
	}
	var cnt int
	if err := db.QueryRow(`SELECT COUNT(*) FROM terms WHERE term = ?`, "학교").Scan(&cnt); err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("expected 1 term row, got %d", cnt)
	}
}

func TestCreateOrGetSourceConcurrency(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	const n = 8
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		go func() {
			id, err := CreateOrGetSource(db, "website_article", "Title", "Author", "example.com", "https://example.com/c", "")
			if err != nil {
				t.Errorf("create or get source: %v", err)
				ids <- 0
				return
			}
			ids <- id
		}()
	}
	var first int64
	for i := 0; i < n; i++ {
		id := <-ids
		if id == 0 {
			t.Fatalf("error in goroutine")
		}
		if i == 0 {
			first = id
		}
		if id != first {
			t.Fatalf("expected same id, got %d and %d", first, id)
		}
	}
	var cnt int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sources WHERE url = ?`, "https://example.com/c").Scan(&cnt); err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("expected 1 source row, got %d", cnt)
	}
}
