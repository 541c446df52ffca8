package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/spf13/cobra"

	"github.com/japaniel/kofilter/pkg/audit"
	"github.com/japaniel/kofilter/pkg/db"
	"github.com/japaniel/kofilter/pkg/kofilter"
	"github.com/japaniel/kofilter/pkg/tokenizer"
)

type searchOptions struct {
	user      string
	fq        string
	rows      int
	facet     bool
	clientIP  string
	noAudit   bool
	blevePath string
}

// sourceHit is a source ranked by the summed counts of matching terms.
type sourceHit struct {
	ID    int64
	Title string
	URL   string
	Score int
	Terms []string
}

func newSearchCommand(a *app) *cobra.Command {
	var opts searchOptions
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the term index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if users := a.v.GetStringSlice("search.users"); len(users) > 0 && !audit.UserAllowed(opts.user, users) {
				return fmt.Errorf("user %q is not allowed to search", opts.user)
			}

			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer conn.Close()

			ext, err := a.extractor(cmd, conn)
			if err != nil {
				return err
			}

			var total int
			if opts.blevePath != "" {
				total, err = a.searchBleve(cmd.OutOrStdout(), ext, query, opts)
			} else {
				total, err = a.searchTerms(cmd.OutOrStdout(), conn, ext, query, opts)
			}
			if err != nil {
				return err
			}

			if !opts.noAudit {
				a.recordSearch(conn, query, total, opts)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.user, "user", "", "user name recorded in the search log")
	f.StringVar(&opts.fq, "fq", "", "filter query recorded in the search log")
	f.IntVar(&opts.rows, "rows", 10, "maximum number of results")
	f.BoolVar(&opts.facet, "facet", false, "mark the search as faceted in the search log")
	f.StringVar(&opts.clientIP, "client-ip", "127.0.0.1", "caller address recorded in the search log")
	f.BoolVar(&opts.noAudit, "no-audit", false, "do not write a search log record")
	f.StringVar(&opts.blevePath, "bleve", "", "search the bleve index at this path instead of the term table")
	return cmd
}

// queryTerms analyzes query in query mode and returns its distinct terms.
func (a *app) queryTerms(ext *kofilter.Extractor, query string) []string {
	cfg := ext.Config()
	cfg.QueryMode = true
	s := kofilter.NewStream(ext.WithConfig(cfg), kofilter.Tokens(tokenizer.Tokenize(query)))
	s.Logger = a.verboseLogger()
	s.Metrics = a.rec

	seen := make(map[string]bool)
	var terms []string
	for t, ok := s.Next(); ok; t, ok = s.Next() {
		if !seen[t.Text] {
			seen[t.Text] = true
			terms = append(terms, t.Text)
		}
	}
	return terms
}

func (a *app) searchTerms(w io.Writer, conn *sql.DB, ext *kofilter.Extractor, query string, opts searchOptions) (int, error) {
	terms := a.queryTerms(ext, query)
	if len(terms) == 0 {
		fmt.Fprintln(w, "No searchable terms in query.")
		return 0, nil
	}
	fmt.Fprintf(w, "Query terms: %s\n", strings.Join(terms, ", "))

	bySource := make(map[int64]*sourceHit)
	for _, term := range terms {
		hits, err := db.LookupTerm(conn, term)
		if err != nil {
			return 0, fmt.Errorf("lookup of %q failed: %w", term, err)
		}
		for _, h := range hits {
			sh, ok := bySource[h.SourceID]
			if !ok {
				sh = &sourceHit{ID: h.SourceID, Title: h.Title, URL: h.URL}
				bySource[h.SourceID] = sh
			}
			sh.Score += h.OccurrenceCount
			sh.Terms = append(sh.Terms, term)
		}
	}

	ranked := make([]*sourceHit, 0, len(bySource))
	for _, sh := range bySource {
		ranked = append(ranked, sh)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})

	fmt.Fprintf(w, "%d results\n", len(ranked))
	for i, sh := range ranked {
		if i == opts.rows {
			break
		}
		fmt.Fprintf(w, "%d. [%d] %s %s (score %d: %s)\n", i+1, sh.ID, sh.Title, sh.URL, sh.Score, strings.Join(sh.Terms, ", "))
	}
	return len(ranked), nil
}

func (a *app) searchBleve(w io.Writer, ext *kofilter.Extractor, query string, opts searchOptions) (int, error) {
	if err := a.registerBleve(ext); err != nil {
		return 0, err
	}
	idx, err := bleve.Open(opts.blevePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open bleve index: %w", err)
	}
	defer idx.Close()

	q := bleve.NewMatchQuery(query)
	q.SetField("text")
	q.Analyzer = bleveQueryAnalyzer
	req := bleve.NewSearchRequestOptions(q, opts.rows, 0, false)
	req.Fields = []string{"text"}
	res, err := idx.Search(req)
	if err != nil {
		return 0, err
	}

	fmt.Fprintf(w, "%d results\n", res.Total)
	for i, h := range res.Hits {
		text, _ := h.Fields["text"].(string)
		fmt.Fprintf(w, "%d. [%s] %s (score %.3f)\n", i+1, h.ID, text, h.Score)
	}
	return int(res.Total), nil
}

// recordSearch writes the search log. Failures are logged only.
func (a *app) recordSearch(conn *sql.DB, query string, hits int, opts searchOptions) {
	params := url.Values{"q": {query}, "rows": {strconv.Itoa(opts.rows)}}
	if opts.user != "" {
		params.Set("user", opts.user)
	}
	if opts.fq != "" {
		params.Set("fq", opts.fq)
	}
	if opts.facet {
		params.Set("facet", "true")
	}

	self, _ := audit.LocalIPv4()
	w := audit.NewWriter(conn, self, 1, 0)
	w.Logger = a.logger
	w.Metrics = a.rec
	w.Record(audit.Request{Header: http.Header{}, RemoteAddr: opts.clientIP, Params: params, Hits: hits})
	if err := w.Close(); err != nil {
		a.logger.Printf("Warning: search log not written: %v", err)
	}
}
