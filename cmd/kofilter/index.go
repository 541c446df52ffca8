package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/go-shiori/go-readability"
	"github.com/spf13/cobra"

	"github.com/japaniel/kofilter/pkg/db"
	"github.com/japaniel/kofilter/pkg/ingest"
	"github.com/japaniel/kofilter/pkg/tokenizer"
)

// maxBodySize bounds fetched HTML.
const maxBodySize = 10 * 1024 * 1024

// document is the text to index and where it came from.
type document struct {
	SourceType string
	Title      string
	Byline     string
	SiteName   string
	URL        string
	Text       string
}

func newIndexCommand(a *app) *cobra.Command {
	var (
		pageURL   string
		htmlFile  string
		textFile  string
		title     string
		workers   int
		batchSize int
		blevePath string
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Extract a document's terms into the term index",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var doc document
			var err error
			switch {
			case pageURL != "":
				fmt.Fprintf(out, "Fetching %s...\n", pageURL)
				doc, err = fetchArticle(ctx, pageURL)
			case htmlFile != "":
				doc, err = readHTMLFile(htmlFile)
			case textFile != "":
				doc, err = readTextFile(textFile)
			default:
				return errors.New("please provide --url, --html or --text")
			}
			if err != nil {
				return err
			}
			if title != "" {
				doc.Title = title
			}
			fmt.Fprintf(out, "Title: %s\n", doc.Title)
			fmt.Fprintf(out, "Extracted Text Length: %d chars\n", len(doc.Text))

			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer conn.Close()

			ext, err := a.extractor(cmd, conn)
			if err != nil {
				return err
			}

			sourceID, err := db.CreateOrGetSource(conn, doc.SourceType, doc.Title, doc.Byline, doc.SiteName, doc.URL, "")
			if err != nil {
				return fmt.Errorf("failed to persist source: %w", err)
			}
			fmt.Fprintf(out, "Source saved with ID: %d\n", sourceID)

			sentences := tokenizer.SplitDocument(doc.Text)
			fmt.Fprintf(out, "Split %d sentences.\n", len(sentences))

			ingester := ingest.NewIngester(conn, ext)
			ingester.Logger = a.logger
			ingester.Metrics = a.rec
			if workers > 0 {
				ingester.Workers = workers
			}
			if batchSize > 0 {
				ingester.BatchSize = batchSize
			}
			if a.v.GetBool("verbose") {
				ingester.OnProgress = func(cur, total int) {
					fmt.Fprintf(out, "Progress: %d/%d\n", cur, total)
				}
			}
			links, err := ingester.Ingest(ctx, sourceID, sentences)
			if err != nil {
				return fmt.Errorf("ingestion failed: %w", err)
			}

			if blevePath != "" {
				if err := a.registerBleve(ext); err != nil {
					return err
				}
				if err := indexSentences(blevePath, sourceID, sentences); err != nil {
					return fmt.Errorf("bleve indexing failed: %w", err)
				}
			}

			fmt.Fprintf(out, "Processing complete. Linked %d term occurrences.\n", links)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&pageURL, "url", "", "URL of an article to fetch")
	f.StringVar(&htmlFile, "html", "", "local HTML file")
	f.StringVar(&textFile, "text", "", "local plain text file")
	f.StringVar(&title, "title", "", "override the source title")
	f.IntVar(&workers, "workers", 0, "analysis workers (default 4)")
	f.IntVar(&batchSize, "batch", 0, "sentences per database transaction (default 50)")
	f.StringVar(&blevePath, "bleve", "", "also index sentences into the bleve index at this path")
	return cmd
}

func fetchArticle(ctx context.Context, pageURL string) (document, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return document{}, fmt.Errorf("invalid url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return document{}, fmt.Errorf("failed to create request: %w", err)
	}
	// some news sites block unknown agents
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return document{}, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return document{}, fmt.Errorf("got status code %d", resp.StatusCode)
	}
	if resp.ContentLength > maxBodySize {
		return document{}, fmt.Errorf("content-length %d exceeds limit of %d bytes", resp.ContentLength, maxBodySize)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return document{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxBodySize {
		return document{}, fmt.Errorf("response body exceeded maximum size limit of %d bytes", maxBodySize)
	}
	return extractArticle(body, parsed, "website_article")
}

func readHTMLFile(path string) (document, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return document{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return document{}, err
	}
	return extractArticle(body, &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}, "html_file")
}

func readTextFile(path string) (document, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return document{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return document{}, err
	}
	return document{
		SourceType: "text_file",
		Title:      filepath.Base(path),
		URL:        "file://" + filepath.ToSlash(abs),
		Text:       string(body),
	}, nil
}

// extractArticle strips ruby readings and pulls the main text out of an
// HTML page.
func extractArticle(body []byte, pageURL *url.URL, sourceType string) (document, error) {
	body = tokenizer.SanitizeRuby(body)
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return document{}, fmt.Errorf("failed to extract article: %w", err)
	}
	return document{
		SourceType: sourceType,
		Title:      article.Title,
		Byline:     article.Byline,
		SiteName:   article.SiteName,
		URL:        pageURL.String(),
		Text:       article.TextContent,
	}, nil
}

type sentenceDoc struct {
	Source int64  `json:"source"`
	Text   string `json:"text"`
}

// openBleve opens the index at path, creating it with the Korean analyzer
// as default when missing.
func openBleve(path string) (bleve.Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		m := bleve.NewIndexMapping()
		m.DefaultAnalyzer = bleveAnalyzer
		return bleve.New(path, m)
	}
	return idx, err
}

func indexSentences(path string, sourceID int64, sentences []tokenizer.Sentence) error {
	idx, err := openBleve(path)
	if err != nil {
		return err
	}
	defer idx.Close()

	batch := idx.NewBatch()
	for i, s := range sentences {
		id := strconv.FormatInt(sourceID, 10) + ":" + strconv.Itoa(i)
		if err := batch.Index(id, sentenceDoc{Source: sourceID, Text: s.Text}); err != nil {
			return err
		}
	}
	return idx.Batch(batch)
}
