package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/japaniel/kofilter/pkg/kofilter"
	"github.com/japaniel/kofilter/pkg/tokenizer"
)

func newAnalyzeCommand(a *app) *cobra.Command {
	var query bool
	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Print the index terms of text (read from stdin when no argument is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(b)
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
			if query {
				cfg := ext.Config()
				cfg.QueryMode = true
				ext = ext.WithConfig(cfg)
			}

			s := kofilter.NewStream(ext, kofilter.Tokens(tokenizer.Tokenize(text)))
			s.Logger = a.verboseLogger()
			s.Metrics = a.rec

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TERM\tSTART\tEND\tINC")
			for t, ok := s.Next(); ok; t, ok = s.Next() {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", t.Text, t.Start, t.End(), t.Increment)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if err := s.Err(); err != nil {
				a.logger.Printf("Warning: some tokens were skipped: %v", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&query, "query", false, "analyze as a search query")
	return cmd
}
