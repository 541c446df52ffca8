package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/japaniel/kofilter/pkg/dictionary"
)

func newDictCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dict",
		Short: "Manage the stored lexicon",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Import a YAML or JSON lexicon into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.importLexicon(cmd, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "fetch",
		Short: "Download the lexicon named by --lexicon from --lexicon-url and import it",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, url := a.v.GetString("lexicon"), a.v.GetString("lexicon_url")
			if path == "" || url == "" {
				return errors.New("fetch needs both --lexicon and --lexicon-url")
			}
			if err := dictionary.EnsureLexicon(cmd.Context(), path, url); err != nil {
				return err
			}
			return a.importLexicon(cmd, path)
		},
	})
	return cmd
}

func (a *app) importLexicon(cmd *cobra.Command, path string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "Loading lexicon from %s...\n", path)
	lex, err := dictionary.LoadLexicon(path)
	if err != nil {
		return fmt.Errorf("failed to load lexicon: %w", err)
	}

	conn, err := a.openDB()
	if err != nil {
		return err
	}
	defer conn.Close()

	im := dictionary.NewImporter(conn)
	im.Logger = a.logger
	n, err := im.Import(lex)
	if err != nil {
		return fmt.Errorf("failed to import lexicon: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d lexicon entries.\n", n)
	return nil
}
