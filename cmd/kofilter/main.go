package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/japaniel/kofilter/pkg/bleveko"
	"github.com/japaniel/kofilter/pkg/db"
	"github.com/japaniel/kofilter/pkg/dictionary"
	"github.com/japaniel/kofilter/pkg/kofilter"
	"github.com/japaniel/kofilter/pkg/metrics"
	"github.com/japaniel/kofilter/pkg/morph"
)

// Analyzer names in the bleve registry.
const (
	bleveAnalyzer      = "kofilter"
	bleveQueryAnalyzer = "kofilter_query"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Fatalf("kofilter: %v", err)
	}
}

// app carries the state shared by all subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	logger  *log.Logger
	rec     *metrics.Recorder
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "kofilter",
		Short:         "Korean index term extraction and search",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./kofilter.yaml)")
	flags.String("db", "kofilter.db", "path to SQLite database")
	flags.String("lexicon", "", "lexicon file (YAML or JSON); the stored lexicon is used when empty")
	flags.String("lexicon-url", "", "download the lexicon from this URL when the file is missing")
	flags.StringToString("param", nil, "filter parameter, e.g. --param queryMode=true")
	flags.BoolP("verbose", "v", false, "log skipped tokens and progress details")

	for key, flag := range map[string]string{
		"db":          "db",
		"lexicon":     "lexicon",
		"lexicon_url": "lexicon-url",
		"verbose":     "verbose",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newAnalyzeCommand(a),
		newIndexCommand(a),
		newSearchCommand(a),
		newDictCommand(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	a.v.SetEnvPrefix("KOFILTER")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("kofilter")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		a.v.AddConfigPath("$HOME/.config/kofilter")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	a.logger = log.New(cmd.ErrOrStderr(), "kofilter: ", log.LstdFlags)
	rec, err := metrics.NewRecorder("kofilter", nil)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	a.rec = rec
	return nil
}

// verboseLogger returns the logger only in verbose mode.
func (a *app) verboseLogger() *log.Logger {
	if a.v.GetBool("verbose") {
		return a.logger
	}
	return nil
}

func (a *app) openDB() (*sql.DB, error) {
	path := a.v.GetString("db")
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.InitDB(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return conn, nil
}

// filterConfig merges the defaults, the config file's filter section and
// --param flags, in that order.
func (a *app) filterConfig(cmd *cobra.Command) (kofilter.Config, error) {
	cfg := kofilter.DefaultConfig()
	if err := a.v.UnmarshalKey("filter", &cfg); err != nil {
		return kofilter.Config{}, fmt.Errorf("invalid filter config: %w", err)
	}
	params, err := cmd.Flags().GetStringToString("param")
	if err != nil {
		return kofilter.Config{}, err
	}
	return cfg.Apply(params)
}

func (a *app) loadDictionary(ctx context.Context, conn *sql.DB) (*dictionary.Index, error) {
	if path := a.v.GetString("lexicon"); path != "" {
		if url := a.v.GetString("lexicon_url"); url != "" {
			if err := dictionary.EnsureLexicon(ctx, path, url); err != nil {
				return nil, err
			}
		}
		lex, err := dictionary.LoadLexicon(path)
		if err != nil {
			return nil, err
		}
		return dictionary.NewIndex(lex), nil
	}

	im := dictionary.NewImporter(conn)
	im.Logger = a.logger
	idx, err := im.LoadIndex()
	if err != nil {
		return nil, err
	}
	if idx.Len() == 0 {
		a.logger.Printf("No lexicon imported; using the built-in sample lexicon")
		return dictionary.NewIndex(dictionary.Sample()), nil
	}
	return idx, nil
}

func (a *app) extractor(cmd *cobra.Command, conn *sql.DB) (*kofilter.Extractor, error) {
	cfg, err := a.filterConfig(cmd)
	if err != nil {
		return nil, err
	}
	dict, err := a.loadDictionary(cmd.Context(), conn)
	if err != nil {
		return nil, fmt.Errorf("failed to load lexicon: %w", err)
	}
	an, err := morph.NewKagomeAnalyzer(dict)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}
	return kofilter.New(dict, an, cfg)
}

// registerBleve makes the extractor available to bleve. The registry is
// process-wide, so a second registration keeps the first extractor.
func (a *app) registerBleve(ext *kofilter.Extractor) error {
	_, _, err := bleveko.RegisterPair(bleveAnalyzer, ext, a.verboseLogger(), a.rec)
	if errors.Is(err, bleveko.ErrRegistered) {
		return nil
	}
	return err
}
