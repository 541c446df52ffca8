package kofilter

import (
	"fmt"
	"strconv"
	"strings"
)

// Config selects which terms the extractor emits.
type Config struct {
	// Bigrammable emits overlapping two-character terms for spans the
	// dictionary does not know.
	Bigrammable bool `mapstructure:"bigrammable"`
	// HasOrigin emits the untouched surface of every native token.
	HasOrigin bool `mapstructure:"hasOrigin"`
	// HasCompoundNoun emits a compound stem as a whole besides its parts.
	HasCompoundNoun bool `mapstructure:"hasCNoun"`
	// ExactMatch decompounds a stem only when every part is a dictionary word.
	ExactMatch  bool `mapstructure:"exactMatch"`
	IncPosition bool `mapstructure:"incPosition"`
	// QueryMode keeps only the best parse and avoids standalone single syllables.
	QueryMode    bool `mapstructure:"queryMode"`
	DoDecompound bool `mapstructure:"doDecompound"`
	// WordSpacing lets the segmenter split tokens that look like several
	// words written without spaces.
	WordSpacing bool `mapstructure:"wordSpacing"`
}

// DefaultConfig returns the index-time defaults.
func DefaultConfig() Config {
	return Config{
		Bigrammable:     true,
		HasOrigin:       true,
		HasCompoundNoun: true,
		IncPosition:     true,
		DoDecompound:    true,
	}
}

// Normalize resolves dependent options. Without decompounding the compound
// itself must be emitted and bigrams are disabled.
func (c Config) Normalize() Config {
	if !c.DoDecompound {
		c.HasCompoundNoun = true
		c.Bigrammable = false
	}
	return c
}

// FromParams builds a config from string parameters such as those of an
// analyzer definition, starting from DefaultConfig. Unknown keys are ignored.
func FromParams(params map[string]string) (Config, error) {
	return DefaultConfig().Apply(params)
}

// Apply overrides c with boolean string parameters. Keys match the
// mapstructure names, ignoring case.
func (c Config) Apply(params map[string]string) (Config, error) {
	fields := map[string]*bool{
		"bigrammable":  &c.Bigrammable,
		"hasorigin":    &c.HasOrigin,
		"hascnoun":     &c.HasCompoundNoun,
		"exactmatch":   &c.ExactMatch,
		"incposition":  &c.IncPosition,
		"querymode":    &c.QueryMode,
		"dodecompound": &c.DoDecompound,
		"wordspacing":  &c.WordSpacing,
	}
	for key, raw := range params {
		dst, ok := fields[strings.ToLower(key)]
		if !ok {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid value %q for %s: %w", raw, key, err)
		}
		*dst = v
	}
	return c.Normalize(), nil
}
