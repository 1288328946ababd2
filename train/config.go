package train

import (
	"path/filepath"
	"runtime"

	"github.com/graehl/subword-nmt/bpe"
	"github.com/graehl/subword-nmt/errors"
)

// Error kinds; all of them abort the current batch step. They are
// deterministic user or configuration errors, so there is no retry path.
var (
	// ErrConfiguration is a missing or invalid parameter.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrInput is an unreadable or empty corpus.
	ErrInput = errors.New("invalid corpus input")
	// ErrToolInvocation is an external tokenizer failure.
	ErrToolInvocation = errors.New("tool invocation failed")
)

// Config is the process-wide configuration for learning and applying
// segmentation models across parallel corpora. It is built once per
// invocation and never mutated.
type Config struct {
	// Operations is the number of merges to learn.
	Operations int
	// VocabThreshold is the minimum trusted symbol frequency during
	// application; rarer symbols are re-split.
	VocabThreshold int
	// MinFrequency stops learning early once the best pair is rarer.
	MinFrequency int
	// MinCount drops words rarer than this before learning.
	MinCount int
	// Separator marks token-internal subword boundaries.
	Separator string
	// Version selects the end-of-word convention for learned codes.
	Version bpe.Version
	// Joint learns one shared merge list across all corpora instead of one
	// per language.
	Joint bool
	// LangField selects how the language tag is recovered from filenames.
	LangField LangField
	// DefaultMarker is the marker convention used for languages without an
	// entry in Markers.
	DefaultMarker bpe.MarkerConvention
	// Markers overrides the marker convention per language, so corpora
	// encoded under the legacy and the new convention can coexist in one
	// batch (both-legacy, first-legacy-second-new, both-new).
	Markers map[string]bpe.MarkerConvention

	// ModelDir is where codes and vocabulary files live.
	ModelDir string
	// ModelPrefix names the model files: <prefix>.codes[.<lang>] and
	// <prefix>.vocab.<lang>.
	ModelPrefix string
	// OutputDir receives encoded corpora; empty means next to the input.
	OutputDir string
	// ExcludeEncoded skips input files already carrying the encoded marker
	// in their name, preventing double application.
	ExcludeEncoded bool

	// Concurrency bounds parallel per-language and per-file work.
	Concurrency int
	// Tool is the manifest identifier persisted inside codes files.
	Tool string
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Operations:     50000,
		VocabThreshold: 40,
		MinFrequency:   20,
		MinCount:       2,
		Separator:      bpe.DefaultSeparator,
		Version:        bpe.Version02,
		ModelDir:       ".",
		ModelPrefix:    "bpe",
		ExcludeEncoded: true,
		Concurrency:    runtime.NumCPU(),
		Tool:           "subword-nmt 0.2",
	}
}

// Validate reports configuration errors before any corpus is touched.
func (c Config) Validate() error {
	if c.Operations <= 0 {
		return errors.Wrapf(ErrConfiguration, "operations must be positive, got %d", c.Operations)
	}
	if c.VocabThreshold < 0 {
		return errors.Wrapf(ErrConfiguration, "vocabulary threshold must not be negative, got %d", c.VocabThreshold)
	}
	if c.MinFrequency < 0 || c.MinCount < 0 {
		return errors.Wrapf(ErrConfiguration, "min-frequency/min-count must not be negative")
	}
	if c.Separator == "" {
		return errors.Wrapf(ErrConfiguration, "separator must not be empty")
	}
	if c.Version != bpe.Version01 && c.Version != bpe.Version02 {
		return errors.Wrapf(ErrConfiguration, "unknown codes version")
	}
	return nil
}

// Marker returns the marker convention for a language.
func (c Config) Marker(lang string) bpe.MarkerConvention {
	if m, ok := c.Markers[lang]; ok {
		return m
	}
	return c.DefaultMarker
}

// CodesPath is the merge-rule file for a language; with an empty language
// (joint mode) the shared codes file.
func (c Config) CodesPath(lang string) string {
	name := c.ModelPrefix + ".codes"
	if lang != "" {
		name += "." + lang
	}
	return filepath.Join(c.ModelDir, name)
}

// VocabPath is the vocabulary file for a language.
func (c Config) VocabPath(lang string) string {
	return filepath.Join(c.ModelDir, c.ModelPrefix+".vocab."+lang)
}

func (c Config) concurrency() int {
	if c.Concurrency < 1 {
		return 1
	}
	return c.Concurrency
}
