package train

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/graehl/subword-nmt/bpe"
	"github.com/graehl/subword-nmt/errors"
)

func Test_DefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 50000, cfg.Operations)
	assert.Equal(t, 40, cfg.VocabThreshold)
	assert.Equal(t, 20, cfg.MinFrequency)
	assert.Equal(t, 2, cfg.MinCount)
	assert.Equal(t, "@@", cfg.Separator)
	assert.True(t, cfg.ExcludeEncoded)
}

func Test_ConfigValidate(t *testing.T) {
	for _, mod := range []func(*Config){
		func(c *Config) { c.Operations = 0 },
		func(c *Config) { c.VocabThreshold = -1 },
		func(c *Config) { c.MinFrequency = -1 },
		func(c *Config) { c.MinCount = -1 },
		func(c *Config) { c.Separator = "" },
		func(c *Config) { c.Version = 0 },
	} {
		cfg := DefaultConfig()
		mod(&cfg)
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Equal(t, ErrConfiguration, errors.Cause(err))
	}
}

func Test_ConfigPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelDir = "models"
	assert.Equal(t, filepath.Join("models", "bpe.codes"), cfg.CodesPath(""))
	assert.Equal(t, filepath.Join("models", "bpe.codes.en"), cfg.CodesPath("en"))
	assert.Equal(t, filepath.Join("models", "bpe.vocab.de"), cfg.VocabPath("de"))
}

func Test_ConfigMarkers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, bpe.SuffixMarker, cfg.Marker("en"))

	// first-legacy-second-new: per-language overrides
	cfg.Markers = map[string]bpe.MarkerConvention{"de": bpe.PrefixMarker}
	assert.Equal(t, bpe.SuffixMarker, cfg.Marker("en"))
	assert.Equal(t, bpe.PrefixMarker, cfg.Marker("de"))

	// both-new
	cfg.DefaultMarker = bpe.PrefixMarker
	cfg.Markers = nil
	assert.Equal(t, bpe.PrefixMarker, cfg.Marker("en"))
}
