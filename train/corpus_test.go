package train

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graehl/subword-nmt/errors"
)

func Test_LangFromPath(t *testing.T) {
	type tc struct {
		desc  string
		path  string
		field LangField
		lang  string
		fails bool
	}
	tcs := []tc{
		{
			desc:  "last dot field",
			path:  "data/corpus.en",
			field: LastDotField,
			lang:  "en",
		},
		{
			desc:  "last dot field with several dots",
			path:  "data/corpus.tok.de",
			field: LastDotField,
			lang:  "de",
		},
		{
			desc:  "second dot field",
			path:  "data/corpus.en.txt",
			field: SecondDotField,
			lang:  "en",
		},
		{
			desc:  "no suffix",
			path:  "data/corpus",
			field: LastDotField,
			fails: true,
		},
		{
			desc:  "trailing dot",
			path:  "data/corpus.",
			field: LastDotField,
			fails: true,
		},
		{
			desc:  "no second field",
			path:  "data/corpus",
			field: SecondDotField,
			fails: true,
		},
	}
	for i, tc := range tcs {
		lang, err := LangFromPath(tc.path, tc.field)
		if tc.fails {
			require.Error(t, err, "case %d: %s", i, tc.desc)
			assert.Equal(t, ErrInput, errors.Cause(err), "case %d: %s", i, tc.desc)
			continue
		}
		require.NoError(t, err, "case %d: %s", i, tc.desc)
		assert.Equal(t, tc.lang, lang, "case %d: %s", i, tc.desc)
	}
}

func Test_IsEncoded(t *testing.T) {
	assert.True(t, IsEncoded("data/corpus.bpe.en"))
	assert.True(t, IsEncoded("corpus.bpe.en.txt"))
	assert.False(t, IsEncoded("data/corpus.en"))
	assert.False(t, IsEncoded("data.bpe/corpus.en"))
}

func Test_EncodedPath(t *testing.T) {
	c := Corpus{Path: filepath.Join("data", "corpus.en"), Lang: "en"}
	assert.Equal(t, filepath.Join("data", "corpus.bpe.en"), c.EncodedPath(""))
	assert.Equal(t, filepath.Join("out", "corpus.bpe.en"), c.EncodedPath("out"))

	c = Corpus{Path: filepath.Join("data", "corpus.en.txt"), Lang: "en"}
	assert.Equal(t, filepath.Join("data", "corpus.bpe.en.txt"), c.EncodedPath(""))

	// language tag not present in the name: append the marker and tag
	c = Corpus{Path: filepath.Join("data", "corpus.txt"), Lang: "en"}
	assert.Equal(t, filepath.Join("data", "corpus.txt.bpe.en"), c.EncodedPath(""))
}

func Test_NewCorpus(t *testing.T) {
	c, err := NewCorpus("data/europarl.de", LastDotField)
	require.NoError(t, err)
	assert.Equal(t, Corpus{Path: "data/europarl.de", Lang: "de"}, c)

	_, err = NewCorpus("data/readme", LastDotField)
	assert.Error(t, err)
}
