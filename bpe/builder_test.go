package bpe

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// the classic rare-word corpus: frequencies chosen so merge order is forced
func corpusCounts() map[string]int {
	return map[string]int{
		"low":    5,
		"lower":  2,
		"newest": 6,
		"widest": 3,
	}
}

// expectedMerges is the merge order for corpusCounts with 10 operations:
// frequency ties break toward the lexicographically greatest pair.
var expectedMerges = []MergedPair{
	{"s", "t</w>"},
	{"e", "st</w>"},
	{"l", "o"},
	{"w", "est</w>"},
	{"n", "e"},
	{"ne", "west</w>"},
	{"lo", "w</w>"},
	{"w", "i"},
	{"wi", "d"},
	{"wid", "est</w>"},
}

func Test_MergeOrder(t *testing.T) {
	b := NewBuilder(Version02)
	b.AddCounts(corpusCounts())
	require.NoError(t, b.Merge(MergeOptions{Operations: 10}))
	assert.Equal(t, expectedMerges, b.MergeLog())
}

func Test_MergeDeterminism(t *testing.T) {
	var runs [][]byte
	for i := 0; i < 2; i++ {
		b := NewBuilder(Version02)
		b.AddCounts(corpusCounts())
		require.NoError(t, b.Merge(MergeOptions{Operations: 10, Concurrency: 4}))

		var buf bytes.Buffer
		require.NoError(t, b.Model(ModelOptions{Tool: "subword-nmt 0.2"}).WriteCodes(&buf))
		runs = append(runs, buf.Bytes())
	}
	assert.Equal(t, runs[0], runs[1], "independent runs must produce byte-identical codes")
}

func Test_MergeMinFrequency(t *testing.T) {
	b := NewBuilder(Version02)
	b.AddCounts(corpusCounts())
	// (s,t</w>) and (e,st</w>) have frequency 9; the next best pair (l,o)
	// has 7 and must not be merged.
	require.NoError(t, b.Merge(MergeOptions{Operations: 10, MinFrequency: 8}))
	assert.Equal(t, expectedMerges[:2], b.MergeLog())
}

func Test_MergeStopsOnSingletons(t *testing.T) {
	b := NewBuilder(Version02)
	b.Add([]string{"abc", "def"})
	// every pair occurs once; the default min frequency of 2 stops learning
	// before any merge
	require.NoError(t, b.Merge(MergeOptions{Operations: 10}))
	assert.Empty(t, b.MergeLog())
}

func Test_AddMatchesAddCounts(t *testing.T) {
	a := NewBuilder(Version02)
	a.Add([]string{"low", "low", "lower"})
	b := NewBuilder(Version02)
	b.AddCounts(map[string]int{"low": 2, "lower": 1})

	require.NoError(t, a.Merge(MergeOptions{Operations: 5}))
	require.NoError(t, b.Merge(MergeOptions{Operations: 5}))
	assert.Equal(t, a.MergeLog(), b.MergeLog())
}

func Test_EmptyWordsIgnored(t *testing.T) {
	b := NewBuilder(Version02)
	b.Add([]string{"", "low", "low"})
	b.AddCounts(map[string]int{"": 3, "lower": 1})
	assert.Equal(t, 2, b.Words())
	require.NoError(t, b.Merge(MergeOptions{Operations: 5}))
}

func Test_JointSingleCorpusMatchesSeparate(t *testing.T) {
	counts := corpusCounts()

	separate := NewBuilder(Version02)
	separate.AddCounts(counts)
	require.NoError(t, separate.Merge(MergeOptions{Operations: 10}))

	joint := NewBuilder(Version02)
	summed := make(map[string]int)
	SumCounts(summed, counts)
	joint.AddCounts(summed)
	require.NoError(t, joint.Merge(MergeOptions{Operations: 10}))

	assert.Equal(t, separate.MergeLog(), joint.MergeLog())
}

func Test_CurrentTokens(t *testing.T) {
	b := NewBuilder(Version02)
	b.AddCounts(corpusCounts())
	require.NoError(t, b.Merge(MergeOptions{Operations: 10}))

	expected := map[string]int{
		"newest</w>": 6,
		"low</w>":    5,
		"widest</w>": 3,
		"lo":         2,
		"w":          2,
		"e":          2,
		"r</w>":      2,
	}
	assert.Equal(t, expected, b.CurrentTokens())
}

func Test_BuildVocabulary(t *testing.T) {
	b := NewBuilder(Version02)
	b.AddCounts(corpusCounts())
	require.NoError(t, b.Merge(MergeOptions{Operations: 10}))

	vocab := BuildVocabulary(b.Model(ModelOptions{}), corpusCounts())
	expected := map[string]int{
		"newest": 6,
		"low":    5,
		"widest": 3,
		"lo@@":   2,
		"w@@":    2,
		"e@@":    2,
		"r":      2,
	}
	assert.Equal(t, expected, vocab)
}
