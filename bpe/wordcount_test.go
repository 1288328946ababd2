package bpe

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_CountTokens(t *testing.T) {
	counts, err := CountTokens(strings.NewReader("low lower low\n\nnewest  low\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"low": 3, "lower": 1, "newest": 1}, counts)
}

func Test_ReadWordCounts(t *testing.T) {
	counts, err := ReadWordCounts(strings.NewReader("low 5\nnewest 6\n\nlow 2\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"low": 7, "newest": 6}, counts)

	_, err = ReadWordCounts(strings.NewReader("low five\n"))
	assert.Error(t, err)

	_, err = ReadWordCounts(strings.NewReader("low 5 extra\n"))
	assert.Error(t, err)
}

func Test_WriteWordCounts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWordCounts(&buf, map[string]int{"b": 2, "a": 2, "c": 3}))
	assert.Equal(t, "c 3\na 2\nb 2\n", buf.String(), "descending count, ties by symbol")
}

func Test_FilterMinCount(t *testing.T) {
	counts := map[string]int{"a": 1, "b": 2, "c": 5}
	assert.Equal(t, counts, FilterMinCount(counts, 1))
	assert.Equal(t, map[string]int{"b": 2, "c": 5}, FilterMinCount(counts, 2))
	assert.Equal(t, map[string]int{}, FilterMinCount(counts, 10))
}

func Test_SumCounts(t *testing.T) {
	dst := map[string]int{"a": 1}
	SumCounts(dst, map[string]int{"a": 2, "b": 3})
	assert.Equal(t, map[string]int{"a": 3, "b": 3}, dst)
}
