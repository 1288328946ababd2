package bpe

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/graehl/subword-nmt/errors"
)

// scanBuffer bounds the line length CountTokens accepts; corpus lines are
// sentences, not documents.
const scanBuffer = 1 << 20

// CountTokens reads whitespace-tokenized lines and returns word frequencies.
// Content never fails, only read errors do.
func CountTokens(r io.Reader) (map[string]int, error) {
	counts := make(map[string]int)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), scanBuffer)
	for sc.Scan() {
		for _, w := range strings.Fields(sc.Text()) {
			counts[w]++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading corpus")
	}
	return counts, nil
}

// ReadWordCounts parses dictionary-style input, one "word count" per line.
func ReadWordCounts(r io.Reader) (map[string]int, error) {
	counts := make(map[string]int)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), scanBuffer)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, errors.Errorf("word counts line %d: expected \"word count\", got %q", line, sc.Text())
		}
		c, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, errors.Wrapf(err, "word counts line %d", line)
		}
		counts[fields[0]] += c
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading word counts")
	}
	return counts, nil
}

// WriteWordCounts writes "word count" lines in descending count order; ties
// are broken by the word so output is deterministic.
func WriteWordCounts(w io.Writer, counts map[string]int) error {
	for _, e := range sortedEntries(counts) {
		if _, err := fmt.Fprintf(w, "%s %d\n", e.Symbol, e.Count); err != nil {
			return err
		}
	}
	return nil
}

// FilterMinCount drops words whose count is below min.
func FilterMinCount(counts map[string]int, min int) map[string]int {
	if min <= 1 {
		return counts
	}
	out := make(map[string]int, len(counts))
	for w, c := range counts {
		if c >= min {
			out[w] = c
		}
	}
	return out
}

// SumCounts adds src into dst, for joint learning over several corpora.
func SumCounts(dst, src map[string]int) {
	for w, c := range src {
		dst[w] += c
	}
}

func sortedEntries(counts map[string]int) []Entry {
	entries := make([]Entry, 0, len(counts))
	for s, c := range counts {
		entries = append(entries, Entry{Symbol: s, Count: c})
	}
	sort.Sort(ByCount(entries))
	return entries
}
