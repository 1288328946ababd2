package bpe

import (
	"strings"
	"sync"
)

// Segmenter applies a trained Model to new text. Segmentation is a pure
// function of the model and the input word; the Segmenter only adds a cache,
// so one Segmenter (or several sharing a Model) may serve concurrent
// callers.
type Segmenter struct {
	model *Model

	m     sync.Mutex
	cache map[string][]string
}

// NewSegmenter returns a Segmenter over an immutable Model.
func NewSegmenter(m *Model) *Segmenter {
	return &Segmenter{
		model: m,
		cache: make(map[string][]string),
	}
}

// Model returns the segmenter's model.
func (s *Segmenter) Model() *Model {
	return s.model
}

// Segment segments one whitespace-tokenized line, joining the written pieces
// of every token with single spaces.
func (s *Segmenter) Segment(line string) string {
	var out []string
	for _, word := range strings.Fields(line) {
		out = append(out, s.SegmentWord(word)...)
	}
	return strings.Join(out, " ")
}

// SegmentWord segments a single token into written pieces: subword symbols
// with the separator marker attached per the model's convention. Glossary
// spans are isolated first and pass through as single pieces.
func (s *Segmenter) SegmentWord(word string) []string {
	if word == "" {
		return nil
	}
	s.m.Lock()
	cached, ok := s.cache[word]
	s.m.Unlock()
	if ok {
		return append([]string(nil), cached...)
	}

	var pieces []string
	for _, seg := range s.model.isolate(word) {
		if seg.glossarized {
			pieces = append(pieces, seg.text)
			continue
		}
		p := s.encode(seg.text)
		if s.model.threshold > 0 && s.model.vocab != nil {
			p = s.checkVocabAndSplit(p)
		}
		pieces = append(pieces, p...)
	}

	written := make([]string, len(pieces))
	for i, p := range pieces {
		written[i] = s.model.written(p, i == 0, i == len(pieces)-1)
	}

	s.m.Lock()
	s.cache[word] = written
	s.m.Unlock()
	return append([]string(nil), written...)
}

// encode applies the merge list greedily: of all adjacent pairs present in
// the current symbol sequence, the earliest-learned one is merged at every
// occurrence, until no adjacent pair is in the list. Returns bare pieces
// with the sentinel stripped.
func (s *Segmenter) encode(word string) []string {
	syms := splitWord(word, s.model.version)
	for len(syms) > 1 {
		best := -1
		var bestPair MergedPair
		for i := 0; i+1 < len(syms); i++ {
			p := MergedPair{Left: syms[i], Right: syms[i+1]}
			if pri, ok := s.model.priority[p]; ok && (best < 0 || pri < best) {
				best = pri
				bestPair = p
			}
		}
		if best < 0 {
			break
		}
		syms = mergeAll(syms, bestPair)
	}
	return stripSentinel(syms)
}

// checkVocabAndSplit re-splits every piece whose written form is rarer than
// the vocabulary threshold, so the output never contains symbols the model
// considers too rare to trust.
func (s *Segmenter) checkVocabAndSplit(pieces []string) []string {
	out := make([]string, 0, len(pieces))
	for i, p := range pieces {
		initial := i == 0
		final := i == len(pieces)-1
		if s.trusted(p, initial, final) {
			out = append(out, p)
			continue
		}
		out = s.recursiveSplit(out, p, initial, final)
	}
	return out
}

func (s *Segmenter) trusted(piece string, initial, final bool) bool {
	return s.model.VocabCount(s.model.written(piece, initial, final)) >= s.model.threshold
}

// recursiveSplit reverses the merge that produced an untrusted piece and
// recurses into the halves until every emitted piece is trusted or a merge
// origin no longer exists (single symbol).
func (s *Segmenter) recursiveSplit(out []string, piece string, initial, final bool) []string {
	var pair MergedPair
	var ok bool
	if final {
		pair, ok = s.model.reverse[piece+EndOfWord]
		if ok {
			pair.Right = strings.TrimSuffix(pair.Right, EndOfWord)
		}
	} else {
		pair, ok = s.model.reverse[piece]
	}
	if !ok || pair.Right == "" {
		return append(out, piece)
	}

	if s.trusted(pair.Left, initial, false) {
		out = append(out, pair.Left)
	} else {
		out = s.recursiveSplit(out, pair.Left, initial, false)
	}
	if s.trusted(pair.Right, false, final) {
		out = append(out, pair.Right)
	} else {
		out = s.recursiveSplit(out, pair.Right, false, final)
	}
	return out
}

// BuildVocabulary segments every word of a frequency table with a
// codes-only model (no threshold fallback) and accumulates written-form
// symbol frequencies: the per-language vocabulary emitted by learning.
func BuildVocabulary(m *Model, counts map[string]int) map[string]int {
	seg := NewSegmenter(m)
	vocab := make(map[string]int)
	for word, count := range counts {
		for _, piece := range seg.SegmentWord(word) {
			vocab[piece] += count
		}
	}
	return vocab
}
