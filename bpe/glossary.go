package bpe

import (
	"regexp"
	"strings"

	"github.com/graehl/subword-nmt/errors"
)

// Glossary matches spans that segmentation must leave alone: a matched span
// is emitted as one piece, never merged with its neighbors and never re-split
// by the vocabulary fallback.
type Glossary struct {
	re *regexp.Regexp
}

// NewGlossary compiles a glossary from literal terms and regular-expression
// patterns. Both lists empty yields a nil Glossary.
func NewGlossary(terms, patterns []string) (*Glossary, error) {
	parts := make([]string, 0, len(terms)+len(patterns))
	for _, term := range terms {
		parts = append(parts, regexp.QuoteMeta(term))
	}
	parts = append(parts, patterns...)
	if len(parts) == 0 {
		return nil, nil
	}
	re, err := regexp.Compile("(" + strings.Join(parts, "|") + ")")
	if err != nil {
		return nil, errors.Wrapf(err, "compiling glossary")
	}
	return &Glossary{re: re}, nil
}

// glossarySegment is one span of a word: either glossarized (left alone) or
// plain (segmented normally).
type glossarySegment struct {
	text        string
	glossarized bool
}

// isolate splits a word around every glossary match: with glossary USA the
// word 1934USABUSA becomes [1934, USA, B, USA].
func (g *Glossary) isolate(word string) []glossarySegment {
	locs := g.re.FindAllStringIndex(word, -1)
	if len(locs) == 0 {
		return []glossarySegment{{text: word}}
	}
	segs := make([]glossarySegment, 0, 2*len(locs)+1)
	prev := 0
	for _, loc := range locs {
		if loc[0] > prev {
			segs = append(segs, glossarySegment{text: word[prev:loc[0]]})
		}
		if loc[1] > loc[0] {
			segs = append(segs, glossarySegment{text: word[loc[0]:loc[1]], glossarized: true})
		}
		prev = loc[1]
	}
	if prev < len(word) {
		segs = append(segs, glossarySegment{text: word[prev:]})
	}
	return segs
}

// isolate falls through to a single plain segment when the model carries no
// glossary.
func (m *Model) isolate(word string) []glossarySegment {
	if m.glossary == nil {
		return []glossarySegment{{text: word}}
	}
	return m.glossary.isolate(word)
}
