package train

import (
	"path/filepath"
	"strings"

	"github.com/graehl/subword-nmt/errors"
)

// EncodedInfix marks a filename as already BPE-encoded.
const EncodedInfix = ".bpe."

// LangField selects which part of a corpus filename carries the language
// tag. Both conventions occur in the wild.
type LangField int

const (
	// LastDotField takes the suffix after the last dot: "corpus.en" -> en.
	LastDotField LangField = iota
	// SecondDotField takes the second dot-separated field:
	// "corpus.en.txt" -> en.
	SecondDotField
)

// Corpus is one input file with its language tag. The tag is derived once at
// ingestion; nothing downstream re-parses paths.
type Corpus struct {
	Path string
	Lang string
}

// NewCorpus derives the language tag from the filename.
func NewCorpus(path string, field LangField) (Corpus, error) {
	lang, err := LangFromPath(path, field)
	if err != nil {
		return Corpus{}, err
	}
	return Corpus{Path: path, Lang: lang}, nil
}

// LangFromPath recovers the language tag from a corpus filename.
func LangFromPath(path string, field LangField) (string, error) {
	base := filepath.Base(path)
	switch field {
	case SecondDotField:
		parts := strings.Split(base, ".")
		if len(parts) < 2 || parts[1] == "" {
			return "", errors.Wrapf(ErrInput, "no language field in filename %q", base)
		}
		return parts[1], nil
	default:
		idx := strings.LastIndex(base, ".")
		if idx < 0 || idx == len(base)-1 {
			return "", errors.Wrapf(ErrInput, "no language suffix in filename %q", base)
		}
		return base[idx+1:], nil
	}
}

// IsEncoded reports whether a file already carries the encoded marker in its
// name, i.e. re-encoding it would double-apply the model.
func IsEncoded(path string) bool {
	return strings.Contains(filepath.Base(path), EncodedInfix)
}

// EncodedPath is where the encoded version of the corpus is written: the
// ".bpe." infix is inserted before the language suffix, in outputDir or, if
// empty, next to the input.
func (c Corpus) EncodedPath(outputDir string) string {
	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(c.Path)
	}
	return filepath.Join(dir, encodedName(filepath.Base(c.Path), c.Lang))
}

func encodedName(base, lang string) string {
	if strings.HasSuffix(base, "."+lang) {
		return base[:len(base)-len(lang)-1] + EncodedInfix + lang
	}
	if idx := strings.Index(base, "."+lang+"."); idx >= 0 {
		return base[:idx] + ".bpe" + base[idx:]
	}
	return base + EncodedInfix + lang
}
