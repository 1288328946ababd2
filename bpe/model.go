package bpe

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"

	"github.com/graehl/subword-nmt/errors"
	"github.com/graehl/subword-nmt/fileutil"
)

// ErrModel is the cause of any failure to load a usable segmentation model,
// e.g. a missing, empty or malformed codes or vocabulary file.
var ErrModel = errors.New("invalid segmentation model")

const (
	versionHeader = "#version:"
	toolHeader    = "#tool:"

	// DefaultSeparator marks a subword boundary introduced by segmentation.
	DefaultSeparator = "@@"
)

// MergedPair is one learned merge: the two parent symbols, in order.
type MergedPair struct {
	Left  string
	Right string
}

// Joined returns the symbol the merge produces.
func (p MergedPair) Joined() string {
	return p.Left + p.Right
}

// less orders pairs lexicographically; the learner breaks frequency ties by
// the greatest pair under this order so runs are reproducible.
func (p MergedPair) less(q MergedPair) bool {
	if p.Left != q.Left {
		return p.Left < q.Left
	}
	return p.Right < q.Right
}

// Model is a trained segmentation model: an ordered merge list, the marker
// and end-of-word conventions it was trained under, and optionally a
// vocabulary with a frequency threshold driving fallback splitting. A Model
// is immutable after construction and safe for concurrent readers.
type Model struct {
	version   Version
	tool      string
	separator string
	marker    MarkerConvention

	codes    []MergedPair
	priority map[MergedPair]int
	reverse  map[string]MergedPair

	vocab     map[string]int
	threshold int
	glossary  *Glossary
}

// ModelOptions collects the model parameters beyond the merge list itself.
type ModelOptions struct {
	// Separator marks internal subword boundaries; DefaultSeparator if empty.
	Separator string
	// Marker selects the side of a piece the separator attaches to.
	Marker MarkerConvention
	// Vocab maps written-form symbols to training-corpus frequencies.
	Vocab map[string]int
	// Threshold is the minimum trusted vocabulary frequency; pieces below it
	// are recursively re-split. Zero disables fallback.
	Threshold int
	// Tool identifies the producing tool, persisted in the codes header so a
	// model directory is relocatable without out-of-band records.
	Tool string
	// Glossary spans pass through segmentation untouched.
	Glossary *Glossary
}

// NewModel builds a Model from an ordered merge list. Duplicate pairs keep
// their first (highest-priority) occurrence.
func NewModel(version Version, codes []MergedPair, opts ModelOptions) *Model {
	if opts.Separator == "" {
		opts.Separator = DefaultSeparator
	}
	m := &Model{
		version:   version,
		tool:      opts.Tool,
		separator: opts.Separator,
		marker:    opts.Marker,
		codes:     append([]MergedPair(nil), codes...),
		priority:  make(map[MergedPair]int, len(codes)),
		reverse:   make(map[string]MergedPair, len(codes)),
		vocab:     opts.Vocab,
		threshold: opts.Threshold,
		glossary:  opts.Glossary,
	}
	for i, p := range m.codes {
		if _, ok := m.priority[p]; !ok {
			m.priority[p] = i
		}
		if _, ok := m.reverse[p.Joined()]; !ok {
			m.reverse[p.Joined()] = p
		}
	}
	return m
}

// Codes returns the merge list in priority order.
func (m *Model) Codes() []MergedPair {
	return append([]MergedPair(nil), m.codes...)
}

// Version returns the end-of-word convention of the model.
func (m *Model) Version() Version { return m.version }

// Separator returns the subword boundary marker.
func (m *Model) Separator() string { return m.separator }

// Marker returns the marker attachment convention.
func (m *Model) Marker() MarkerConvention { return m.marker }

// Threshold returns the vocabulary trust threshold.
func (m *Model) Threshold() int { return m.threshold }

// Tool returns the tool identifier recorded in the model, if any.
func (m *Model) Tool() string { return m.tool }

// Glossary returns the pass-through glossary, if any.
func (m *Model) Glossary() *Glossary { return m.glossary }

// VocabCount returns the training frequency of a written-form symbol.
func (m *Model) VocabCount(written string) int {
	return m.vocab[written]
}

// written attaches the separator to a piece according to its position in the
// word and the model's marker convention.
func (m *Model) written(piece string, initial, final bool) string {
	if m.marker == PrefixMarker {
		if initial {
			return piece
		}
		return m.separator + piece
	}
	if final {
		return piece
	}
	return piece + m.separator
}

// WriteCodes writes the merge list with its version and tool headers, one
// pair per line in priority order.
func (m *Model) WriteCodes(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s %s\n", versionHeader, m.version)
	if m.tool != "" {
		fmt.Fprintf(bw, "%s %s\n", toolHeader, m.tool)
	}
	for _, p := range m.codes {
		fmt.Fprintf(bw, "%s %s\n", p.Left, p.Right)
	}
	return bw.Flush()
}

// SubsetCodes returns only the merges needed to produce the given set of
// written-form symbols: the merges whose result is in the set, plus the
// transitive prerequisites of those merges.
func (m *Model) SubsetCodes(vocab map[string]struct{}) []MergedPair {
	need := make(map[string]struct{})
	var prereqs func(s string)
	prereqs = func(s string) {
		if len(s) <= 1 {
			return
		}
		if _, ok := need[s]; ok {
			return
		}
		need[s] = struct{}{}
		if pair, ok := m.reverse[s]; ok {
			prereqs(pair.Left)
			prereqs(pair.Right)
		}
	}
	for joined, pair := range m.reverse {
		if _, ok := vocab[m.writtenJoined(joined)]; ok {
			need[joined] = struct{}{}
			prereqs(pair.Left)
			prereqs(pair.Right)
		}
	}
	var out []MergedPair
	for _, p := range m.codes {
		if _, ok := need[p.Joined()]; ok {
			out = append(out, p)
		}
	}
	return out
}

// writtenJoined is the written form a merged symbol would take in a
// vocabulary file: word-final symbols lose the sentinel, others carry the
// separator marker.
func (m *Model) writtenJoined(joined string) string {
	if strings.HasSuffix(joined, EndOfWord) {
		return strings.TrimSuffix(joined, EndOfWord)
	}
	if m.marker == PrefixMarker {
		return m.separator + joined
	}
	return joined + m.separator
}

// CodesFile is the parsed content of a persisted merge-rule file.
type CodesFile struct {
	Version Version
	Tool    string
	Pairs   []MergedPair
}

// ReadCodes parses a codes file. A missing version header means version 0.1,
// the convention of files written before headers existed.
func ReadCodes(r io.Reader) (CodesFile, error) {
	cf := CodesFile{Version: Version01}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), scanBuffer)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if line == 1 && strings.HasPrefix(text, versionHeader) {
			v, ok := ParseVersion(strings.TrimPrefix(text, versionHeader))
			if !ok {
				return cf, errors.Wrapf(ErrModel, "unknown codes version %q", text)
			}
			cf.Version = v
			continue
		}
		if strings.HasPrefix(text, toolHeader) {
			cf.Tool = strings.TrimSpace(strings.TrimPrefix(text, toolHeader))
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return cf, errors.Wrapf(ErrModel, "codes line %d: expected \"left right\", got %q", line, text)
		}
		cf.Pairs = append(cf.Pairs, MergedPair{Left: fields[0], Right: fields[1]})
	}
	if err := sc.Err(); err != nil {
		return cf, errors.Wrapf(err, "reading codes")
	}
	return cf, nil
}

// SaveCodes atomically writes the model's merge list to path.
func SaveCodes(fs afero.Fs, path string, m *Model) error {
	return fileutil.AtomicWrite(fs, path, m.WriteCodes)
}

// SaveVocab atomically writes a vocabulary to path, one "symbol count" line
// per entry in descending count order.
func SaveVocab(fs afero.Fs, path string, vocab map[string]int) error {
	return fileutil.AtomicWrite(fs, path, func(w io.Writer) error {
		return WriteWordCounts(w, vocab)
	})
}

// LoadModel reads a codes file and, if vocabPath is non-empty, a vocabulary
// file, and assembles a Model. Missing or empty files are ErrModel: an
// applier must never run against a model that only looks complete.
func LoadModel(fs afero.Fs, codesPath, vocabPath string, opts ModelOptions) (*Model, error) {
	f, err := fs.Open(codesPath)
	if err != nil {
		return nil, errors.Wrapf(ErrModel, "opening codes %s: %v", codesPath, err)
	}
	cf, err := ReadCodes(f)
	f.Close()
	if err != nil {
		return nil, errors.WrapfOrNil(err, "codes %s", codesPath)
	}
	if len(cf.Pairs) == 0 {
		return nil, errors.Wrapf(ErrModel, "codes %s: no merge rules", codesPath)
	}
	if opts.Tool == "" {
		opts.Tool = cf.Tool
	}

	if vocabPath != "" {
		vf, err := fs.Open(vocabPath)
		if err != nil {
			return nil, errors.Wrapf(ErrModel, "opening vocabulary %s: %v", vocabPath, err)
		}
		vocab, err := ReadWordCounts(vf)
		vf.Close()
		if err != nil {
			return nil, errors.Wrapf(ErrModel, "vocabulary %s: %v", vocabPath, err)
		}
		if len(vocab) == 0 {
			return nil, errors.Wrapf(ErrModel, "vocabulary %s: empty", vocabPath)
		}
		opts.Vocab = vocab
	}

	return NewModel(cf.Version, cf.Pairs, opts), nil
}
