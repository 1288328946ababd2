package bpe

import "strings"

// EndOfWord is the sentinel that marks the word-final symbol, so that merges
// learned at the end of a word are distinct from word-internal ones.
const EndOfWord = "</w>"

// Version selects the end-of-word handling of a codes file, mirroring the
// "#version:" header of persisted merge rules.
type Version int

const (
	// Version01 keeps the sentinel as its own final symbol: "l o w </w>".
	Version01 Version = iota + 1
	// Version02 fuses the sentinel onto the last rune: "l o w</w>".
	Version02
)

func (v Version) String() string {
	if v == Version01 {
		return "0.1"
	}
	return "0.2"
}

// ParseVersion parses the textual form used in codes file headers.
func ParseVersion(s string) (Version, bool) {
	switch strings.TrimSpace(s) {
	case "0.1":
		return Version01, true
	case "0.2":
		return Version02, true
	}
	return 0, false
}

// MarkerConvention controls which side of a subword piece the separator
// marker is attached to when segmented pieces are written out.
type MarkerConvention int

const (
	// SuffixMarker appends the separator to every non-final piece:
	// "lo@@ wer". This is the legacy convention.
	SuffixMarker MarkerConvention = iota
	// PrefixMarker prepends the separator to every non-initial piece:
	// "lo @@wer".
	PrefixMarker
)

func (m MarkerConvention) String() string {
	if m == PrefixMarker {
		return "prefix"
	}
	return "suffix"
}

// splitWord turns a word into its initial symbol sequence: one symbol per
// rune, with the end-of-word sentinel placed according to the version.
func splitWord(w string, v Version) []string {
	runes := strings.Split(w, "")
	if v == Version01 {
		return append(runes, EndOfWord)
	}
	runes[len(runes)-1] += EndOfWord
	return runes
}

// stripSentinel removes the end-of-word sentinel from a final symbol
// sequence before pieces are emitted.
func stripSentinel(syms []string) []string {
	last := len(syms) - 1
	if syms[last] == EndOfWord {
		return syms[:last]
	}
	syms[last] = strings.TrimSuffix(syms[last], EndOfWord)
	return syms
}

// mergeAll replaces every adjacent occurrence of p in syms left to right.
func mergeAll(syms []string, p MergedPair) []string {
	out := make([]string, 0, len(syms))
	for i := 0; i < len(syms); {
		if i+1 < len(syms) && syms[i] == p.Left && syms[i+1] == p.Right {
			out = append(out, p.Left+p.Right)
			i += 2
			continue
		}
		out = append(out, syms[i])
		i++
	}
	return out
}
