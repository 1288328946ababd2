package bpe

// Entry is one vocabulary record: an output symbol in its written form and
// its frequency in the training corpus.
type Entry struct {
	Symbol string
	Count  int
}

// ByCount implements sort.Interface ordering by descending count, with ties
// broken by the symbol so vocabulary files are reproducible.
type ByCount []Entry

// Len implements sort.Interface
func (b ByCount) Len() int { return len(b) }

// Less implements sort.Interface
func (b ByCount) Less(i, j int) bool {
	if b[i].Count == b[j].Count {
		return b[i].Symbol < b[j].Symbol
	}
	return b[i].Count > b[j].Count
}

// Swap implements sort.Interface
func (b ByCount) Swap(i, j int) {
	b[i], b[j] = b[j], b[i]
}
