package bpe

import (
	"container/heap"
	"sync"

	"go.uber.org/zap"

	"github.com/graehl/subword-nmt/errors"
	"github.com/graehl/subword-nmt/workerpool"
)

// Builder accumulates word frequencies and learns an ordered merge list by
// repeatedly merging the most frequent adjacent symbol pair.
type Builder struct {
	m        sync.Mutex
	version  Version
	words    map[string]*tokenizedWord
	mergeLog []MergedPair
	logger   *zap.SugaredLogger
}

// NewBuilder returns a Builder whose words are split under the given
// end-of-word convention.
func NewBuilder(version Version) *Builder {
	return &Builder{
		version: version,
		words:   make(map[string]*tokenizedWord),
	}
}

// Add counts each word once. Empty words are ignored.
func (b *Builder) Add(words []string) {
	for _, w := range words {
		if w == "" {
			continue
		}
		b.getTokenizedWord(w).incr(1)
	}
}

// AddCounts adds pre-aggregated word frequencies, e.g. a frequency table
// from CountTokens or the summed tables of several corpora in joint mode.
// Empty words and non-positive counts are ignored.
func (b *Builder) AddCounts(counts map[string]int) {
	for w, c := range counts {
		if w == "" || c <= 0 {
			continue
		}
		b.getTokenizedWord(w).incr(c)
	}
}

func (b *Builder) getTokenizedWord(w string) *tokenizedWord {
	b.m.Lock()
	defer b.m.Unlock()
	t, ok := b.words[w]
	if !ok {
		t = newTokenizedWord(splitWord(w, b.version))
		b.words[w] = t
	}
	return t
}

// Words returns the number of distinct words seen.
func (b *Builder) Words() int {
	return len(b.words)
}

// MergeLog returns the learned merges in priority order.
func (b *Builder) MergeLog() []MergedPair {
	return append([]MergedPair(nil), b.mergeLog...)
}

// CurrentTokens returns each current symbol and its frequency across all
// words, weighted by word count. Symbols still carry the end-of-word
// sentinel.
func (b *Builder) CurrentTokens() map[string]int {
	tokens := make(map[string]int)
	for _, tw := range b.words {
		for _, tok := range tw.tokenized {
			tokens[tok] += tw.wordCount
		}
	}
	return tokens
}

// Model assembles a Model from the learned merges.
func (b *Builder) Model(opts ModelOptions) *Model {
	return NewModel(b.version, b.mergeLog, opts)
}

// MergeOptions configures a learning run.
type MergeOptions struct {
	// Operations is the number of merges to learn; 0 means merge until
	// MinFrequency stops the run.
	Operations int
	// MinFrequency stops learning once the best pair's aggregate frequency
	// falls below it; that pair is not merged. Defaults to 2.
	MinFrequency int
	// Concurrency bounds the workers applying each merge across words.
	Concurrency int
	// Logger enables progress logging when set.
	Logger *zap.SugaredLogger
}

// Merge learns up to opts.Operations merges. The pair statistics are kept in
// a heap and updated incrementally around each replacement site, so the run
// does not rescan the corpus per merge.
func (b *Builder) Merge(opts MergeOptions) error {
	if opts.Concurrency == 0 {
		opts.Concurrency = 1
	}
	if opts.MinFrequency <= 0 {
		opts.MinFrequency = 2
	}
	b.logger = opts.Logger

	b.printf("constructing pairs for %d words...", len(b.words))
	pairs := make(map[MergedPair]int)
	for _, tw := range b.words {
		for p, locs := range tw.tokenPairs {
			pairs[p] += tw.wordCount * len(locs)
		}
	}

	pac := &pairCountHeap{}
	pairToPac := make(map[MergedPair]*pairAndCount, len(pairs))
	for p, c := range pairs {
		c := &pairAndCount{pair: p, count: c, index: pac.Len()}
		pairToPac[p] = c
		*pac = append(*pac, c)
	}
	heap.Init(pac)

	pool := workerpool.New(opts.Concurrency)
	defer pool.Stop()

	for i := 0; opts.Operations == 0 || i < opts.Operations; i++ {
		if pac.Len() == 0 {
			b.printf("[iter: %d] no pairs left, stopping", i)
			return nil
		}
		top := heap.Pop(pac).(*pairAndCount)
		pairCount := top.count
		pairToMerge := top.pair

		if pairCount < opts.MinFrequency {
			b.printf("[iter: %d] no pair has frequency >= %d, stopping", i, opts.MinFrequency)
			return nil
		}

		b.printf("[iter: %d] merging (%s,%s) with frequency %d", i, pairToMerge.Left, pairToMerge.Right, pairCount)
		b.mergeLog = append(b.mergeLog, pairToMerge)

		// Merge the pair wherever it occurs, folding the pair-count deltas
		// from each changed word back into the heap.
		var wg sync.WaitGroup
		wg.Add(1)
		deltasChan := make(chan map[MergedPair]int, 10*opts.Concurrency)
		go func() {
			defer wg.Done()
			for deltas := range deltasChan {
				for p, delta := range deltas {
					if delta == 0 {
						continue
					}
					if cur, ok := pairToPac[p]; ok {
						cur.count += delta
						if cur.index >= 0 {
							heap.Fix(pac, cur.index)
						}
						continue
					}
					newPac := &pairAndCount{pair: p, count: delta}
					pairToPac[p] = newPac
					heap.Push(pac, newPac)
				}
			}
		}()

		var jobs []workerpool.Job
		for _, tw := range b.words {
			if !tw.contains(pairToMerge) {
				continue
			}
			localTW := tw
			jobs = append(jobs, func() error {
				localTW.mergePair(pairToMerge)
				deltasChan <- localTW.findPairDeltas()
				return nil
			})
		}

		pool.AddBlocking(jobs)
		err := pool.Wait()
		close(deltasChan)
		wg.Wait()
		if err != nil {
			return err
		}

		// The merged pair no longer occurs anywhere, so its incrementally
		// updated count must be zero; anything else means the bookkeeping
		// has drifted from the corpus.
		if c := pairToPac[pairToMerge].count; c != 0 {
			return errors.Errorf("pair (%s,%s) has count %d after merge, originally %d",
				pairToMerge.Left, pairToMerge.Right, c, pairCount)
		}
		delete(pairToPac, pairToMerge)
	}

	return nil
}

func (b *Builder) printf(msg string, args ...interface{}) {
	if b.logger != nil {
		b.logger.Infof(msg, args...)
	}
}

// --

type tokenizedWord struct {
	tokenized  []string
	tokenPairs map[MergedPair][][2]int
	wordCount  int

	origPairs map[MergedPair][][2]int
}

func newTokenizedWord(symbols []string) *tokenizedWord {
	tw := &tokenizedWord{
		tokenized: append([]string{}, symbols...),
	}
	tw.computePairs()
	return tw
}

func (t *tokenizedWord) contains(p MergedPair) bool {
	_, ok := t.tokenPairs[p]
	return ok
}

func (t *tokenizedWord) incr(val int) {
	t.wordCount += val
}

func (t *tokenizedWord) mergePair(p MergedPair) {
	t.origPairs = make(map[MergedPair][][2]int, len(t.tokenPairs))
	for k, v := range t.tokenPairs {
		t.origPairs[k] = v
	}

	for {
		locs := t.tokenPairs[p]
		if len(locs) == 0 {
			return
		}

		at := locs[0]
		orig := t.tokenized
		merged := make([]string, 0, len(orig)-1)
		merged = append(merged, orig[:at[0]]...)
		merged = append(merged, orig[at[0]]+orig[at[1]])
		merged = append(merged, orig[at[1]+1:]...)
		t.tokenized = merged
		t.computePairs()
	}
}

// findPairDeltas reports, per pair, the change in weighted occurrence count
// caused by the last mergePair call.
func (t *tokenizedWord) findPairDeltas() map[MergedPair]int {
	deltas := make(map[MergedPair]int)
	for p, origLocs := range t.origPairs {
		deltas[p] = (len(t.tokenPairs[p]) - len(origLocs)) * t.wordCount
	}
	for p, newLocs := range t.tokenPairs {
		if _, ok := deltas[p]; !ok {
			deltas[p] = len(newLocs) * t.wordCount
		}
	}
	return deltas
}

func (t *tokenizedWord) computePairs() {
	t.tokenPairs = make(map[MergedPair][][2]int, len(t.tokenized)-1)
	for idx := 1; idx < len(t.tokenized); idx++ {
		p := MergedPair{Left: t.tokenized[idx-1], Right: t.tokenized[idx]}
		t.tokenPairs[p] = append(t.tokenPairs[p], [2]int{idx - 1, idx})
	}
}

// --

type pairAndCount struct {
	pair  MergedPair
	count int
	index int
}

// pairCountHeap is a max-heap on (count, pair): frequency first, ties broken
// by the lexicographically greatest pair so merge order is a total order.
type pairCountHeap []*pairAndCount

func (h pairCountHeap) Len() int { return len(h) }

func (h pairCountHeap) Less(i, j int) bool {
	if h[i].count == h[j].count {
		return h[j].pair.less(h[i].pair)
	}
	return h[i].count > h[j].count
}

func (h pairCountHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *pairCountHeap) Push(x interface{}) {
	pac := x.(*pairAndCount)
	pac.index = len(*h)
	*h = append(*h, pac)
}

func (h *pairCountHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	x.index = -1
	*h = old[:n-1]
	return x
}
