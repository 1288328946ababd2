package train

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/graehl/subword-nmt/bpe"
	"github.com/graehl/subword-nmt/errors"
	"github.com/graehl/subword-nmt/fileutil"
	"github.com/graehl/subword-nmt/workerpool"
)

// Orchestrator drives learning and application of segmentation models across
// N parallel corpora, one per language.
type Orchestrator struct {
	cfg Config
	fs  afero.Fs
	log *zap.SugaredLogger
	tok Tokenizer
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithFs replaces the filesystem, e.g. with afero.NewMemMapFs in tests.
func WithFs(fs afero.Fs) Option {
	return func(o *Orchestrator) { o.fs = fs }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = l.Sugar() }
}

// WithTokenizer sets the pre-tokenization collaborator; the default treats
// corpora as already tokenized.
func WithTokenizer(t Tokenizer) Option {
	return func(o *Orchestrator) { o.tok = t }
}

// New validates the configuration and builds an Orchestrator.
func New(cfg Config, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		cfg: cfg,
		fs:  afero.NewOsFs(),
		log: zap.NewNop().Sugar(),
		tok: Passthrough{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Corpora derives language tags for a set of corpus paths.
func (o *Orchestrator) Corpora(paths []string) ([]Corpus, error) {
	corpora := make([]Corpus, 0, len(paths))
	for _, p := range paths {
		c, err := NewCorpus(p, o.cfg.LangField)
		if err != nil {
			return nil, err
		}
		corpora = append(corpora, c)
	}
	return corpora, nil
}

/// Learn trains segmentation models over the corpora and persists them: in
// joint mode one shared codes file and one vocabulary per language, in
// separate mode one codes file and one vocabulary per language. Any corpus
// failure aborts the whole batch.
func (o *Orchestrator) Learn(ctx context.Context, corpora []Corpus) error {
	if len(corpora) == 0 {
		return errors.Wrapf(ErrInput, "no corpora to learn from")
	}

	counts, err := o.countAll(ctx, corpora)
	if err != nil {
		return err
	}

	if o.cfg.Joint {
		return o.learnJoint(ctx, corpora, counts)
	}
	return o.learnSeparate(ctx, corpora, counts)
}

// countAll builds the per-corpus frequency tables, in parallel across
// languages since the scans are independent.
func (o *Orchestrator) countAll(ctx context.Context, corpora []Corpus) ([]map[string]int, error) {
	counts := make([]map[string]int, len(corpora))
	pool := workerpool.NewWithCtx(ctx, o.cfg.concurrency())
	defer pool.Stop()

	jobs := make([]workerpool.Job, 0, len(corpora))
	for i, c := range corpora {
		i, c := i, c
		jobs = append(jobs, func() error {
			wc, err := o.countCorpus(ctx, c)
			if err != nil {
				return err
			}
			counts[i] = wc
			return nil
		})
	}
	pool.AddBlocking(jobs)
	if err := pool.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (o *Orchestrator) countCorpus(ctx context.Context, c Corpus) (map[string]int, error) {
	f, err := o.fs.Open(c.Path)
	if err != nil {
		return nil, errors.Wrapf(ErrInput, "corpus %s (%s): %v", c.Path, c.Lang, err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	// unblocks a tokenizer stuck in pw.Write if counting bails out early
	defer pr.Close()
	go func() {
		pw.CloseWithError(o.tok.Tokenize(ctx, c.Lang, f, pw))
	}()

	counts, err := bpe.CountTokens(pr)
	if err != nil {
		return nil, errors.WrapfOrNil(err, "corpus %s (%s)", c.Path, c.Lang)
	}
	if len(counts) == 0 {
		return nil, errors.Wrapf(ErrInput, "corpus %s (%s) is empty", c.Path, c.Lang)
	}

	counts = bpe.FilterMinCount(counts, o.cfg.MinCount)
	if len(counts) == 0 {
		return nil, errors.Wrapf(ErrInput, "corpus %s (%s): no word meets min-count %d", c.Path, c.Lang, o.cfg.MinCount)
	}
	o.log.Infow("counted corpus", "path", c.Path, "lang", c.Lang, "words", len(counts))
	return counts, nil
}

func (o *Orchestrator) learnJoint(ctx context.Context, corpora []Corpus, counts []map[string]int) error {
	joint := make(map[string]int)
	for _, wc := range counts {
		bpe.SumCounts(joint, wc)
	}

	codes, err := o.learnCodes(joint)
	if err != nil {
		return err
	}
	if err := bpe.SaveCodes(o.fs, o.cfg.CodesPath(""), o.model(codes, "")); err != nil {
		return err
	}
	o.log.Infow("wrote joint codes", "path", o.cfg.CodesPath(""), "merges", len(codes))

	// vocabulary re-scans are independent across languages
	pool := workerpool.NewWithCtx(ctx, o.cfg.concurrency())
	defer pool.Stop()
	jobs := make([]workerpool.Job, 0, len(corpora))
	for i, c := range corpora {
		i, c := i, c
		jobs = append(jobs, func() error {
			return o.writeVocab(c, codes, counts[i])
		})
	}
	pool.AddBlocking(jobs)
	return pool.Wait()
}

func (o *Orchestrator) learnSeparate(ctx context.Context, corpora []Corpus, counts []map[string]int) error {
	for i, c := range corpora {
		codes, err := o.learnCodes(counts[i])
		if err != nil {
			return errors.WrapfOrNil(err, "learning %s", c.Lang)
		}
		if err := bpe.SaveCodes(o.fs, o.cfg.CodesPath(c.Lang), o.model(codes, c.Lang)); err != nil {
			return err
		}
		o.log.Infow("wrote codes", "lang", c.Lang, "path", o.cfg.CodesPath(c.Lang), "merges", len(codes))
		if err := o.writeVocab(c, codes, counts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) learnCodes(counts map[string]int) ([]bpe.MergedPair, error) {
	builder := bpe.NewBuilder(o.cfg.Version)
	builder.AddCounts(counts)
	err := builder.Merge(bpe.MergeOptions{
		Operations:   o.cfg.Operations,
		MinFrequency: o.cfg.MinFrequency,
		Concurrency:  o.cfg.concurrency(),
		Logger:       o.log,
	})
	if err != nil {
		return nil, err
	}
	return builder.MergeLog(), nil
}

func (o *Orchestrator) model(codes []bpe.MergedPair, lang string) *bpe.Model {
	return bpe.NewModel(o.cfg.Version, codes, bpe.ModelOptions{
		Separator: o.cfg.Separator,
		Marker:    o.cfg.Marker(lang),
		Tool:      o.cfg.Tool,
	})
}

func (o *Orchestrator) writeVocab(c Corpus, codes []bpe.MergedPair, counts map[string]int) error {
	vocab := bpe.BuildVocabulary(o.model(codes, c.Lang), counts)
	if err := bpe.SaveVocab(o.fs, o.cfg.VocabPath(c.Lang), vocab); err != nil {
		return err
	}
	o.log.Infow("wrote vocabulary", "lang", c.Lang, "path", o.cfg.VocabPath(c.Lang), "symbols", len(vocab))
	return nil
}

// Encode re-encodes every corpus with its trained model, writing one
// ".bpe."-infixed file per input. Files already carrying the marker are
// skipped when the idempotency guard is on. Models are loaded up front so a
// missing or empty model aborts before anything is written.
func (o *Orchestrator) Encode(ctx context.Context, corpora []Corpus) error {
	if len(corpora) == 0 {
		return errors.Wrapf(ErrInput, "no corpora to encode")
	}

	var todo []Corpus
	for _, c := range corpora {
		if o.cfg.ExcludeEncoded && IsEncoded(c.Path) {
			o.log.Infow("skipping already-encoded file", "path", c.Path)
			continue
		}
		todo = append(todo, c)
	}

	segmenters := make(map[string]*bpe.Segmenter)
	for _, c := range todo {
		if _, ok := segmenters[c.Lang]; ok {
			continue
		}
		seg, err := o.loadSegmenter(c.Lang)
		if err != nil {
			return err
		}
		segmenters[c.Lang] = seg
	}

	// each file is a pure function of its read-only model
	pool := workerpool.NewWithCtx(ctx, o.cfg.concurrency())
	defer pool.Stop()
	jobs := make([]workerpool.Job, 0, len(todo))
	for _, c := range todo {
		c := c
		jobs = append(jobs, func() error {
			return o.encodeFile(ctx, segmenters[c.Lang], c)
		})
	}
	pool.AddBlocking(jobs)
	return pool.Wait()
}

func (o *Orchestrator) loadSegmenter(lang string) (*bpe.Segmenter, error) {
	codesLang := lang
	if o.cfg.Joint {
		codesLang = ""
	}
	model, err := bpe.LoadModel(o.fs, o.cfg.CodesPath(codesLang), o.cfg.VocabPath(lang), bpe.ModelOptions{
		Separator: o.cfg.Separator,
		Marker:    o.cfg.Marker(lang),
		Threshold: o.cfg.VocabThreshold,
	})
	if err != nil {
		return nil, errors.WrapfOrNil(err, "model for language %s", lang)
	}
	return bpe.NewSegmenter(model), nil
}

func (o *Orchestrator) encodeFile(ctx context.Context, seg *bpe.Segmenter, c Corpus) error {
	in, err := o.fs.Open(c.Path)
	if err != nil {
		return errors.Wrapf(ErrInput, "corpus %s (%s): %v", c.Path, c.Lang, err)
	}
	defer in.Close()

	pr, pw := io.Pipe()
	// unblocks a tokenizer stuck in pw.Write if the write side fails early
	defer pr.Close()
	go func() {
		pw.CloseWithError(o.tok.Tokenize(ctx, c.Lang, in, pw))
	}()

	out := c.EncodedPath(o.cfg.OutputDir)
	err = fileutil.AtomicWrite(o.fs, out, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		sc := bufio.NewScanner(pr)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			if _, err := fmt.Fprintln(bw, seg.Segment(sc.Text())); err != nil {
				return err
			}
		}
		if err := sc.Err(); err != nil {
			return errors.WrapfOrNil(err, "corpus %s (%s)", c.Path, c.Lang)
		}
		return bw.Flush()
	})
	if err != nil {
		return err
	}
	o.log.Infow("encoded corpus", "path", c.Path, "lang", c.Lang, "output", out)
	return nil
}
