package main

import (
	"io"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/spf13/afero"

	"github.com/graehl/subword-nmt/bpe"
	"github.com/graehl/subword-nmt/errors"
	"github.com/graehl/subword-nmt/train"
)

func maybeQuit(err error) {
	if err != nil {
		log.Fatalln(err)
	}
}

func main() {
	args := struct {
		Input        []string `arg:"-i,separate" help:"input corpora; stdin when empty"`
		Output       string   `arg:"-o" help:"codes file to write"`
		Vocab        []string `arg:"separate" help:"vocabulary file to write per input corpus"`
		Operations   int      `arg:"-s" help:"number of merge operations to learn"`
		MinFrequency int      `help:"stop once the best pair is rarer than this"`
		MinCount     int      `help:"drop words rarer than this before learning"`
		Separator    string   `help:"subword boundary marker"`
		PrefixMarker bool     `help:"attach the marker to the following piece instead of the preceding one"`
		Version01    bool     `help:"keep the end-of-word sentinel as its own symbol"`
		DictInput    bool     `help:"inputs are \"word count\" lines instead of raw text"`
		Tool         string   `help:"tool manifest recorded in the codes file"`
		Verbose      bool     `arg:"-v"`
	}{
		Output:       "bpe.codes",
		Operations:   10000,
		MinFrequency: 2,
		MinCount:     1,
		Separator:    bpe.DefaultSeparator,
		Tool:         "subword-nmt 0.2",
	}
	arg.MustParse(&args)

	if len(args.Vocab) > 0 && len(args.Vocab) != len(args.Input) {
		log.Fatalf("got %d vocabulary paths for %d input corpora", len(args.Vocab), len(args.Input))
	}

	version := bpe.Version02
	if args.Version01 {
		version = bpe.Version01
	}
	marker := bpe.SuffixMarker
	if args.PrefixMarker {
		marker = bpe.PrefixMarker
	}

	perInput, err := readCounts(args.Input, args.DictInput, args.MinCount)
	maybeQuit(err)

	builder := bpe.NewBuilder(version)
	for _, counts := range perInput {
		builder.AddCounts(counts)
	}
	log.Println("learning merges over", builder.Words(), "distinct words")

	opts := bpe.MergeOptions{
		Operations:   args.Operations,
		MinFrequency: args.MinFrequency,
		Concurrency:  runtime.NumCPU(),
	}
	if args.Verbose {
		opts.Logger = train.NewLogger().Sugar()
	}
	start := time.Now()
	maybeQuit(builder.Merge(opts))
	log.Println("learned", len(builder.MergeLog()), "merges in", time.Since(start))

	model := builder.Model(bpe.ModelOptions{
		Separator: args.Separator,
		Marker:    marker,
		Tool:      args.Tool,
	})

	fs := afero.NewOsFs()
	maybeQuit(bpe.SaveCodes(fs, args.Output, model))
	log.Println("wrote codes", args.Output)

	// joint learning: shared codes, one re-segmented vocabulary per corpus
	for i, path := range args.Vocab {
		maybeQuit(bpe.SaveVocab(fs, path, bpe.BuildVocabulary(model, perInput[i])))
		log.Println("wrote vocabulary", path)
	}
}

func readCounts(paths []string, dictInput bool, minCount int) ([]map[string]int, error) {
	read := func(r io.Reader) (map[string]int, error) {
		if dictInput {
			return bpe.ReadWordCounts(r)
		}
		return bpe.CountTokens(r)
	}

	if len(paths) == 0 {
		counts, err := read(os.Stdin)
		if err != nil {
			return nil, errors.WrapfOrNil(err, "stdin")
		}
		return []map[string]int{bpe.FilterMinCount(counts, minCount)}, nil
	}

	perInput := make([]map[string]int, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.WrapfOrNil(err, "opening %s", path)
		}
		counts, err := read(f)
		f.Close()
		if err != nil {
			return nil, errors.WrapfOrNil(err, "reading %s", path)
		}
		perInput = append(perInput, bpe.FilterMinCount(counts, minCount))
	}
	return perInput, nil
}
