package main

import (
	"context"
	"log"
	"strings"

	"github.com/alexflint/go-arg"

	"github.com/graehl/subword-nmt/bpe"
	"github.com/graehl/subword-nmt/train"
)

func maybeQuit(err error) {
	if err != nil {
		log.Fatalln(err)
	}
}

func main() {
	args := struct {
		Input          []string `arg:"positional,required" help:"corpus files named <name>.<lang>"`
		Learn          bool     `help:"train models before encoding"`
		Joint          bool     `help:"learn one shared merge list across all corpora"`
		Operations     int      `arg:"-s" help:"number of merge operations to learn"`
		VocabThreshold int      `arg:"-t" help:"minimum vocabulary count for a piece to stand"`
		MinFrequency   int      `help:"stop learning once the best pair is rarer than this"`
		MinCount       int      `help:"drop words rarer than this before learning"`
		Separator      string   `help:"subword boundary marker"`
		Version01      bool     `help:"keep the end-of-word sentinel as its own symbol"`
		PrefixMarker   []string `arg:"separate" help:"language using the prefixed-marker convention; repeatable, \"*\" for all"`
		SecondDot      bool     `help:"take the language tag from the second dot field instead of the last"`
		ModelDir       string   `help:"directory holding codes and vocabulary files"`
		ModelPrefix    string   `help:"model file name prefix"`
		OutputDir      string   `arg:"-o" help:"directory for encoded corpora; empty writes next to the input"`
		IncludeEncoded bool     `help:"re-encode files already carrying the encoded marker"`
		Tokenizer      string   `help:"external tokenizer command run per corpus"`
		Concurrency    int      `arg:"-j"`
	}{}
	defaults := train.DefaultConfig()
	args.Operations = defaults.Operations
	args.VocabThreshold = defaults.VocabThreshold
	args.MinFrequency = defaults.MinFrequency
	args.MinCount = defaults.MinCount
	args.Separator = defaults.Separator
	args.ModelDir = defaults.ModelDir
	args.ModelPrefix = defaults.ModelPrefix
	args.Concurrency = defaults.Concurrency
	arg.MustParse(&args)

	cfg := defaults
	cfg.Operations = args.Operations
	cfg.VocabThreshold = args.VocabThreshold
	cfg.MinFrequency = args.MinFrequency
	cfg.MinCount = args.MinCount
	cfg.Separator = args.Separator
	cfg.Joint = args.Joint
	cfg.ModelDir = args.ModelDir
	cfg.ModelPrefix = args.ModelPrefix
	cfg.OutputDir = args.OutputDir
	cfg.ExcludeEncoded = !args.IncludeEncoded
	cfg.Concurrency = args.Concurrency
	if args.Version01 {
		cfg.Version = bpe.Version01
	}
	if args.SecondDot {
		cfg.LangField = train.SecondDotField
	}
	for _, lang := range args.PrefixMarker {
		if lang == "*" {
			cfg.DefaultMarker = bpe.PrefixMarker
			continue
		}
		if cfg.Markers == nil {
			cfg.Markers = make(map[string]bpe.MarkerConvention)
		}
		cfg.Markers[lang] = bpe.PrefixMarker
	}

	opts := []train.Option{train.WithLogger(train.NewLogger())}
	if args.Tokenizer != "" {
		opts = append(opts, train.WithTokenizer(train.ExecTokenizer{
			Command: strings.Fields(args.Tokenizer),
		}))
	}

	o, err := train.New(cfg, opts...)
	maybeQuit(err)

	corpora, err := o.Corpora(args.Input)
	maybeQuit(err)

	ctx := context.Background()
	if args.Learn {
		maybeQuit(o.Learn(ctx, corpora))
	}
	maybeQuit(o.Encode(ctx, corpora))
}
