package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/spf13/afero"

	"github.com/graehl/subword-nmt/bpe"
	"github.com/graehl/subword-nmt/errors"
)

const scanBuffer = 1 << 20

func maybeQuit(err error) {
	if err != nil {
		log.Fatalln(err)
	}
}

func main() {
	args := struct {
		Codes        string   `arg:"-c,required" help:"codes file from learnbpe"`
		Vocabulary   string   `help:"vocabulary file; enables the frequency fallback"`
		Threshold    int      `arg:"-t" help:"minimum vocabulary count for a piece to stand"`
		Input        string   `arg:"-i" help:"text to segment; stdin when empty"`
		Output       string   `arg:"-o" help:"segmented output; stdout when empty"`
		Separator    string   `help:"subword boundary marker"`
		PrefixMarker bool     `help:"attach the marker to the following piece instead of the preceding one"`
		Glossaries   []string `arg:"separate" help:"literal term segmentation must leave alone; repeatable"`
		RGlossaries  []string `arg:"separate" help:"regex pattern segmentation must leave alone; repeatable"`
	}{
		Separator: bpe.DefaultSeparator,
	}
	arg.MustParse(&args)

	marker := bpe.SuffixMarker
	if args.PrefixMarker {
		marker = bpe.PrefixMarker
	}

	glossary, err := bpe.NewGlossary(args.Glossaries, args.RGlossaries)
	maybeQuit(err)

	model, err := bpe.LoadModel(afero.NewOsFs(), args.Codes, args.Vocabulary, bpe.ModelOptions{
		Separator: args.Separator,
		Marker:    marker,
		Threshold: args.Threshold,
		Glossary:  glossary,
	})
	maybeQuit(err)
	seg := bpe.NewSegmenter(model)

	in := io.Reader(os.Stdin)
	if args.Input != "" {
		f, err := os.Open(args.Input)
		maybeQuit(err)
		defer f.Close()
		in = f
	}

	if args.Output == "" {
		maybeQuit(segmentLines(seg, in, os.Stdout))
		return
	}
	maybeQuit(withCreated(args.Output, func(w io.Writer) error {
		return segmentLines(seg, in, w)
	}))
}

// withCreated runs fn over a freshly created file; a close failure surfaces
// alongside any write error.
func withCreated(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer errors.Defer(&err, f.Close)
	return fn(f)
}

func segmentLines(seg *bpe.Segmenter, r io.Reader, w io.Writer) error {
	bw := bufio.NewWriter(w)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), scanBuffer)
	for sc.Scan() {
		if _, err := fmt.Fprintln(bw, seg.Segment(sc.Text())); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return bw.Flush()
}
