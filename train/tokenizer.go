package train

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/graehl/subword-nmt/errors"
)

// DefaultLangEnv is the environment variable an external tokenizer receives
// the corpus language in.
const DefaultLangEnv = "TOKENIZER_LANG"

// Tokenizer is the pluggable pre-tokenization collaborator: it reads raw
// text and writes whitespace-tokenized text, one sentence per line.
type Tokenizer interface {
	Tokenize(ctx context.Context, lang string, r io.Reader, w io.Writer) error
}

// Passthrough is for corpora that are already tokenized.
type Passthrough struct{}

// Tokenize copies the input unchanged.
func (Passthrough) Tokenize(ctx context.Context, lang string, r io.Reader, w io.Writer) error {
	_, err := io.Copy(w, r)
	return err
}

// ExecTokenizer runs an external tokenizer command per language: raw text on
// stdin, tokenized text on stdout, the language passed in the environment.
type ExecTokenizer struct {
	// Command is the tokenizer argv.
	Command []string
	// LangEnv is the environment variable carrying the language;
	// DefaultLangEnv if empty.
	LangEnv string
}

// Tokenize runs the command. A non-zero exit is an ErrToolInvocation and
// aborts the batch.
func (t ExecTokenizer) Tokenize(ctx context.Context, lang string, r io.Reader, w io.Writer) error {
	if len(t.Command) == 0 {
		return errors.Wrapf(ErrToolInvocation, "no tokenizer command configured")
	}
	langEnv := t.LangEnv
	if langEnv == "" {
		langEnv = DefaultLangEnv
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Command[0], t.Command[1:]...)
	cmd.Stdin = r
	cmd.Stdout = w
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), langEnv+"="+lang)

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(ErrToolInvocation, "tokenizer %v for language %s: %v: %s",
			t.Command, lang, err, stderr.String())
	}
	return nil
}
