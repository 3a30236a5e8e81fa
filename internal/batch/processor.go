// Package batch runs one operation over a set of input documents: it opens
// each document, unlocks it when needed, drives the engines and writes the
// outputs and report sidecars.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	failures "notary-splitter/internal/errors"
	"notary-splitter/internal/logger"
	"notary-splitter/internal/merge"
	"notary-splitter/internal/password"
	"notary-splitter/internal/pdf"
	"notary-splitter/internal/results"
	"notary-splitter/internal/types"
)

// Options configure a Processor.
// Password is tried first wherever a password is needed; empty means prompt.
type Options struct {
	Tolerance        float64
	PasswordAttempts int
	Password         string
	EncryptAES       bool
	KeyLength        int
}

// Summary counts the outcome of a batch.
type Summary struct {
	Operation types.Operation
	Processed int
	Skipped   int
	Failed    int
	Artifacts []*results.Artifact
}

// Processor runs batch operations. Documents are processed one at a time.
type Processor struct {
	codec    *pdf.Codec
	results  *results.ResultManager
	ledger   *failures.Ledger
	prompter password.Prompter
	opts     Options
	out      io.Writer
	now      func() time.Time
}

// NewProcessor creates a Processor. Reports are printed to out.
func NewProcessor(codec *pdf.Codec, rm *results.ResultManager, ledger *failures.Ledger, prompter password.Prompter, opts Options, out io.Writer) *Processor {
	if opts.PasswordAttempts < 1 {
		opts.PasswordAttempts = password.DefaultAttempts
	}
	if out == nil {
		out = io.Discard
	}
	if ledger == nil {
		ledger, _ = failures.NewLedger("")
	}
	return &Processor{
		codec:    codec,
		results:  rm,
		ledger:   ledger,
		prompter: prompter,
		opts:     opts,
		out:      out,
		now:      time.Now,
	}
}

// stageError tags a per-file failure with the step that failed.
type stageError struct {
	stage failures.FailureStage
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func failAt(stage failures.FailureStage, err error) error {
	return &stageError{stage: stage, err: err}
}

// ResolveInputs turns input paths into absolute paths, sorted and without
// duplicates.
func ResolveInputs(inputs []string) ([]string, error) {
	seen := make(map[string]struct{}, len(inputs))
	paths := make([]string, 0, len(inputs))
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return nil, types.NewAppErrorWithDetails(types.ErrInvalidInput, "invalid input path", in, err)
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		paths = append(paths, abs)
	}
	if len(paths) == 0 {
		return nil, types.NewAppError(types.ErrInvalidInput, "no input files", nil)
	}
	sort.Strings(paths)
	return paths, nil
}

// each runs fn for every resolved input. Per-file errors are recorded and the
// batch moves on; fatal errors and cancellation stop it.
func (p *Processor) each(ctx context.Context, op types.Operation, inputs []string, fn func(path string) error) (*Summary, error) {
	paths, err := ResolveInputs(inputs)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Operation: op}
	before := len(p.results.ListArtifacts())
	defer func() {
		sum.Artifacts = p.results.ListArtifacts()[before:]
	}()

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		logger.Info("processing document", logger.String("operation", string(op)), logger.String("file", path))
		err := fn(path)
		if err == nil {
			sum.Processed++
			if rerr := p.ledger.Resolve(path); rerr != nil {
				logger.Warn("failed to update failure ledger", logger.Err(rerr))
			}
			continue
		}
		if types.IsFatal(err) {
			logger.Error("aborting batch", err, logger.String("file", path))
			return sum, err
		}

		if types.IsSkip(err) {
			sum.Skipped++
			fmt.Fprintln(p.out, err.Error())
			logger.Info("document skipped", logger.String("file", path), logger.String("reason", err.Error()))
			continue
		}

		sum.Failed++
		stage := failures.StageOpen
		var se *stageError
		if errors.As(err, &se) {
			stage = se.stage
		}
		fmt.Fprintf(p.out, "Error: %s: %v\n", filepath.Base(path), err)
		logger.Error("document failed", err, logger.String("file", path), logger.String("stage", string(stage)))
		if rerr := p.ledger.Record(path, op, stage, err); rerr != nil {
			logger.Warn("failed to update failure ledger", logger.Err(rerr))
		}
	}
	return sum, nil
}

// open reads path and unlocks it with the password retry helper when it is
// protected. Running out of attempts is fatal.
func (p *Processor) open(path string) (*pdf.Document, error) {
	doc, err := p.codec.Open(path)
	if err != nil {
		return nil, failAt(failures.StageOpen, types.NewAppError(types.ErrUnreadable, "cannot read document", err))
	}
	if !doc.Locked() {
		return doc, nil
	}
	if err := p.unlock(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (p *Processor) unlock(doc *pdf.Document) error {
	label := fmt.Sprintf("Enter password for %s", filepath.Base(doc.Path))
	prompter := password.Preset(p.opts.Password, p.prompter)

	auth, err := password.Authenticate(prompter, label, doc.Unlock, p.opts.PasswordAttempts)
	if err != nil {
		return failAt(failures.StageDecrypt, types.NewAppError(types.ErrUnreadable, "cannot decrypt document", err))
	}
	if !auth.OK() {
		return types.NewAppErrorWithDetails(types.ErrPasswordExhausted,
			fmt.Sprintf("%d password attempts failed, aborting", auth.Attempts), doc.Path, nil)
	}
	return nil
}

// write stores one output through the artifact writer, tagging failures
// with the write stage.
func (p *Processor) write(path string, kind results.ArtifactKind, source string, pages int, fn func(io.Writer) error) (*results.Artifact, error) {
	a, err := p.results.Write(path, kind, source, pages, fn)
	if err != nil {
		return nil, failAt(failures.StageWrite, types.NewAppErrorWithDetails(types.ErrWrite, "cannot write output", filepath.Base(path), err))
	}
	return a, nil
}

// Merge concatenates inputs in the given order, duplicates included, into a
// timestamped file.
func (p *Processor) Merge(ctx context.Context, inputs []string) (*Summary, error) {
	paths := make([]string, 0, len(inputs))
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return nil, types.NewAppErrorWithDetails(types.ErrInvalidInput, "invalid input path", in, err)
		}
		paths = append(paths, abs)
	}

	engine := &merge.Engine{Codec: p.codec, Prompter: p.prompter, Attempts: p.opts.PasswordAttempts}
	res, err := engine.Prepare(ctx, paths, p.opts.Password)
	if res != nil {
		for _, w := range res.Warnings {
			fmt.Fprintln(p.out, w)
		}
		for _, s := range res.Skipped {
			if rerr := p.ledger.Record(s.Path, types.OpMerge, failures.StageOpen, s.Err); rerr != nil {
				logger.Warn("failed to update failure ledger", logger.Err(rerr))
			}
		}
	}
	if err != nil {
		return nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, types.NewAppError(types.ErrInternal, "cannot determine working directory", err)
	}
	out := p.results.PathIn(cwd, merge.OutputName(p.now()))

	fmt.Fprintf(p.out, "merging %d file(s) into %s\n", len(res.Inputs), filepath.Base(out))
	a, err := p.results.Write(out, results.KindMerged, "", res.PageCount, func(w io.Writer) error {
		return engine.Write(res, w)
	})
	if err != nil {
		if rerr := p.ledger.Record(out, types.OpMerge, failures.StageMerge, err); rerr != nil {
			logger.Warn("failed to update failure ledger", logger.Err(rerr))
		}
		return nil, types.NewAppErrorWithDetails(types.ErrWrite, "cannot write merged file", filepath.Base(out), err)
	}
	fmt.Fprintf(p.out, "creating %s numPages: %d\n", a.Name(), a.Pages)

	return &Summary{
		Operation: types.OpMerge,
		Processed: len(res.Inputs),
		Failed:    len(res.Skipped),
		Artifacts: []*results.Artifact{a},
	}, nil
}
