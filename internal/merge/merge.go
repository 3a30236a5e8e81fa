// Package merge concatenates documents in the order they were given.
package merge

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"notary-splitter/internal/logger"
	"notary-splitter/internal/password"
	"notary-splitter/internal/pdf"
	"notary-splitter/internal/types"
)

// OutputName returns the merged file name for t, e.g. 2024315-9307_mergedFile.pdf.
// Fields are not zero padded.
func OutputName(t time.Time) string {
	return fmt.Sprintf("%d%d%d-%d%d%d_mergedFile.pdf",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// Canonical returns the absolute path of p with symlinks resolved. When the
// path cannot be resolved the cleaned absolute form is used.
func Canonical(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// DistinctCount returns how many different files paths refer to.
func DistinctCount(paths []string) int {
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		seen[Canonical(p)] = struct{}{}
	}
	return len(seen)
}

// Skipped is an input left out of the merge.
type Skipped struct {
	Path string
	Err  error
}

// Result is a merge ready to be written.
type Result struct {
	Inputs    []string // in merge order, duplicates kept
	Listed    int
	Distinct  int
	PageCount int
	Warnings  []string
	Skipped   []Skipped

	docs []*pdf.Document
}

// Duplicates reports whether some input was listed more than once.
func (r *Result) Duplicates() bool {
	return r.Distinct < r.Listed
}

// Engine opens and unlocks the inputs of a merge.
type Engine struct {
	Codec    *pdf.Codec
	Prompter password.Prompter
	Attempts int
}

// Prepare opens paths in order. Unreadable inputs are skipped. A protected
// input that cannot be unlocked aborts the merge with ErrPasswordExhausted.
// The same file listed twice is opened once.
func (e *Engine) Prepare(ctx context.Context, paths []string, presetPassword string) (*Result, error) {
	if len(paths) == 0 {
		return nil, types.NewAppError(types.ErrInvalidInput, "no input files to merge", nil)
	}

	res := &Result{Listed: len(paths), Distinct: DistinctCount(paths)}
	if res.Distinct < len(paths) {
		msg := fmt.Sprintf("Warning: duplicate input files detected (%d listed, %d distinct), merging all of them", len(paths), res.Distinct)
		res.Warnings = append(res.Warnings, msg)
		logger.Warn("duplicate merge inputs", logger.Int("listed", len(paths)), logger.Int("distinct", res.Distinct))
	}

	opened := make(map[string]*pdf.Document)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		key := Canonical(p)
		doc, ok := opened[key]
		if !ok {
			var err error
			doc, err = e.open(p, presetPassword)
			if types.IsFatal(err) {
				return nil, err
			}
			if err != nil {
				logger.Error("skipping merge input", err, logger.String("file", p))
				res.Skipped = append(res.Skipped, Skipped{Path: p, Err: err})
				res.Warnings = append(res.Warnings, fmt.Sprintf("Error: %v, skipping", err))
				continue
			}
			opened[key] = doc
		}

		res.Inputs = append(res.Inputs, p)
		res.PageCount += doc.PageCount()
		res.docs = append(res.docs, doc)
	}

	if len(res.docs) == 0 {
		return res, types.NewAppError(types.ErrInvalidInput, "none of the merge inputs could be read", nil)
	}
	return res, nil
}

func (e *Engine) open(path, presetPassword string) (*pdf.Document, error) {
	doc, err := e.Codec.Open(path)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrUnreadable, "cannot read document", path, err)
	}
	if !doc.Locked() {
		return doc, nil
	}

	label := fmt.Sprintf("Enter password for %s", filepath.Base(path))
	auth, err := password.Authenticate(password.Preset(presetPassword, e.Prompter), label, doc.Unlock, e.Attempts)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrUnreadable, "cannot decrypt document", path, err)
	}
	if !auth.OK() {
		return nil, types.NewAppErrorWithDetails(types.ErrPasswordExhausted, "password attempts exhausted, aborting merge", path, nil)
	}
	return doc, nil
}

// Write writes the merged document.
func (e *Engine) Write(res *Result, w io.Writer) error {
	return e.Codec.Merge(res.docs, w)
}
