package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	failures "notary-splitter/internal/errors"
	"notary-splitter/internal/logger"
	"notary-splitter/internal/partition"
	"notary-splitter/internal/password"
	"notary-splitter/internal/pdf"
	"notary-splitter/internal/results"
	"notary-splitter/internal/split"
	"notary-splitter/internal/types"
)

const (
	reportSuffix    = "_logfile.txt"
	encryptedSuffix = "_enc.pdf"
	decryptedSuffix = "_dec.pdf"
)

// Classify writes one document per page-size class for every input, plus a
// report sidecar with the reassembly runs.
func (p *Processor) Classify(ctx context.Context, inputs []string) (*Summary, error) {
	return p.each(ctx, types.OpClassify, inputs, p.classifyOne)
}

func (p *Processor) classifyOne(path string) error {
	doc, err := p.open(path)
	if err != nil {
		return err
	}

	info, err := doc.Info()
	if err != nil {
		logger.Warn("document info unavailable", logger.String("file", path), logger.Err(err))
	}

	plan, err := partition.Partition(doc, partition.Options{Tolerance: p.opts.Tolerance})
	if err != nil {
		return failAt(failures.StageClassify, types.NewAppError(types.ErrUnreadable, "cannot classify pages", err))
	}

	meta := partition.Metadata{
		Title:    info.Title,
		Subject:  info.Subject,
		Author:   info.Author,
		Producer: info.Producer,
		Creator:  info.Creator,
	}
	report := partition.NewReport(filepath.Base(path), meta, doc.PasswordRequired(), plan)

	var firstErr error
	for _, b := range plan.Buckets() {
		specs := make([]pdf.PageSpec, 0, len(b.Pages))
		for _, ref := range b.Pages {
			specs = append(specs, pdf.PageSpec{Page: ref.Page, Rotation: ref.Rotation})
		}

		out := p.results.PathFor(path, "_"+b.Class.Suffix()+".pdf")
		a, err := p.write(out, results.KindClass, path, len(specs), func(w io.Writer) error {
			return doc.Extract(specs, w)
		})
		if err != nil {
			report.AddWarning(fmt.Sprintf("Error: %v", err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		report.AddFile(a.Name())
	}

	if err := p.writeReport(path, report.Render, report.AddFile); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// writeReport prints the report and persists it next to the outputs. The
// sidecar lists itself, so it is registered before rendering.
func (p *Processor) writeReport(path string, render func() string, addFile func(string)) error {
	sidecar := p.results.PathFor(path, reportSuffix)
	addFile(filepath.Base(sidecar))
	text := render()
	fmt.Fprint(p.out, text)

	if _, err := p.results.WriteText(sidecar, results.KindReport, path, text); err != nil {
		return failAt(failures.StageWrite, types.NewAppErrorWithDetails(types.ErrWrite, "cannot write report", filepath.Base(sidecar), err))
	}
	return nil
}

// Split cuts every input into parts consecutive documents of near-equal
// size. A part count below 2 is rejected before any file is touched.
func (p *Processor) Split(ctx context.Context, inputs []string, parts int) (*Summary, error) {
	if parts <= 1 {
		return nil, types.NewAppErrorWithDetails(types.ErrInvalidInput,
			"split count must be greater than 1", fmt.Sprintf("got %d", parts), nil)
	}
	return p.each(ctx, types.OpSplit, inputs, func(path string) error {
		return p.splitOne(path, parts)
	})
}

func (p *Processor) splitOne(path string, parts int) error {
	doc, err := p.open(path)
	if err != nil {
		return err
	}

	plan := split.NewPlan(doc.PageCount(), parts)
	report := &split.Report{Source: filepath.Base(path), PageCount: doc.PageCount(), Plan: plan}
	if plan.PagesPerPart == 0 {
		msg := fmt.Sprintf("Warning: %d page(s) cannot fill %d parts, empty parts are not written", plan.TotalPages, parts)
		report.Warnings = append(report.Warnings, msg)
		logger.Warn("split has empty parts", logger.String("file", path), logger.Int("pages", plan.TotalPages), logger.Int("parts", parts))
	}

	var firstErr error
	for i, r := range plan.Ranges() {
		if r.Len() == 0 {
			continue
		}
		specs := make([]pdf.PageSpec, 0, r.Len())
		for page := r.Start; page <= r.End; page++ {
			specs = append(specs, pdf.PageSpec{Page: page})
		}

		out := p.results.PathFor(path, fmt.Sprintf("_part%d.pdf", i+1))
		a, err := p.write(out, results.KindPart, path, r.Len(), func(w io.Writer) error {
			return doc.Extract(specs, w)
		})
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("Error: %v", err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logger.Debug("part written", logger.String("file", a.Name()), logger.String("pages", r.Selection()))
		report.Parts = append(report.Parts, split.Part{Name: a.Name(), Pages: a.Pages})
	}

	addFile := func(name string) { report.Files = append(report.Files, name) }
	if err := p.writeReport(path, report.Render, addFile); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Encrypt writes a password-protected copy of every unprotected input.
// Inputs that already carry encryption are skipped.
func (p *Processor) Encrypt(ctx context.Context, inputs []string) (*Summary, error) {
	return p.each(ctx, types.OpEncrypt, inputs, p.encryptOne)
}

func (p *Processor) encryptOne(path string) error {
	doc, err := p.codec.Open(path)
	if err != nil {
		return failAt(failures.StageOpen, types.NewAppError(types.ErrUnreadable, "cannot read document", err))
	}
	if doc.Encrypted() {
		return types.NewAppError(types.ErrAlreadyEncrypted, fmt.Sprintf("%s is already encrypted, skipping", filepath.Base(path)), nil)
	}

	pw := p.opts.Password
	if pw == "" && p.prompter != nil {
		pw, err = p.prompter.Prompt(fmt.Sprintf("Enter encryption password for %s", filepath.Base(path)))
		if err != nil && !errors.Is(err, password.ErrNoMorePasswords) {
			return failAt(failures.StageEncrypt, types.NewAppError(types.ErrInternal, "cannot read password", err))
		}
	}
	if pw == "" {
		return types.NewAppError(types.ErrNoPassword, fmt.Sprintf("no password given for %s, skipping", filepath.Base(path)), nil)
	}

	protection := pdf.Protection{Password: pw, AES: p.opts.EncryptAES, KeyLength: p.opts.KeyLength}
	out := p.results.PathFor(path, encryptedSuffix)
	a, err := p.write(out, results.KindEncrypted, path, doc.PageCount(), func(w io.Writer) error {
		return doc.Encrypt(protection, w)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "creating %s\n", a.Name())
	return nil
}

// Decrypt writes an unprotected copy of every encrypted input. Inputs without
// encryption are skipped. Failing to find the password aborts the batch
// before anything is written for that input.
func (p *Processor) Decrypt(ctx context.Context, inputs []string) (*Summary, error) {
	return p.each(ctx, types.OpDecrypt, inputs, p.decryptOne)
}

func (p *Processor) decryptOne(path string) error {
	doc, err := p.codec.Open(path)
	if err != nil {
		return failAt(failures.StageOpen, types.NewAppError(types.ErrUnreadable, "cannot read document", err))
	}
	if !doc.Encrypted() {
		return types.NewAppError(types.ErrNotEncrypted, fmt.Sprintf("%s is not encrypted, skipping", filepath.Base(path)), nil)
	}
	if doc.Locked() {
		if err := p.unlock(doc); err != nil {
			return err
		}
	}

	out := p.results.PathFor(path, decryptedSuffix)
	a, err := p.write(out, results.KindDecrypted, path, doc.PageCount(), doc.WritePlain)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "creating %s\n", a.Name())
	return nil
}
