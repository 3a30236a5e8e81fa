package partition

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"notary-splitter/internal/pagesize"
)

// Metadata is the document information shown at the top of a report.
type Metadata struct {
	Title    string
	Subject  string
	Author   string
	Producer string
	Creator  string
}

// Normalize trims the fields and puts them in Unicode NFC form, so that
// decomposed accents from some producers print as single characters.
func (m Metadata) Normalize() Metadata {
	clean := func(s string) string {
		return norm.NFC.String(strings.TrimSpace(s))
	}
	return Metadata{
		Title:    clean(m.Title),
		Subject:  clean(m.Subject),
		Author:   clean(m.Author),
		Producer: clean(m.Producer),
		Creator:  clean(m.Creator),
	}
}

// Report describes how one document was split by page size.
type Report struct {
	Source           string
	Metadata         Metadata
	PageCount        int
	PasswordRequired bool
	Warnings         []string
	Runs             []pagesize.Run
	Unknown          []UnknownPage
	Totals           Totals
	Files            []string
}

// NewReport builds the report skeleton for a partitioned document. Output
// files are appended with AddFile as they are written.
func NewReport(source string, meta Metadata, passwordRequired bool, plan *Plan) *Report {
	return &Report{
		Source:           source,
		Metadata:         meta.Normalize(),
		PageCount:        plan.PageCount,
		PasswordRequired: passwordRequired,
		Warnings:         append([]string(nil), plan.Warnings...),
		Runs:             plan.Runs,
		Unknown:          plan.Unknown,
		Totals:           plan.Totals,
	}
}

// AddFile records an artifact that was written.
func (r *Report) AddFile(name string) {
	r.Files = append(r.Files, name)
}

// AddWarning records a non-fatal problem.
func (r *Report) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Render formats the report as the text printed to the operator and saved
// in the sidecar log file.
func (r *Report) Render() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Splitting file: %s\n", r.Source)
	fmt.Fprintf(&sb, "Title: %s\n", r.Metadata.Title)
	fmt.Fprintf(&sb, "Subject: %s\n", r.Metadata.Subject)
	fmt.Fprintf(&sb, "Author: %s\n", r.Metadata.Author)
	fmt.Fprintf(&sb, "Producer: %s\n", r.Metadata.Producer)
	fmt.Fprintf(&sb, "Creator: %s\n", r.Metadata.Creator)
	fmt.Fprintf(&sb, "Number of Pages: %d\n", r.PageCount)
	if r.PasswordRequired {
		sb.WriteString("Encryption: Password Required\n")
	} else {
		sb.WriteString("Encryption: No Password Required\n")
	}
	sb.WriteString("\n")

	for _, w := range r.Warnings {
		sb.WriteString(w)
		sb.WriteString("\n")
	}

	sb.WriteString(RenderRuns(r.Runs))

	for _, u := range r.Unknown {
		fmt.Fprintf(&sb, "page %d: %s\n", u.Page, u.Geometry)
	}

	fmt.Fprintf(&sb, "numPages:   %d\n", r.PageCount)
	fmt.Fprintf(&sb, "numLetter:  %d\n", r.Totals.Letter)
	fmt.Fprintf(&sb, "numLegal:   %d\n", r.Totals.Legal)
	fmt.Fprintf(&sb, "numTabloid: %d\n", r.Totals.Tabloid)
	fmt.Fprintf(&sb, "numUnknown: %d\n", r.Totals.Unknown)
	sb.WriteString("\n")

	for _, f := range r.Files {
		fmt.Fprintf(&sb, "creating %s\n", f)
	}

	return sb.String()
}

// RenderRuns formats runs as reassembly instructions, one line per run:
//
//	letter: 1 2 3 (qty: 3)
//
// A blank line follows every letter run and the final run.
func RenderRuns(runs []pagesize.Run) string {
	if len(runs) == 0 {
		return "\n"
	}

	var sb strings.Builder
	for i, run := range runs {
		sb.WriteString(run.Class.String())
		sb.WriteString(": ")
		for _, p := range run.Pages {
			sb.WriteString(strconv.Itoa(p))
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "(qty: %d)\n", run.Count)

		last := i == len(runs)-1
		if last || run.Class.Base() == pagesize.Letter {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
