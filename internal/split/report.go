package split

import (
	"fmt"
	"strings"
)

// Part is one written part of a split.
type Part struct {
	Name  string
	Pages int
}

// Report describes how a document was split.
type Report struct {
	Source    string
	PageCount int
	Plan      Plan
	Warnings  []string
	Parts     []Part
	Files     []string
}

// Render formats the report for the operator and the sidecar log file.
func (r *Report) Render() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Splitting file: %s\n", r.Source)
	fmt.Fprintf(&sb, "Number of Pages: %d\n", r.PageCount)
	fmt.Fprintf(&sb, "Number of Parts: %d\n", r.Plan.Parts)
	fmt.Fprintf(&sb, "Pages per Part: %d\n", r.Plan.PagesPerPart)
	fmt.Fprintf(&sb, "Last Part: %d\n", r.Plan.LastPartSize)
	sb.WriteString("\n")

	for _, w := range r.Warnings {
		sb.WriteString(w)
		sb.WriteString("\n")
	}
	for _, p := range r.Parts {
		fmt.Fprintf(&sb, "creating %s numPages: %d\n", p.Name, p.Pages)
	}
	for _, f := range r.Files {
		fmt.Fprintf(&sb, "creating %s\n", f)
	}
	return sb.String()
}
