// Package pdftest builds small, valid PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Page describes one page of a fixture. Width and Height are in points.
type Page struct {
	Width  float64
	Height float64
	Rotate int
}

// Inches returns a page of w by h inches.
func Inches(w, h float64) Page {
	return Page{Width: w * 72, Height: h * 72}
}

// Common page shapes.
var (
	Letter     = Inches(8.5, 11)
	LetterLand = Inches(11, 8.5)
	Legal      = Inches(8.5, 14)
	LegalLand  = Inches(14, 8.5)
	Tabloid    = Inches(11, 17)
	A4         = Page{Width: 595, Height: 842}
)

// Pages repeats p n times.
func Pages(p Page, n int) []Page {
	out := make([]Page, n)
	for i := range out {
		out[i] = p
	}
	return out
}

// Concat joins page lists.
func Concat(lists ...[]Page) []Page {
	var out []Page
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Build returns the bytes of a PDF with the given pages. A non-empty title
// adds an /Info dictionary.
func Build(pages []Page, title string) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	obj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))

	for i, p := range pages {
		page := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] /Resources << >> /Contents %d 0 R",
			num(p.Width), num(p.Height), 4+2*i)
		if p.Rotate != 0 {
			page += fmt.Sprintf(" /Rotate %d", p.Rotate)
		}
		obj(page + " >>")

		content := "q 1 0 0 1 0 0 cm Q"
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	trailer := fmt.Sprintf("<< /Size %d /Root 1 0 R", len(offsets)+1)
	if title != "" {
		obj(fmt.Sprintf("<< /Title (%s) /Producer (pdftest) >>", title))
		trailer = fmt.Sprintf("<< /Size %d /Root 1 0 R /Info %d 0 R", len(offsets)+1, len(offsets))
	}
	trailer += " >>"

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n%s\nstartxref\n%d\n%%%%EOF\n", trailer, xref)
	return buf.Bytes()
}

// WriteFile writes a fixture into dir and returns its path.
func WriteFile(t testing.TB, dir, name string, pages []Page, title string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(pages, title), 0644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
	return path
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
