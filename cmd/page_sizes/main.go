// Command page_sizes prints the geometry and size class of every page of the
// given PDFs without writing any output files.
//
// Usage:
//
//	go run ./cmd/page_sizes [-tolerance 1.0] <file.pdf>...
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"notary-splitter/internal/config"
	"notary-splitter/internal/pagesize"
	"notary-splitter/internal/password"
	"notary-splitter/internal/pdf"
)

func main() {
	tolerance := flag.Float64("tolerance", config.DefaultTolerance, "allowed deviation from a page template, in inches")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Println("Usage: page_sizes [-tolerance N] <file.pdf>...")
		os.Exit(1)
	}

	codec := pdf.NewCodec()
	failed := false
	for _, path := range flag.Args() {
		if err := describe(codec, path, *tolerance); err != nil {
			fmt.Printf("Error: %s: %v\n", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func describe(codec *pdf.Codec, path string, tolerance float64) error {
	doc, err := codec.Open(path)
	if err != nil {
		return err
	}
	if doc.Locked() {
		label := fmt.Sprintf("Enter password for %s", filepath.Base(path))
		res, err := password.Authenticate(password.NewTerminal(), label, doc.Unlock, password.DefaultAttempts)
		if err != nil {
			return err
		}
		if !res.OK() {
			return fmt.Errorf("no valid password after %d attempts", res.Attempts)
		}
	}

	fmt.Printf("=== %s ===\n", path)
	fmt.Printf("pages: %d", doc.PageCount())
	if n, err := doc.IndependentPageCount(); err == nil && n != doc.PageCount() {
		fmt.Printf(" (second parser counts %d)", n)
	}
	fmt.Println()

	for page := 1; page <= doc.PageCount(); page++ {
		w, h, err := doc.PageSize(page)
		if err != nil {
			fmt.Printf("page %3d: %v\n", page, err)
			continue
		}
		rot, _ := doc.PageRotation(page)
		g, ok := pagesize.FromPoints(w, h)
		class := pagesize.Classify(g, tolerance)

		note := ""
		if !ok {
			note = " (invalid size, fallback used)"
		}
		fmt.Printf("page %3d: %7.1f x %7.1f pt  %s  rotate %3d  %s%s\n", page, w, h, g, rot, class, note)
	}
	fmt.Println()
	return nil
}
