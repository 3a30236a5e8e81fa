package pdf

import (
	"bytes"
	"fmt"

	lpdf "github.com/ledongthuc/pdf"

	"notary-splitter/internal/logger"
)

// Info reads the document information dictionary. Missing entries come back
// empty; a dictionary that cannot be parsed yields an empty Info and an error
// the caller may ignore.
func (d *Document) Info() (info Info, err error) {
	if d.Locked() {
		return Info{}, ErrLocked
	}

	// the reader panics on some malformed trailers
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("failed to read document info", logger.String("file", d.Path), logger.Any("panic", r))
			info, err = Info{}, fmt.Errorf("failed to read document info: %v", r)
		}
	}()

	r, err := lpdf.NewReader(bytes.NewReader(d.plain), int64(len(d.plain)))
	if err != nil {
		return Info{}, fmt.Errorf("failed to read document info: %w", err)
	}

	dict := r.Trailer().Key("Info")
	return Info{
		Title:    dict.Key("Title").Text(),
		Subject:  dict.Key("Subject").Text(),
		Author:   dict.Key("Author").Text(),
		Producer: dict.Key("Producer").Text(),
		Creator:  dict.Key("Creator").Text(),
	}, nil
}

// IndependentPageCount counts pages with a second parser. A mismatch with
// PageCount points at a damaged page tree.
func (d *Document) IndependentPageCount() (n int, err error) {
	if d.Locked() {
		return 0, ErrLocked
	}
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("failed to count pages: %v", r)
		}
	}()

	r, err := lpdf.NewReader(bytes.NewReader(d.plain), int64(len(d.plain)))
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return r.NumPage(), nil
}
