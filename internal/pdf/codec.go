package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"notary-splitter/internal/logger"
)

var disableConfigDir sync.Once

// Codec opens and writes PDF documents with pdfcpu.
type Codec struct{}

// NewCodec creates a new Codec. pdfcpu's user config directory is never
// touched.
func NewCodec() *Codec {
	disableConfigDir.Do(api.DisableConfigDir)
	return &Codec{}
}

// conf returns a fresh configuration; pdfcpu mutates it per command.
func (c *Codec) conf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Open reads the document at path. A document that needs a password is
// returned locked, not as an error.
func (c *Codec) Open(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newPDFError(ErrPDFNotFound, "open", path, err)
		}
		return nil, newPDFError(ErrPDFInvalid, "open", path, err)
	}
	return c.OpenBytes(path, raw)
}

// OpenBytes is Open for a document already in memory. path only labels it.
func (c *Codec) OpenBytes(path string, raw []byte) (*Document, error) {
	doc := &Document{Path: path, codec: c, raw: raw}

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(raw), c.conf())
	if err != nil {
		if isWrongPassword(err) {
			doc.encrypted = true
			doc.passwordRequired = true
			logger.Info("document is password protected", logger.String("file", filepath.Base(path)))
			return doc, nil
		}
		return nil, newPDFError(ErrPDFInvalid, "open", path, fmt.Errorf("%w: %v", ErrUnreadable, err))
	}

	if ctx.Encrypt == nil {
		doc.plain = raw
		doc.ctx = ctx
		return doc, nil
	}

	// Encrypted with an empty user password: readable, but outputs must be
	// written from a decrypted copy.
	doc.encrypted = true
	if _, err := doc.Unlock(""); err != nil {
		return nil, err
	}
	if doc.Locked() {
		return nil, newPDFError(ErrPDFInvalid, "open", path, fmt.Errorf("%w: empty password rejected", ErrUnreadable))
	}
	return doc, nil
}

// Merge concatenates docs in order and writes the result to w.
func (c *Codec) Merge(docs []*Document, w io.Writer) error {
	if len(docs) == 0 {
		return newPDFError(ErrPDFInvalid, "merge", "", ErrNoPages)
	}
	rsc := make([]io.ReadSeeker, 0, len(docs))
	for _, d := range docs {
		if d.Locked() {
			return newPDFError(ErrPDFEncrypted, "merge", d.Path, ErrLocked)
		}
		rsc = append(rsc, bytes.NewReader(d.plain))
	}

	logger.Info("merging documents", logger.Int("count", len(docs)))
	if err := api.MergeRaw(rsc, w, false, c.conf()); err != nil {
		return newPDFError(ErrPDFWrite, "merge", "", fmt.Errorf("failed to merge PDFs: %w", err))
	}
	return nil
}

// Document is an opened PDF. A locked document only knows that it needs a
// password; everything else becomes available after Unlock.
type Document struct {
	Path string

	codec            *Codec
	raw              []byte
	plain            []byte
	ctx              *model.Context
	encrypted        bool
	passwordRequired bool
}

// Locked reports whether the document still needs a password.
func (d *Document) Locked() bool {
	return d.ctx == nil
}

// Encrypted reports whether the file on disk carries an encryption dictionary.
func (d *Document) Encrypted() bool {
	return d.encrypted
}

// PasswordRequired reports whether opening the file needs a non-empty
// password.
func (d *Document) PasswordRequired() bool {
	return d.passwordRequired
}

// Unlock tries password against an encrypted document. It returns false
// without error when the password is wrong.
func (d *Document) Unlock(password string) (bool, error) {
	if !d.encrypted {
		return true, nil
	}

	conf := d.codec.conf()
	conf.UserPW = password
	conf.OwnerPW = password

	var buf bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(d.raw), &buf, conf); err != nil {
		if isWrongPassword(err) {
			return false, nil
		}
		return false, newPDFError(ErrPDFInvalid, "decrypt", d.Path, fmt.Errorf("%w: %v", ErrUnreadable, err))
	}

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(buf.Bytes()), d.codec.conf())
	if err != nil {
		return false, newPDFError(ErrPDFInvalid, "decrypt", d.Path, fmt.Errorf("%w: %v", ErrUnreadable, err))
	}
	d.plain = buf.Bytes()
	d.ctx = ctx
	return true, nil
}

// PageCount returns the number of pages, 0 while locked.
func (d *Document) PageCount() int {
	if d.Locked() {
		return 0
	}
	return d.ctx.PageCount
}

// PageSize returns the media box of page in points, ignoring /Rotate.
func (d *Document) PageSize(page int) (float64, float64, error) {
	if d.Locked() {
		return 0, 0, ErrLocked
	}
	if page < 1 || page > d.ctx.PageCount {
		return 0, 0, &PDFError{Code: ErrPDFInvalid, Op: "pagesize", Path: d.Path, Page: page, Cause: ErrPageRange}
	}
	_, _, inh, err := d.ctx.PageDict(page, false)
	if err != nil {
		return 0, 0, &PDFError{Code: ErrPDFInvalid, Op: "pagesize", Path: d.Path, Page: page, Cause: err}
	}
	if inh == nil || inh.MediaBox == nil {
		return 0, 0, &PDFError{Code: ErrPDFInvalid, Op: "pagesize", Path: d.Path, Page: page, Cause: errors.New("missing media box")}
	}
	return inh.MediaBox.Width(), inh.MediaBox.Height(), nil
}

// PageRotation returns the effective /Rotate of page in degrees.
func (d *Document) PageRotation(page int) (int, error) {
	if d.Locked() {
		return 0, ErrLocked
	}
	if page < 1 || page > d.ctx.PageCount {
		return 0, &PDFError{Code: ErrPDFInvalid, Op: "rotation", Path: d.Path, Page: page, Cause: ErrPageRange}
	}
	_, _, inh, err := d.ctx.PageDict(page, false)
	if err != nil {
		return 0, &PDFError{Code: ErrPDFInvalid, Op: "rotation", Path: d.Path, Page: page, Cause: err}
	}
	if inh == nil {
		return 0, nil
	}
	return inh.Rotate, nil
}

// Extract writes a new document made of pages in the given order, each
// turned clockwise by its Rotation on top of the page's own /Rotate.
func (d *Document) Extract(pages []PageSpec, w io.Writer) error {
	if d.Locked() {
		return newPDFError(ErrPDFEncrypted, "extract", d.Path, ErrLocked)
	}
	if len(pages) == 0 {
		return newPDFError(ErrPDFInvalid, "extract", d.Path, ErrNoPages)
	}

	selection := make([]string, 0, len(pages))
	turns := make(map[int][]string)
	var order []int
	for i, p := range pages {
		if p.Page < 1 || p.Page > d.ctx.PageCount {
			return &PDFError{Code: ErrPDFInvalid, Op: "extract", Path: d.Path, Page: p.Page, Cause: ErrPageRange}
		}
		if p.Rotation%90 != 0 {
			return &PDFError{Code: ErrPDFInvalid, Op: "extract", Path: d.Path, Page: p.Page,
				Cause: fmt.Errorf("rotation %d is not a multiple of 90", p.Rotation)}
		}
		selection = append(selection, strconv.Itoa(p.Page))

		deg := ((p.Rotation % 360) + 360) % 360
		if deg == 0 {
			continue
		}
		if _, ok := turns[deg]; !ok {
			order = append(order, deg)
		}
		// positions in the collected output
		turns[deg] = append(turns[deg], strconv.Itoa(i+1))
	}

	var collected bytes.Buffer
	if err := api.Collect(bytes.NewReader(d.plain), &collected, selection, d.codec.conf()); err != nil {
		return newPDFError(ErrPDFWrite, "extract", d.Path, fmt.Errorf("failed to collect pages: %w", err))
	}

	out := collected.Bytes()
	for _, deg := range order {
		var rotated bytes.Buffer
		if err := api.Rotate(bytes.NewReader(out), &rotated, deg, turns[deg], d.codec.conf()); err != nil {
			return newPDFError(ErrPDFWrite, "extract", d.Path, fmt.Errorf("failed to rotate pages: %w", err))
		}
		out = rotated.Bytes()
	}

	if _, err := w.Write(out); err != nil {
		return newPDFError(ErrPDFWrite, "extract", d.Path, err)
	}
	return nil
}

// Encrypt writes a password-protected copy of the document.
func (d *Document) Encrypt(p Protection, w io.Writer) error {
	if d.Locked() {
		return newPDFError(ErrPDFEncrypted, "encrypt", d.Path, ErrLocked)
	}

	conf := d.codec.conf()
	conf.UserPW = p.Password
	conf.OwnerPW = p.Password
	conf.EncryptUsingAES = p.AES
	if p.KeyLength > 0 {
		conf.EncryptKeyLength = p.KeyLength
	}

	logger.Info("encrypting document",
		logger.String("file", filepath.Base(d.Path)),
		logger.Bool("aes", conf.EncryptUsingAES),
		logger.Int("keyLength", conf.EncryptKeyLength))

	if err := api.Encrypt(bytes.NewReader(d.plain), w, conf); err != nil {
		return newPDFError(ErrPDFWrite, "encrypt", d.Path, fmt.Errorf("failed to encrypt PDF: %w", err))
	}
	return nil
}

// WritePlain writes the unencrypted document.
func (d *Document) WritePlain(w io.Writer) error {
	if d.Locked() {
		return newPDFError(ErrPDFEncrypted, "write", d.Path, ErrLocked)
	}
	if _, err := w.Write(d.plain); err != nil {
		return newPDFError(ErrPDFWrite, "write", d.Path, err)
	}
	return nil
}

func isWrongPassword(err error) bool {
	if errors.Is(err, pdfcpu.ErrWrongPassword) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "password")
}
