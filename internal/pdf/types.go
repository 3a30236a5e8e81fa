// Package pdf is the document codec: it opens PDF files, reports page count,
// page boxes and document info, and writes page selections, merges and
// password-protected copies. All byte-level work is done by pdfcpu.
package pdf

import (
	"errors"
	"fmt"
)

// Sentinel errors for codec failure conditions.
var (
	ErrLocked     = errors.New("pdf: document requires a password")
	ErrUnreadable = errors.New("pdf: document cannot be read")
	ErrNoPages    = errors.New("pdf: no pages selected")
	ErrPageRange  = errors.New("pdf: page out of range")
)

// PDFErrorCode classifies a PDFError.
type PDFErrorCode string

const (
	ErrPDFNotFound  PDFErrorCode = "PDF_NOT_FOUND"
	ErrPDFInvalid   PDFErrorCode = "PDF_INVALID"
	ErrPDFEncrypted PDFErrorCode = "PDF_ENCRYPTED"
	ErrPDFWrite     PDFErrorCode = "PDF_WRITE_FAILED"
)

// PDFError is a codec error bound to one operation on one document.
type PDFError struct {
	Code  PDFErrorCode `json:"code"`
	Op    string       `json:"op"`
	Path  string       `json:"path,omitempty"`
	Page  int          `json:"page,omitempty"`
	Cause error        `json:"-"`
}

// Error implements the error interface for PDFError
func (e *PDFError) Error() string {
	msg := "pdf." + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Page > 0 {
		msg += fmt.Sprintf(" page %d", e.Page)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause of the error
func (e *PDFError) Unwrap() error {
	return e.Cause
}

func newPDFError(code PDFErrorCode, op, path string, cause error) *PDFError {
	return &PDFError{Code: code, Op: op, Path: path, Cause: cause}
}

// Info is the document information dictionary.
type Info struct {
	Title    string `json:"title"`
	Subject  string `json:"subject"`
	Author   string `json:"author"`
	Producer string `json:"producer"`
	Creator  string `json:"creator"`
}

// PageSpec selects one source page for an output document.
type PageSpec struct {
	Page     int // 1-based page in the source
	Rotation int // clockwise degrees, multiple of 90
}

// Protection configures password protection of written documents.
type Protection struct {
	Password  string
	AES       bool
	KeyLength int
}
