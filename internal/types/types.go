// Package types defines core data types and enums for the notary page splitter.
package types

import "errors"

// Config holds the application configuration.
type Config struct {
	Tolerance        float64 `json:"tolerance"`          // inches allowed around each page template
	PasswordAttempts int     `json:"password_attempts"`  // prompts before a protected document aborts the run
	OutputDir        string  `json:"output_dir"`         // empty means next to each input file
	LogFile          string  `json:"log_file"`           // diagnostics log path
	LogLevel         string  `json:"log_level"`          // debug, info, warn, error
	LogConsole       bool    `json:"log_console"`        // echo diagnostics to stderr
	EncryptAES       bool    `json:"encrypt_aes"`        // AES instead of RC4 for new protection
	EncryptKeyLength int     `json:"encrypt_key_length"` // 40, 128 or 256
	SaveFailures     bool    `json:"save_failures"`      // write a failures JSON after a batch with errors
}

// Operation identifies which batch operation a run performs.
type Operation string

const (
	OpClassify Operation = "classify"
	OpSplit    Operation = "split"
	OpMerge    Operation = "merge"
	OpEncrypt  Operation = "encrypt"
	OpDecrypt  Operation = "decrypt"
)

// ErrorCode enumerates the error categories.
type ErrorCode string

const (
	ErrInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrFileNotFound      ErrorCode = "FILE_NOT_FOUND"
	ErrUnreadable        ErrorCode = "DOCUMENT_UNREADABLE"
	ErrAlreadyEncrypted  ErrorCode = "ALREADY_ENCRYPTED"
	ErrNotEncrypted      ErrorCode = "NOT_ENCRYPTED"
	ErrNoPassword        ErrorCode = "NO_PASSWORD"
	ErrPasswordExhausted ErrorCode = "PASSWORD_EXHAUSTED"
	ErrWrite             ErrorCode = "WRITE_ERROR"
	ErrConfig            ErrorCode = "CONFIG_ERROR"
	ErrInternal          ErrorCode = "INTERNAL_ERROR"
)

// AppError is an application error carrying a category code.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsFatal reports whether err must abort the whole invocation rather than
// just the file being processed.
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case ErrPasswordExhausted, ErrInvalidInput, ErrConfig:
		return true
	}
	return false
}

// IsSkip reports whether err means the input was deliberately left alone
// rather than failed.
func IsSkip(err error) bool {
	switch CodeOf(err) {
	case ErrAlreadyEncrypted, ErrNotEncrypted, ErrNoPassword:
		return true
	}
	return false
}
