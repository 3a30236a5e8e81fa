// Package password handles bounded password entry for protected documents.
package password

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"notary-splitter/internal/logger"
)

// DefaultAttempts is how many passwords are tried before giving up.
const DefaultAttempts = 3

// ErrNoMorePasswords is returned by a Prompter that has run out of input.
var ErrNoMorePasswords = errors.New("no more passwords")

// Status is the outcome of an authentication attempt.
type Status int

const (
	Failed Status = iota
	Authenticated
)

func (s Status) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "failed"
}

// Result reports how authentication ended.
type Result struct {
	Status   Status
	Password string
	Attempts int
}

// OK reports whether a working password was found.
func (r Result) OK() bool {
	return r.Status == Authenticated
}

// Prompter supplies candidate passwords, one per call.
type Prompter interface {
	Prompt(label string) (string, error)
}

// VerifyFunc reports whether a password opens the document. A non-nil error
// means the document could not be checked at all.
type VerifyFunc func(password string) (bool, error)

// Authenticate asks p for up to attempts passwords and returns the first one
// verify accepts. Running out of attempts is a Failed result, not an error;
// the caller decides whether that aborts the run.
func Authenticate(p Prompter, label string, verify VerifyFunc, attempts int) (Result, error) {
	if attempts < 1 {
		attempts = DefaultAttempts
	}

	res := Result{Status: Failed}
	for res.Attempts < attempts {
		pw, err := p.Prompt(label)
		if errors.Is(err, ErrNoMorePasswords) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("failed to read password: %w", err)
		}
		res.Attempts++

		ok, err := verify(pw)
		if err != nil {
			return res, err
		}
		if ok {
			res.Status = Authenticated
			res.Password = pw
			logger.Debug("password accepted", logger.String("label", label), logger.Int("attempt", res.Attempts))
			return res, nil
		}
		logger.Warn("wrong password", logger.String("label", label), logger.Int("attempt", res.Attempts))
	}
	return res, nil
}

// Terminal prompts on the controlling terminal with echo disabled. When
// stdin is not a terminal it reads one line per prompt instead.
type Terminal struct {
	In  *os.File
	Out io.Writer

	lines *bufio.Reader
}

// NewTerminal returns a Terminal prompter on stdin/stderr.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stderr}
}

// Prompt implements Prompter.
func (t *Terminal) Prompt(label string) (string, error) {
	fmt.Fprintf(t.Out, "%s: ", label)

	fd := int(t.In.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(t.Out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	if t.lines == nil {
		t.lines = bufio.NewReader(t.In)
	}
	line, err := t.lines.ReadString('\n')
	if err == io.EOF && line == "" {
		return "", ErrNoMorePasswords
	}
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Static replays a fixed list of passwords.
type Static struct {
	Passwords []string
	next      int
}

// NewStatic returns a Prompter that yields pws in order.
func NewStatic(pws ...string) *Static {
	return &Static{Passwords: pws}
}

// Prompt implements Prompter.
func (s *Static) Prompt(string) (string, error) {
	if s.next >= len(s.Passwords) {
		return "", ErrNoMorePasswords
	}
	pw := s.Passwords[s.next]
	s.next++
	return pw, nil
}

// Asked returns how many passwords were handed out.
func (s *Static) Asked() int {
	return s.next
}

type preset struct {
	first    string
	used     bool
	fallback Prompter
}

// Preset yields first on the first call and defers to fallback afterwards.
// An empty first password is skipped.
func Preset(first string, fallback Prompter) Prompter {
	return &preset{first: first, used: first == "", fallback: fallback}
}

func (p *preset) Prompt(label string) (string, error) {
	if !p.used {
		p.used = true
		return p.first, nil
	}
	if p.fallback == nil {
		return "", ErrNoMorePasswords
	}
	return p.fallback.Prompt(label)
}
