// Package results writes output artifacts and keeps track of what was
// written during a run.
package results

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"notary-splitter/internal/logger"
)

// ArtifactKind says what an artifact is.
type ArtifactKind string

const (
	// KindClass is one size class of a classified document
	KindClass ArtifactKind = "class"
	// KindPart is one part of an even split
	KindPart ArtifactKind = "part"
	// KindMerged is a merge of several documents
	KindMerged ArtifactKind = "merged"
	// KindEncrypted is a password-protected copy
	KindEncrypted ArtifactKind = "encrypted"
	// KindDecrypted is an unprotected copy
	KindDecrypted ArtifactKind = "decrypted"
	// KindReport is a text report sidecar
	KindReport ArtifactKind = "report"
)

// Artifact is a file written by the run.
type Artifact struct {
	Path      string       `json:"path"`
	Kind      ArtifactKind `json:"kind"`
	Source    string       `json:"source,omitempty"`
	Pages     int          `json:"pages,omitempty"`
	WrittenAt time.Time    `json:"written_at"`
}

// Name returns the artifact's file name.
func (a *Artifact) Name() string {
	return filepath.Base(a.Path)
}

// ResultManager places and writes output files. Output goes next to the
// input unless an output directory is configured.
type ResultManager struct {
	outputDir string

	mu        sync.Mutex
	artifacts []*Artifact
}

// NewResultManager creates a ResultManager. A non-empty outputDir is made
// absolute and created if missing.
func NewResultManager(outputDir string) (*ResultManager, error) {
	if outputDir != "" {
		abs, err := filepath.Abs(outputDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve output directory: %w", err)
		}
		if err := os.MkdirAll(abs, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		outputDir = abs
	}
	return &ResultManager{outputDir: outputDir}, nil
}

// GetOutputDir returns the configured output directory, "" when outputs go
// next to their inputs.
func (m *ResultManager) GetOutputDir() string {
	return m.outputDir
}

// BaseName returns the file name of input without its extension.
func BaseName(input string) string {
	name := filepath.Base(input)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// PathFor returns where the output for input with the given suffix goes,
// e.g. suffix "_letter.pdf" for /in/packet.pdf gives /in/packet_letter.pdf.
func (m *ResultManager) PathFor(input, suffix string) string {
	dir := m.outputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, BaseName(input)+suffix)
}

// PathIn returns the path of an output not tied to a single input. Without
// an output directory it lands in fallbackDir.
func (m *ResultManager) PathIn(fallbackDir, name string) string {
	dir := m.outputDir
	if dir == "" {
		dir = fallbackDir
	}
	return filepath.Join(dir, name)
}

// Write creates path through a temporary file in the same directory, so a
// failed write never leaves a partial output behind.
func (m *ResultManager) Write(path string, kind ArtifactKind, source string, pages int, write func(io.Writer) error) (*Artifact, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	tmpPath := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	artifact := &Artifact{
		Path:      path,
		Kind:      kind,
		Source:    source,
		Pages:     pages,
		WrittenAt: time.Now(),
	}
	m.mu.Lock()
	m.artifacts = append(m.artifacts, artifact)
	m.mu.Unlock()

	logger.Info("artifact written",
		logger.String("file", filepath.Base(path)),
		logger.String("kind", string(kind)),
		logger.Int("pages", pages))
	return artifact, nil
}

// WriteText writes a text artifact such as a report sidecar.
func (m *ResultManager) WriteText(path string, kind ArtifactKind, source, text string) (*Artifact, error) {
	return m.Write(path, kind, source, 0, func(w io.Writer) error {
		_, err := io.WriteString(w, text)
		return err
	})
}

// ListArtifacts returns copies of the artifacts written so far, in order.
func (m *ResultManager) ListArtifacts() []*Artifact {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Artifact, 0, len(m.artifacts))
	for _, a := range m.artifacts {
		aCopy := *a
		out = append(out, &aCopy)
	}
	return out
}

// ArtifactsFor lists the artifacts produced from source.
func (m *ResultManager) ArtifactsFor(source string) []*Artifact {
	var out []*Artifact
	for _, a := range m.ListArtifacts() {
		if a.Source == source {
			out = append(out, a)
		}
	}
	return out
}

// SaveManifest writes the artifact list as JSON.
func (m *ResultManager) SaveManifest(path string) error {
	data, err := json.MarshalIndent(m.ListArtifacts(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
