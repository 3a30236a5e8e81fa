// Package errors keeps a ledger of input documents that failed processing,
// optionally persisted so a later run can retry them.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"notary-splitter/internal/types"
)

// FailureStage is the step at which a document failed.
type FailureStage string

const (
	StageOpen     FailureStage = "open"
	StageDecrypt  FailureStage = "decrypt"
	StageClassify FailureStage = "classify"
	StageSplit    FailureStage = "split"
	StageMerge    FailureStage = "merge"
	StageEncrypt  FailureStage = "encrypt"
	StageWrite    FailureStage = "write"
)

const ledgerFile = "failures.json"

// FailureRecord describes one failed input.
type FailureRecord struct {
	Input      string          `json:"input"`
	Operation  types.Operation `json:"operation"`
	Stage      FailureStage    `json:"stage"`
	Code       types.ErrorCode `json:"code,omitempty"`
	Message    string          `json:"message"`
	Timestamp  time.Time       `json:"timestamp"`
	RetryCount int             `json:"retry_count"`
}

// Ledger records failures keyed by input path.
type Ledger struct {
	baseDir string
	mu      sync.RWMutex
	records map[string]*FailureRecord
}

// NewLedger creates a ledger. With an empty baseDir it lives in memory only;
// otherwise existing records are loaded from baseDir and every change is
// saved back.
func NewLedger(baseDir string) (*Ledger, error) {
	l := &Ledger{
		baseDir: baseDir,
		records: make(map[string]*FailureRecord),
	}
	if baseDir == "" {
		return l, nil
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create failures directory: %w", err)
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

// Record stores a failure for input. A second failure of the same input
// replaces the first and counts as a retry.
func (l *Ledger) Record(input string, op types.Operation, stage FailureStage, err error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := &FailureRecord{
		Input:     input,
		Operation: op,
		Stage:     stage,
		Code:      types.CodeOf(err),
		Timestamp: time.Now(),
	}
	if err != nil {
		record.Message = err.Error()
	}
	if existing, ok := l.records[input]; ok {
		record.RetryCount = existing.RetryCount + 1
	}
	l.records[input] = record

	return l.save()
}

// Resolve drops the record of an input that has now been processed.
func (l *Ledger) Resolve(input string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.records[input]; !ok {
		return nil
	}
	delete(l.records, input)
	return l.save()
}

// Get returns a copy of the record for input.
func (l *Ledger) Get(input string) (*FailureRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	record, ok := l.records[input]
	if !ok {
		return nil, false
	}
	recordCopy := *record
	return &recordCopy, true
}

// Records lists copies of all records ordered by input path.
func (l *Ledger) Records() []*FailureRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records := make([]*FailureRecord, 0, len(l.records))
	for _, record := range l.records {
		recordCopy := *record
		records = append(records, &recordCopy)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Input < records[j].Input
	})
	return records
}

// Len returns the number of failed inputs.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Summary renders one line per failed input, or "" when nothing failed.
func (l *Ledger) Summary() string {
	records := l.Records()
	if len(records) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d file(s) could not be processed:\n", len(records))
	for _, r := range records {
		fmt.Fprintf(&b, "  %s (%s): %s\n", r.Input, GetStageDisplayName(r.Stage), r.Message)
	}
	return b.String()
}

// ExportInputs writes the failed input paths to outputPath, one per line.
func (l *Ledger) ExportInputs(outputPath string) error {
	var b strings.Builder
	for _, r := range l.Records() {
		b.WriteString(r.Input)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(outputPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write failed inputs file: %w", err)
	}
	return nil
}

// Path returns the persisted ledger file, or "" for an in-memory ledger.
func (l *Ledger) Path() string {
	if l.baseDir == "" {
		return ""
	}
	return filepath.Join(l.baseDir, ledgerFile)
}

func (l *Ledger) load() error {
	data, err := os.ReadFile(l.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read failures file: %w", err)
	}

	var records []*FailureRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal failures: %w", err)
	}
	for _, record := range records {
		l.records[record.Input] = record
	}
	return nil
}

// save must be called with the lock held.
func (l *Ledger) save() error {
	if l.baseDir == "" {
		return nil
	}

	records := make([]*FailureRecord, 0, len(l.records))
	for _, record := range l.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Input < records[j].Input
	})

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal failures: %w", err)
	}
	if err := os.WriteFile(l.Path(), data, 0644); err != nil {
		return fmt.Errorf("failed to write failures file: %w", err)
	}
	return nil
}

// GetStageDisplayName returns the human label of a stage.
func GetStageDisplayName(stage FailureStage) string {
	switch stage {
	case StageOpen:
		return "opening"
	case StageDecrypt:
		return "decryption"
	case StageClassify:
		return "classification"
	case StageSplit:
		return "splitting"
	case StageMerge:
		return "merging"
	case StageEncrypt:
		return "encryption"
	case StageWrite:
		return "writing output"
	default:
		return string(stage)
	}
}
