package errors

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"notary-splitter/internal/types"
)

func TestLedger(t *testing.T) {
	l, err := NewLedger("")
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}

	cause := types.NewAppError(types.ErrUnreadable, "cannot read document", fmt.Errorf("bad xref"))
	if err := l.Record("/in/b.pdf", types.OpClassify, StageOpen, cause); err != nil {
		t.Fatalf("Failed to record failure: %v", err)
	}
	if err := l.Record("/in/a.pdf", types.OpClassify, StageWrite, fmt.Errorf("disk full")); err != nil {
		t.Fatalf("Failed to record failure: %v", err)
	}

	record, ok := l.Get("/in/b.pdf")
	if !ok {
		t.Fatal("Failure record not found")
	}
	if record.Stage != StageOpen {
		t.Errorf("Expected stage open, got %s", record.Stage)
	}
	if record.Code != types.ErrUnreadable {
		t.Errorf("Expected code %s, got %s", types.ErrUnreadable, record.Code)
	}
	if record.Message != "cannot read document: bad xref" {
		t.Errorf("Unexpected message %q", record.Message)
	}

	records := l.Records()
	if len(records) != 2 || records[0].Input != "/in/a.pdf" {
		t.Fatalf("Expected records sorted by input, got %+v", records)
	}

	// a repeated failure counts as a retry
	if err := l.Record("/in/a.pdf", types.OpClassify, StageWrite, fmt.Errorf("disk full")); err != nil {
		t.Fatalf("Failed to record failure: %v", err)
	}
	record, _ = l.Get("/in/a.pdf")
	if record.RetryCount != 1 {
		t.Errorf("Expected retry count 1, got %d", record.RetryCount)
	}

	if err := l.Resolve("/in/a.pdf"); err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if l.Len() != 1 {
		t.Errorf("Expected 1 record, got %d", l.Len())
	}
	if l.Path() != "" {
		t.Errorf("Expected in-memory ledger to have no path, got %s", l.Path())
	}
}

func TestLedgerPersistence(t *testing.T) {
	tempDir := t.TempDir()

	l1, err := NewLedger(tempDir)
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}
	if err := l1.Record("/in/packet.pdf", types.OpDecrypt, StageDecrypt, fmt.Errorf("wrong password")); err != nil {
		t.Fatalf("Failed to record failure: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "failures.json")); err != nil {
		t.Fatalf("Expected failures file: %v", err)
	}

	l2, err := NewLedger(tempDir)
	if err != nil {
		t.Fatalf("Failed to create second ledger: %v", err)
	}
	record, ok := l2.Get("/in/packet.pdf")
	if !ok {
		t.Fatal("Failure record not found after reload")
	}
	if record.Operation != types.OpDecrypt || record.Message != "wrong password" {
		t.Errorf("Unexpected record after reload: %+v", record)
	}
}

func TestSummary(t *testing.T) {
	l, _ := NewLedger("")
	if l.Summary() != "" {
		t.Errorf("Expected empty summary, got %q", l.Summary())
	}

	_ = l.Record("/in/x.pdf", types.OpSplit, StageSplit, fmt.Errorf("boom"))
	summary := l.Summary()
	if !strings.HasPrefix(summary, "1 file(s) could not be processed:\n") {
		t.Errorf("Unexpected summary header: %q", summary)
	}
	if !strings.Contains(summary, "/in/x.pdf (splitting): boom") {
		t.Errorf("Summary missing record line: %q", summary)
	}
}

func TestGetStageDisplayName(t *testing.T) {
	tests := []struct {
		stage    FailureStage
		expected string
	}{
		{StageOpen, "opening"},
		{StageDecrypt, "decryption"},
		{StageClassify, "classification"},
		{StageSplit, "splitting"},
		{StageMerge, "merging"},
		{StageEncrypt, "encryption"},
		{StageWrite, "writing output"},
		{FailureStage("other"), "other"},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			result := GetStageDisplayName(tt.stage)
			if result != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}

func TestExportInputs(t *testing.T) {
	tempDir := t.TempDir()
	l, _ := NewLedger("")

	inputs := []string{"/in/a.pdf", "/in/b.pdf", "/in/c.pdf"}
	for _, in := range inputs {
		if err := l.Record(in, types.OpMerge, StageMerge, fmt.Errorf("test error")); err != nil {
			t.Fatalf("Failed to record failure: %v", err)
		}
	}

	outputPath := filepath.Join(tempDir, "failed.txt")
	if err := l.ExportInputs(outputPath); err != nil {
		t.Fatalf("Failed to export inputs: %v", err)
	}
	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read exported file: %v", err)
	}
	if string(content) != strings.Join(inputs, "\n")+"\n" {
		t.Errorf("Unexpected export content %q", content)
	}

	empty, _ := NewLedger("")
	emptyPath := filepath.Join(tempDir, "none.txt")
	if err := empty.ExportInputs(emptyPath); err != nil {
		t.Fatalf("Failed to export empty list: %v", err)
	}
	content, _ = os.ReadFile(emptyPath)
	if len(content) != 0 {
		t.Errorf("Expected empty file, got %d bytes", len(content))
	}
}
