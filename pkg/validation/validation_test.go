package validation

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateFilePathRejectsTraversal(t *testing.T) {
	if _, err := ValidateFilePath("../../etc/passwd"); err == nil {
		t.Fatal("expected a path traversal attempt to be rejected")
	}
}

func TestValidateFilePathAllowsStdinSentinel(t *testing.T) {
	got, err := ValidateFilePath("-")
	if err != nil {
		t.Fatalf("ValidateFilePath(-): %v", err)
	}
	if got != "-" {
		t.Fatalf("expected the stdin sentinel to pass through unchanged, got %q", got)
	}
}

func TestValidateInputFileRejectsMissingFile(t *testing.T) {
	if err := ValidateInputFile(filepath.Join(t.TempDir(), "missing.xes")); err == nil {
		t.Fatal("expected an error for a nonexistent input file")
	}
}

func TestValidateInputFileAcceptsAnExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.xes")
	if err := os.WriteFile(path, []byte("<log></log>"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := ValidateInputFile(path); err != nil {
		t.Fatalf("ValidateInputFile: %v", err)
	}
}

func TestValidateFormatAcceptsKnownFormats(t *testing.T) {
	for _, f := range []string{"xes", "CSV", "jsonl"} {
		if err := ValidateFormat(f); err != nil {
			t.Errorf("ValidateFormat(%q): %v", f, err)
		}
	}
	if err := ValidateFormat("parquet"); err == nil {
		t.Fatal("expected an unsupported format to be rejected")
	}
}

func TestSanitizeUTF8ReplacesInvalidSequences(t *testing.T) {
	valid := []byte("submit")
	if got := SanitizeUTF8(valid); string(got) != "submit" {
		t.Fatalf("expected valid UTF-8 to pass through unchanged, got %q", got)
	}

	invalid := []byte{'a', 0xff, 'b'}
	got := SanitizeUTF8(invalid)
	if string(got) == string(invalid) {
		t.Fatal("expected invalid bytes to be replaced")
	}
}

func TestTruncateStringAddsEllipsisWhenOverMax(t *testing.T) {
	if got := TruncateString("short", 10); got != "short" {
		t.Fatalf("expected no truncation, got %q", got)
	}
	if got := TruncateString("a long string value", 8); got != "a lon..." {
		t.Fatalf("expected truncation with an ellipsis, got %q", got)
	}
}

func TestNormalizeLineEndingsConvertsCRLFAndCR(t *testing.T) {
	got := NormalizeLineEndings([]byte("a\r\nb\rc\n"))
	if string(got) != "a\nb\nc\n" {
		t.Fatalf("expected normalized line endings, got %q", got)
	}
}

func TestValidateConfigAggregatesErrors(t *testing.T) {
	result := ValidateConfig(filepath.Join(t.TempDir(), "missing.xes"), filepath.Join(t.TempDir(), "out.txt"), "parquet")
	if result.Valid {
		t.Fatal("expected an invalid result for a missing input and bad format")
	}
	if len(result.Errors) < 2 {
		t.Fatalf("expected at least 2 errors, got %d", len(result.Errors))
	}
}
