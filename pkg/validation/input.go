// Package validation provides input validation and sanitization for trace
// sources and event-tuple fields.
package validation

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	minererrors "github.com/logminer/logminer/pkg/errors"
)

// MaxFileSize is the maximum allowed input file size (10GB).
const MaxFileSize = 10 * 1024 * 1024 * 1024

// MaxPathLength is the maximum allowed path length.
const MaxPathLength = 4096

// MaxEventTypeLabelLength is the maximum event-type label length.
const MaxEventTypeLabelLength = 256

// ValidateFilePath validates and sanitizes a file path.
func ValidateFilePath(path string) (string, error) {
	if path == "" {
		return "", minererrors.New(minererrors.CodeInvalidFormat, "empty file path")
	}
	if path == "-" {
		return "-", nil
	}
	if len(path) > MaxPathLength {
		return "", minererrors.New(minererrors.CodeInvalidFormat, "path too long").
			WithContext("maxLength", MaxPathLength)
	}

	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") {
		return "", minererrors.New(minererrors.CodeInvalidFormat, "path traversal not allowed")
	}

	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return "", minererrors.Wrap(err, minererrors.CodeInvalidFormat, "invalid path")
	}
	return abs, nil
}

// ValidateInputFile validates that an input file exists and is readable.
func ValidateInputFile(path string) error {
	if path == "-" {
		return nil
	}

	cleanPath, err := ValidateFilePath(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(cleanPath)
	if os.IsNotExist(err) {
		return minererrors.FileNotFound(path)
	}
	if err != nil {
		return minererrors.Wrap(err, minererrors.CodeFileNotFound, "cannot access file")
	}
	if info.IsDir() {
		return minererrors.New(minererrors.CodeInvalidFormat, "path is a directory, expected file").
			WithContext("path", path)
	}
	if info.Size() > MaxFileSize {
		return minererrors.New(minererrors.CodeInvalidFormat, "file exceeds maximum size").
			WithContext("size", info.Size()).
			WithContext("maxSize", MaxFileSize)
	}

	file, err := os.Open(cleanPath)
	if err != nil {
		if os.IsPermission(err) {
			return minererrors.Wrap(err, minererrors.CodeFilePermission, "permission denied")
		}
		return minererrors.Wrap(err, minererrors.CodeFileNotFound, "cannot open file")
	}
	file.Close()
	return nil
}

// ValidateOutputPath validates an output file path.
func ValidateOutputPath(path string) error {
	if path == "-" {
		return nil
	}

	cleanPath, err := ValidateFilePath(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(cleanPath)
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return minererrors.New(minererrors.CodeFileNotFound, "output directory does not exist").
			WithContext("directory", dir)
	}
	if err != nil {
		return minererrors.Wrap(err, minererrors.CodeFileNotFound, "cannot access output directory")
	}
	if !info.IsDir() {
		return minererrors.New(minererrors.CodeInvalidFormat, "parent path is not a directory")
	}
	return nil
}

// ValidateEventTypeLabel validates a parsed event-type label.
func ValidateEventTypeLabel(label string) error {
	if label == "" {
		return minererrors.New(minererrors.CodeMissingField, "empty event type label")
	}
	if len(label) > MaxEventTypeLabelLength {
		return minererrors.New(minererrors.CodeInvalidFormat, "event type label too long").
			WithContext("label", label[:50]+"...").
			WithContext("maxLength", MaxEventTypeLabelLength)
	}
	if !utf8.ValidString(label) {
		return minererrors.New(minererrors.CodeEncodingError, "event type label contains invalid UTF-8")
	}
	return nil
}

// ValidateFormat validates an ingest format string.
func ValidateFormat(format string) error {
	valid := map[string]bool{"xes": true, "csv": true, "jsonl": true}
	format = strings.ToLower(format)
	if !valid[format] {
		return minererrors.New(minererrors.CodeInvalidFormat, "unsupported ingest format").
			WithContext("format", format).
			WithContext("supported", "xes, csv, jsonl")
	}
	return nil
}

// SanitizeUTF8 replaces invalid UTF-8 sequences with the replacement character.
func SanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	result := make([]byte, 0, len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			result = append(result, 0xEF, 0xBF, 0xBD)
			data = data[1:]
		} else {
			result = append(result, data[:size]...)
			data = data[size:]
		}
	}
	return result
}

// TruncateString truncates a string to maxLen, adding "..." if truncated.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}

// NormalizeLineEndings converts all line endings to \n.
func NormalizeLineEndings(data []byte) []byte {
	needsNorm := false
	for _, b := range data {
		if b == '\r' {
			needsNorm = true
			break
		}
	}
	if !needsNorm {
		return data
	}

	result := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\r' {
			result = append(result, '\n')
			if i+1 < len(data) && data[i+1] == '\n' {
				i++
			}
		} else {
			result = append(result, data[i])
		}
	}
	return result
}

// Result holds the result of batch validation.
type Result struct {
	Valid    bool
	Errors   []error
	Warnings []string
}

// ValidateConfig validates a complete ingest-to-mine configuration.
func ValidateConfig(inputPath, outputPath, format string) *Result {
	result := &Result{Valid: true}

	if err := ValidateInputFile(inputPath); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err)
	}
	if err := ValidateOutputPath(outputPath); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err)
	}
	if format != "" {
		if err := ValidateFormat(format); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, err)
		}
	}
	return result
}
