package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapPreservesCauseAndCode(t *testing.T) {
	cause := errors.New("disk offline")
	err := Wrap(cause, CodeWriteFailed, "failed to write report")

	if !errors.Is(err, err) {
		t.Fatal("expected an error to be Is-equal to itself")
	}
	if err.Unwrap() != cause {
		t.Fatalf("expected Unwrap to return the cause, got %v", err.Unwrap())
	}
	if GetCode(err) != CodeWriteFailed {
		t.Fatalf("expected code %v, got %v", CodeWriteFailed, GetCode(err))
	}
	if !IsCode(err, CodeWriteFailed) {
		t.Fatal("expected IsCode to match on CodeWriteFailed")
	}
}

func TestWithContextAppearsInErrorString(t *testing.T) {
	err := MissingField("activity", []string{"case_id", "timestamp"})

	msg := err.Error()
	if !errors.Is(err, err) {
		t.Fatal("expected self-match")
	}
	if err.Code != CodeMissingField {
		t.Fatalf("expected CodeMissingField, got %v", err.Code)
	}
	if !strings.Contains(msg, "field=activity") {
		t.Fatalf("expected the field context in the error message, got %q", msg)
	}
}

func TestIsFatalAndIsRetryableClassifyByCode(t *testing.T) {
	if !IsFatal(UnsatisfiableInvariant("AFby(a,b)")) {
		t.Fatal("expected UnsatisfiableInvariant to be fatal")
	}
	if IsRetryable(UnsatisfiableInvariant("AFby(a,b)")) {
		t.Fatal("expected UnsatisfiableInvariant to not be retryable")
	}
	if !IsRetryable(New(CodeTimeout, "timed out")) {
		t.Fatal("expected a timeout error to be retryable")
	}
}

func TestMultiErrorCombinedCollapsesSingleError(t *testing.T) {
	var multi MultiError
	if multi.HasErrors() {
		t.Fatal("expected an empty MultiError to have no errors")
	}
	if multi.Combined() != nil {
		t.Fatal("expected Combined() on an empty MultiError to be nil")
	}

	only := errors.New("one problem")
	multi.Add(only)
	if multi.Combined() != only {
		t.Fatalf("expected Combined() with one error to return it directly, got %v", multi.Combined())
	}

	multi.Add(errors.New("a second problem"))
	if multi.Combined() == only {
		t.Fatal("expected Combined() with two errors to return the MultiError, not the first error")
	}
}
