package errors

import (
	"errors"
	"testing"
)

// Test codes for testing
var (
	testCode  = MustNewCode("test.code")
	testCode2 = MustNewCode("test.code2")
)

func TestNew(t *testing.T) {
	err := New(CommonInternal, "test failure", nil)

	if err.Message != "test failure" {
		t.Errorf("Expected message 'test failure', got '%s'", err.Message)
	}

	if err.Code.String() != "common.internal" {
		t.Errorf("Expected code 'common.internal', got '%s'", err.Code.String())
	}

	if err.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}

	if len(err.Stack) == 0 {
		t.Error("Expected stack trace to be captured")
	}
}

func TestNewWithCause(t *testing.T) {
	cause := errors.New("underlying failure")
	err := New(testCode, "operation failed", cause)

	if err.Cause != cause {
		t.Error("Expected cause to be retained")
	}

	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to find the cause through Unwrap")
	}

	expected := "operation failed: underlying failure"
	if err.Error() != expected {
		t.Errorf("Expected '%s', got '%s'", expected, err.Error())
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CommonInternal, "test failure with %s", "formatting")

	expected := "test failure with formatting"
	if err.Message != expected {
		t.Errorf("Expected message '%s', got '%s'", expected, err.Message)
	}
}

func TestAddContext(t *testing.T) {
	err := New(testCode, "test failure", nil).
		AddContext("path", "/tmp/data").
		AddContext("table", "events")

	if err.Context["path"] != "/tmp/data" {
		t.Errorf("Expected context path '/tmp/data', got '%s'", err.Context["path"])
	}
	if err.Context["table"] != "events" {
		t.Errorf("Expected context table 'events', got '%s'", err.Context["table"])
	}
}

func TestHasCode(t *testing.T) {
	err := New(testCode, "test failure", nil)

	if !HasCode(err, testCode) {
		t.Error("Expected HasCode to match the error's code")
	}
	if HasCode(err, testCode2) {
		t.Error("Expected HasCode to reject a different code")
	}
	if HasCode(errors.New("plain"), testCode) {
		t.Error("Expected HasCode to reject a foreign error")
	}
}

func TestAsError(t *testing.T) {
	if AsError(nil) != nil {
		t.Error("Expected AsError(nil) to be nil")
	}

	internal := New(testCode, "already internal", nil)
	if AsError(internal) != internal {
		t.Error("Expected AsError to pass through internal errors")
	}

	converted := AsError(errors.New("plain"))
	if converted.Code.String() != "common.internal" {
		t.Errorf("Expected foreign errors to map to common.internal, got '%s'", converted.Code.String())
	}
}
