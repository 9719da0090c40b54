package draftsync

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "basics.title != ''", "manual", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
	if evalErr.Expr != "basics.title != ''" {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if evalErr.Trigger != "manual" {
		t.Fatalf("expected trigger metadata, got %q", evalErr.Trigger)
	}
	if !errors.Is(evalErr.Err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapEvaluationError("cel", "rule", "timer", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
	if existing.Trigger != "timer" {
		t.Fatalf("trigger should be filled, got %q", existing.Trigger)
	}
}

func TestSaveErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&SaveError{Trigger: TriggerManual, Message: "server said no", Err: cause})

	if !errors.Is(err, cause) {
		t.Fatalf("expected SaveError to unwrap to its cause")
	}
	msg := err.Error()
	if !strings.Contains(msg, "manual save of <new>") || !strings.Contains(msg, "server said no") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Rule: "identity", Reason: "title or category required"}
	if got := err.Error(); got != "draftsync: validation identity failed: title or category required" {
		t.Fatalf("unexpected message %q", got)
	}
	var target *ValidationError
	if !errors.As(error(err), &target) {
		t.Fatalf("expected errors.As to match ValidationError")
	}
}
