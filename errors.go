package draftsync

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrClientRequired is returned when a coordinator is built without a
	// persistence client.
	ErrClientRequired = errors.New("draftsync: persistence client is required")
	// ErrMissingIdentifier is returned when a create succeeded but the client
	// did not hand back a usable resource id. The session stays dirty.
	ErrMissingIdentifier = errors.New("draftsync: save succeeded without a resource id")
	// ErrNoResourceID is returned by Publish before the first successful save.
	ErrNoResourceID = errors.New("draftsync: draft has no resource id yet")
	// ErrSavePanicked wraps a panic raised while building or sending a save.
	ErrSavePanicked = errors.New("draftsync: save panicked")
	// ErrClosed is returned by requests made after Close.
	ErrClosed = errors.New("draftsync: coordinator closed")
	// ErrNoEvaluator is returned when a rule has no evaluator to run on.
	ErrNoEvaluator = errors.New("draftsync: evaluator not configured")
)

// ValidationError reports a local rule that rejected a save or publish before
// any network call. It never changes the dirty flag.
type ValidationError struct {
	Rule   string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("draftsync: validation %s failed", e.Rule)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// SaveError reports a failed persistence call. The session stays dirty so the
// next trigger retries.
type SaveError struct {
	Trigger    Trigger
	ResourceID string
	Message    string
	Err        error
}

func (e *SaveError) Error() string {
	if e == nil {
		return "<nil>"
	}
	target := e.ResourceID
	if target == "" {
		target = "<new>"
	}
	msg := fmt.Sprintf("draftsync: %s save of %s failed", e.Trigger, target)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SaveError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine  string
	Expr    string
	Trigger string
	Err     error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("draftsync: %s evaluator %s trigger=%s: %v", e.Engine, describeExpression(e.Expr), e.Trigger, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "draftsync:") {
		return err
	}
	return fmt.Errorf("draftsync: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, trigger string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Trigger == "" {
			evalErr.Trigger = trigger
		}
		return evalErr
	}

	return &EvaluationError{
		Engine:  engine,
		Expr:    expr,
		Trigger: trigger,
		Err:     err,
	}
}
