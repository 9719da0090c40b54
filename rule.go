package draftsync

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Engine names accepted by WithEngine.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// Rule is a named boolean expression evaluated against a payload. The payload
// sections are exposed as top-level variables, one per step, so the course
// identity rule reads `basics.title != "" || basics.category != ""`.
type Rule struct {
	name      string
	expr      string
	engine    string
	evaluator Evaluator
	compiled  CompiledRule
	logger    EvaluatorLogger
}

// RuleOption configures rule construction.
type RuleOption func(*ruleConfig)

type ruleConfig struct {
	engine       string
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	logger       EvaluatorLogger
	errs         []error
}

// WithEngine selects the built-in evaluator: expr (default), cel or js.
func WithEngine(engine string) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.engine = strings.ToLower(strings.TrimSpace(engine))
	}
}

// WithEvaluator supplies a custom evaluator, overriding WithEngine.
func WithEvaluator(e Evaluator) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.evaluator = e
	}
}

// WithProgramCache shares compiled programs between rules.
func WithProgramCache(cache ProgramCache) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry exposes registry functions to the rule expression.
func WithFunctionRegistry(registry *FunctionRegistry) RuleOption {
	return func(cfg *ruleConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the rule.
func WithCustomFunction(name string, fn Function) RuleOption {
	return func(cfg *ruleConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		if err := cfg.functions.Register(name, fn); err != nil {
			cfg.errs = append(cfg.errs, err)
		}
	}
}

// WithEvaluatorLogger records every evaluation of the rule.
func WithEvaluatorLogger(logger EvaluatorLogger) RuleOption {
	return func(cfg *ruleConfig) {
		if logger == nil {
			cfg.logger = noopEvaluatorLogger{}
			return
		}
		cfg.logger = logger
	}
}

// NewRule compiles expr eagerly so syntax errors surface at construction.
func NewRule(name, expr string, opts ...RuleOption) (*Rule, error) {
	name = strings.TrimSpace(name)
	expr = strings.TrimSpace(expr)
	if name == "" {
		return nil, fmt.Errorf("draftsync: rule name must not be empty")
	}
	if expr == "" {
		return nil, fmt.Errorf("draftsync: rule %q expression must not be empty", name)
	}
	cfg := ruleConfig{engine: EngineExpr}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := errors.Join(cfg.errs...); err != nil {
		return nil, fmt.Errorf("draftsync: rule %q: %w", name, err)
	}
	evaluator, err := cfg.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	compiled, err := evaluator.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("draftsync: compile rule %q: %w", name, err)
	}
	logger := cfg.logger
	if logger == nil {
		logger = noopEvaluatorLogger{}
	}
	return &Rule{
		name:      name,
		expr:      expr,
		engine:    evaluatorEngineName(evaluator),
		evaluator: evaluator,
		compiled:  compiled,
		logger:    logger,
	}, nil
}

// MustRule is NewRule that panics on error, for package level defaults.
func MustRule(name, expr string, opts ...RuleOption) *Rule {
	rule, err := NewRule(name, expr, opts...)
	if err != nil {
		panic(err)
	}
	return rule
}

// Name returns the rule name.
func (r *Rule) Name() string { return r.name }

// Expr returns the rule expression.
func (r *Rule) Expr() string { return r.expr }

// Engine returns the evaluator engine name.
func (r *Rule) Engine() string { return r.engine }

// Evaluate runs the compiled rule against ctx.
func (r *Rule) Evaluate(ctx RuleContext) (any, error) {
	if r == nil || r.compiled == nil {
		return nil, ErrNoEvaluator
	}
	ctx = ctx.withDefaults()
	start := time.Now()
	value, err := r.compiled.Evaluate(ctx)
	duration := time.Since(start)
	err = wrapEvaluationError(r.engine, r.expr, ctx.triggerLabel(), err)
	r.logger.LogEvaluation(EvaluatorLogEvent{
		Rule:     r.name,
		Engine:   r.engine,
		Expr:     r.expr,
		Trigger:  ctx.triggerLabel(),
		Duration: duration,
		Err:      err,
	})
	return value, err
}

// Check evaluates the rule against payload and requires a boolean result.
func (r *Rule) Check(payload *DraftPayload, trigger Trigger) (bool, error) {
	if payload == nil {
		return false, fmt.Errorf("draftsync: rule %q: payload is nil", r.name)
	}
	value, err := r.Evaluate(RuleContext{
		Snapshot: payload.ruleSnapshot(),
		Trigger:  trigger.String(),
		Metadata: map[string]any{
			"resource_id": payload.ResourceID(),
			"revision":    payload.Revision(),
		},
	})
	if err != nil {
		return false, err
	}
	ok, isBool := value.(bool)
	if !isBool {
		return false, fmt.Errorf("draftsync: rule %q returned %T, want bool", r.name, value)
	}
	return ok, nil
}

func (cfg ruleConfig) resolveEvaluator() (Evaluator, error) {
	if cfg.evaluator != nil {
		return cfg.evaluator, nil
	}
	return NewEvaluator(cfg.engine, EvaluatorCache(cfg.programCache), EvaluatorFunctions(cfg.functions))
}
