package draftsync

import (
	"fmt"
	"sort"
	"strings"
)

// Evaluator compiles rule expressions for one engine.
type Evaluator interface {
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable program bound to a single expression.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// EvaluatorOption configures the built-in evaluators.
type EvaluatorOption func(*evaluatorConfig)

type evaluatorConfig struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// EvaluatorCache shares compiled programs between evaluators.
func EvaluatorCache(cache ProgramCache) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		cfg.cache = cache
	}
}

// EvaluatorFunctions exposes registry functions to expressions, both by name
// and through call(name, args...).
func EvaluatorFunctions(registry *FunctionRegistry) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		cfg.functions = registry.Clone()
	}
}

// NewEvaluator returns the built-in evaluator for engine. The js engine is
// only linked in with the js_eval build tag.
func NewEvaluator(engine string, opts ...EvaluatorOption) (Evaluator, error) {
	var cfg evaluatorConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	switch engine {
	case "", EngineExpr:
		return &exprEvaluator{evaluatorConfig: cfg}, nil
	case EngineCEL:
		return &celEvaluator{evaluatorConfig: cfg}, nil
	case EngineJS:
		return newJSEvaluator(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrNoEvaluator, engine)
	}
}

// engineNamer is implemented by evaluators that report their engine name.
type engineNamer interface {
	Engine() string
}

func evaluatorEngineName(e Evaluator) string {
	if named, ok := e.(engineNamer); ok {
		return named.Engine()
	}
	if e == nil {
		return "unknown"
	}
	return "custom"
}

// Variables every rule sees next to the step sections. A step sharing one of
// these names is hidden from rules.
const (
	varNow      = "now"
	varArgs     = "args"
	varMetadata = "metadata"
	varTrigger  = "trigger"
	varCall     = "call"
)

var builtinVars = []string{varNow, varArgs, varMetadata, varTrigger}

func isBuiltinVar(name string) bool {
	switch name {
	case varNow, varArgs, varMetadata, varTrigger, varCall:
		return true
	}
	return false
}

// ruleSteps returns the step sections of ctx.Snapshot, minus reserved names.
func ruleSteps(snapshot any) map[string]any {
	sections, _ := snapshot.(map[string]any)
	steps := make(map[string]any, len(sections))
	for step, section := range sections {
		if isBuiltinVar(step) {
			continue
		}
		steps[step] = section
	}
	return steps
}

// ruleVars flattens ctx into the variables an expression runs against.
func ruleVars(ctx RuleContext) map[string]any {
	ctx = ctx.withDefaults()
	steps := ruleSteps(ctx.Snapshot)
	vars := make(map[string]any, len(steps)+len(builtinVars))
	for step, section := range steps {
		vars[step] = section
	}
	vars[varNow] = ctx.timestamp()
	vars[varArgs] = ctx.Args
	vars[varMetadata] = ctx.Metadata
	vars[varTrigger] = ctx.Trigger
	return vars
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// callFunction dispatches call(name, args...) to the registry.
func callFunction(registry *FunctionRegistry, args []any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("draftsync: call requires a function name")
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("draftsync: call name must be a string, got %T", args[0])
	}
	return registry.Call(name, args[1:]...)
}

// programKey scopes cached programs by engine and by the identifiers the
// program was compiled against.
func programKey(engine string, idents []string, expression string) string {
	return engine + "|" + strings.Join(idents, ",") + "|" + expression
}

// loadProgram returns the cached program under key or compiles and stores it.
func loadProgram[P any](cache ProgramCache, key string, compile func() (P, error)) (P, error) {
	if cache != nil {
		if cached, ok := cache.Get(key); ok {
			if program, ok := cached.(P); ok {
				return program, nil
			}
		}
	}
	program, err := compile()
	if err != nil {
		return program, err
	}
	if cache != nil {
		cache.Set(key, program)
	}
	return program, nil
}
