package draftsync

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// maxCELArity bounds the overloads declared for registry functions, since CEL
// has no variadic declarations.
const maxCELArity = 4

type celEvaluator struct {
	evaluatorConfig
}

func (e *celEvaluator) Engine() string { return EngineCEL }

// Compile parses expression against the built-in variables. Type checking
// waits for the first payload because every step becomes a declared variable.
func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	env, err := e.env(nil)
	if err != nil {
		return nil, wrapEvaluatorError(EngineCEL, err)
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", issues.Err())
	}
	cache := e.cache
	if cache == nil {
		cache = NewProgramCache(0)
	}
	return &celRule{evaluator: e, cache: cache, expression: expression}, nil
}

func (e *celEvaluator) env(steps []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable(varNow, celgo.TimestampType),
		celgo.Variable(varArgs, celgo.DynType),
		celgo.Variable(varMetadata, celgo.DynType),
		celgo.Variable(varTrigger, celgo.StringType),
	}
	for _, step := range steps {
		opts = append(opts, celgo.Variable(step, celgo.DynType))
	}
	return celgo.NewEnv(append(opts, e.functionDecls()...)...)
}

// functionDecls declares call(name, ...) and every registry function with up
// to maxCELArity dynamic arguments.
func (e *celEvaluator) functionDecls() []celgo.EnvOption {
	registry := e.functions
	if registry == nil {
		return nil
	}
	callOverloads := make([]celgo.FunctionOpt, 0, maxCELArity)
	for arity := 0; arity < maxCELArity; arity++ {
		params := append([]*celgo.Type{celgo.StringType}, dynParams(arity)...)
		callOverloads = append(callOverloads, celgo.Overload(
			fmt.Sprintf("%s_string_dyn%d", varCall, arity),
			params,
			celgo.DynType,
			celgo.FunctionBinding(func(values ...ref.Val) ref.Val {
				return celResult(callFunction(registry, nativeArgs(values)))
			}),
		))
	}
	decls := []celgo.EnvOption{celgo.Function(varCall, callOverloads...)}

	for _, name := range registry.Names() {
		name := name
		overloads := make([]celgo.FunctionOpt, 0, maxCELArity)
		for arity := 1; arity <= maxCELArity; arity++ {
			overloads = append(overloads, celgo.Overload(
				fmt.Sprintf("%s_dyn%d", name, arity),
				dynParams(arity),
				celgo.DynType,
				celgo.FunctionBinding(func(values ...ref.Val) ref.Val {
					return celResult(registry.Call(name, nativeArgs(values)...))
				}),
			))
		}
		decls = append(decls, celgo.Function(name, overloads...))
	}
	return decls
}

func dynParams(n int) []*celgo.Type {
	params := make([]*celgo.Type, n)
	for i := range params {
		params[i] = celgo.DynType
	}
	return params
}

func nativeArgs(values []ref.Val) []any {
	args := make([]any, len(values))
	for i, value := range values {
		args[i] = value.Value()
	}
	return args
}

func celResult(value any, err error) ref.Val {
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if value == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(value)
}

type celRule struct {
	evaluator  *celEvaluator
	cache      ProgramCache
	expression string
}

func (r *celRule) Evaluate(ctx RuleContext) (any, error) {
	vars := ruleVars(ctx)
	steps := sortedKeys(ruleSteps(ctx.Snapshot))
	idents := append(append([]string{}, steps...), r.evaluator.functions.Names()...)
	program, err := loadProgram(r.cache, programKey(EngineCEL, idents, r.expression), func() (celgo.Program, error) {
		env, err := r.evaluator.env(steps)
		if err != nil {
			return nil, err
		}
		ast, issues := env.Compile(r.expression)
		if issues != nil && issues.Err() != nil {
			return nil, issues.Err()
		}
		return env.Program(ast)
	})
	if err != nil {
		return nil, err
	}
	out, _, err := program.Eval(vars)
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}
