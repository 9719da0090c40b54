package draftsync

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

type exprEvaluator struct {
	evaluatorConfig
}

func (e *exprEvaluator) Engine() string { return EngineExpr }

// Compile checks expression with undefined variables allowed, since step
// sections are only known once a payload is built.
func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	program, err := loadProgram(e.cache, programKey(EngineExpr, e.functions.Names(), expression), func() (*exprvm.Program, error) {
		return exprlang.Compile(expression, e.options()...)
	})
	if err != nil {
		return nil, wrapEvaluationError(EngineExpr, expression, "", err)
	}
	return exprRule{program: program}, nil
}

func (e *exprEvaluator) options() []exprlang.Option {
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	registry := e.functions
	if registry == nil {
		return options
	}
	options = append(options, exprlang.Function(varCall, func(args ...any) (any, error) {
		return callFunction(registry, args)
	}))
	for _, name := range registry.Names() {
		name := name
		options = append(options, exprlang.Function(name, func(args ...any) (any, error) {
			return registry.Call(name, args...)
		}))
	}
	return options
}

type exprRule struct {
	program *exprvm.Program
}

func (r exprRule) Evaluate(ctx RuleContext) (any, error) {
	return exprlang.Run(r.program, ruleVars(ctx))
}
