//go:build js_eval

package draftsync

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	evaluatorConfig
}

func newJSEvaluator(cfg evaluatorConfig) (Evaluator, error) {
	return &jsEvaluator{evaluatorConfig: cfg}, nil
}

func (e *jsEvaluator) Engine() string { return EngineJS }

// Compile wraps expression in a function body so statements cannot leak
// into the runtime.
func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	program, err := loadProgram(e.cache, programKey(EngineJS, nil, expression), func() (*goja.Program, error) {
		return goja.Compile("rule", fmt.Sprintf("(function(){ return (%s); })()", expression), true)
	})
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, expression, "", err)
	}
	return &jsRule{functions: e.functions, program: program}, nil
}

type jsRule struct {
	functions *FunctionRegistry
	program   *goja.Program
}

// Evaluate runs the program on a fresh runtime; goja runtimes are not safe
// for concurrent use.
func (r *jsRule) Evaluate(ctx RuleContext) (any, error) {
	vm := goja.New()
	for name, value := range ruleVars(ctx) {
		if err := vm.Set(name, value); err != nil {
			return nil, err
		}
	}
	if registry := r.functions; registry != nil {
		if err := vm.Set(varCall, func(args ...any) (any, error) {
			return callFunction(registry, args)
		}); err != nil {
			return nil, err
		}
		for _, name := range registry.Names() {
			name := name
			if err := vm.Set(name, func(args ...any) (any, error) {
				return registry.Call(name, args...)
			}); err != nil {
				return nil, err
			}
		}
	}
	value, err := vm.RunProgram(r.program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}
