//go:build !js_eval

package draftsync

import "fmt"

func newJSEvaluator(evaluatorConfig) (Evaluator, error) {
	return nil, fmt.Errorf("%w: js engine requires the js_eval build tag", ErrNoEvaluator)
}
