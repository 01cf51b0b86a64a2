package core

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// EvaluateGate runs a resource's optional "when" expression against the
// resolved params and reports whether the resource should proceed. An empty
// expression always passes. This is the trigger for the Planned -> Skipped
// transition named in the state machine but never wired to anything in the
// distilled core (§10.2).
func EvaluateGate(when string, params map[string]interface{}) (bool, error) {
	if when == "" {
		return true, nil
	}
	program, err := expr.Compile(when, expr.Env(params), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("when expression %q: %w", when, err)
	}
	out, err := expr.Run(program, params)
	if err != nil {
		return false, fmt.Errorf("when expression %q: %w", when, err)
	}
	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("when expression %q: did not evaluate to a boolean", when)
	}
	return result, nil
}
