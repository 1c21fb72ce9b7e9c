// Package condition evaluates boolean conditions over the current form values.
// The form controller uses conditions for conditional disablement, for example
// disabling the twitter profile input while no channel name is set.
package condition

// Func reports whether a condition holds for the supplied values. Values is a
// read-only snapshot; implementations must not retain or mutate it.
type Func func(values map[string]any) bool

// Compiler turns a textual rule into a reusable Func. Rules are compiled once
// at registration time and evaluated on every state transition.
type Compiler interface {
	Compile(rule string) (Func, error)
}

// CompilerFunc adapts a function into a Compiler.
type CompilerFunc func(rule string) (Func, error)

// Compile delegates to the underlying function.
func (fn CompilerFunc) Compile(rule string) (Func, error) {
	return fn(rule)
}

// Never is a condition that is always false.
func Never(map[string]any) bool { return false }

// Not negates a condition.
func Not(fn Func) Func {
	if fn == nil {
		return func(map[string]any) bool { return true }
	}
	return func(values map[string]any) bool { return !fn(values) }
}
