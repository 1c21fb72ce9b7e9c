package form

import "errors"

var (
	// ErrNotRegistered is returned when an operation targets a path with no
	// registered rules.
	ErrNotRegistered = errors.New("form: field not registered")
	// ErrNotInitialized is returned when a mutation runs before Init resolved
	// the default values.
	ErrNotInitialized = errors.New("form: controller not initialised")
	// ErrInvalidPath is returned for empty paths or paths that cannot address
	// the value tree.
	ErrInvalidPath = errors.New("form: invalid path")
	// ErrMinRows is returned when removing a field-array row would drop the
	// array below its minimum length.
	ErrMinRows = errors.New("form: minimum rows reached")
	// ErrValuesChanged is returned by HandleSubmit when values kept changing
	// while asynchronous rules ran.
	ErrValuesChanged = errors.New("form: values changed during submit")
)
