// Package validation is the rule engine behind the form controller. Each field
// path owns a RuleSet: an ordered list of built-in rules (required, pattern,
// numeric and length bounds) and named custom rules, synchronous or
// asynchronous. Declarative rules from a model.FormModel are compiled through
// a Registry that resolves custom rule names.
//
// Failures are reported as FieldError values carrying a Kind (the error
// taxonomy), the failing rule name, and the message shown to the user.
package validation
