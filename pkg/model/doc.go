// Package model defines the declarative form model consumed by the form
// controller, the validation engine, and the renderers. A FormModel lists its
// fields as a tree: objects carry Nested children, arrays carry an Items
// template. Fixed-size arrays (MaxItems set, Dynamic false) expand into one
// slot per index; dynamic arrays are field arrays whose rows carry a stable
// identity and are addressed with the `*` wildcard (for example
// "phNumbers.*.number") when rules are registered.
//
// Validation rules use the ValidationRule* identifiers. Length and numeric
// bounds encode their threshold in Params["value"], pattern rules keep the
// expression in Params["pattern"], and named custom rules (sync or async)
// store the lookup name in Params["name"] so they can be resolved from a
// validation registry at bind time.
package model
