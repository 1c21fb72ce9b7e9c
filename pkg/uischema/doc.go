// Package uischema loads presentation overlays for form models. An overlay
// file keys operations by form ID and adjusts labels, placeholders, rule
// messages, disablement expressions, metadata, and sibling order without
// touching the definition that produced the form. The package keeps builders
// unaware of presentation while giving callers a model.Decorator to opt into.
package uischema
