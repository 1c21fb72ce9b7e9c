// Package openapi builds form models from OpenAPI documents. The request body
// schema of an operation becomes the form: properties become fields, required
// entries become required rules, and pattern, length, and numeric bounds
// become the matching validation rules. The `x-formgen` extension carries what
// OpenAPI cannot express: labels, placeholders, messages, field order,
// disablement expressions, dynamic arrays, and named custom rules.
package openapi
