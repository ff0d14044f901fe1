// Package template implements the flow template pipeline: textual include
// expansion, YAML parsing into an order-preserving document tree, and
// $ref/$allOf reference resolution.
//
// All failures in this package are template-authoring errors. They are
// fatal to loading the flow and are never retried or partially applied.
package template
