// Package validation builds per-step answer schemas from server-supplied
// questions.
//
// Each question type maps to a variant carrying its base contract (an
// openapi3.Schema plus a value coercion). Explicit validation rules are folded
// over that base without changing its shape, so a checkbox question with
// length rules still validates a list. Questions hidden by their conditional
// rule are skipped. Schemas are cheap to build and must be rebuilt whenever
// the step changes.
package validation
