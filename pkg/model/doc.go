// Package model defines the typed survey model exchanged with the form API:
// sessions, step descriptors, questions with their validation and
// conditional-display rules, themes and completion payloads. Every type
// carries camelCase JSON tags matching the REST envelope payloads so clients
// can decode responses directly. Step descriptors and questions are supplied
// by the server and treated as immutable; the client replaces them wholesale
// on every transition and never edits them in place.
package model
