// Package errors provides rich error types for reading LUCON theories.
//
// Errors carry a source location, an excerpt of the surrounding policy text,
// and an optional suggestion, so that a rejected policy load points straight
// at the offending clause:
//
//	[syntax] expected end of clause, found end of input
//	  --> <policy>:1:16
//	  |
//	-> 1 | This is invalid
//	     |                ^
//
// # Error Types
//
// ErrorTypeSyntax: malformed terms, unbalanced brackets, missing full stops
//
// ErrorTypeValidation: clauses that parse but cannot be used, e.g. a variable
// as clause head or an uncompilable has_endpoint pattern
//
// ErrorTypeIO: failures reading the policy source
//
// Several errors are collected into an ErrorList so every problem in a policy
// is reported at once.
package errors
