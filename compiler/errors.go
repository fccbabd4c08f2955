package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Compile errors
// ---------------------------------------------------------------------------

// ErrorKind classifies a compile error.
type ErrorKind int

const (
	// UnmatchedOpenBracket reports a '[' with no matching ']'.
	UnmatchedOpenBracket ErrorKind = iota
	// UnmatchedCloseBracket reports a ']' with no matching '['.
	UnmatchedCloseBracket
)

func (k ErrorKind) String() string {
	switch k {
	case UnmatchedOpenBracket:
		return "unmatched '['"
	case UnmatchedCloseBracket:
		return "unmatched ']'"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// CompileError is a validation failure with its source position.
// Compilation never partially succeeds: the first error aborts before
// any instruction executes.
type CompileError struct {
	Kind ErrorKind
	Pos  Position
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s at %s", e.Kind, e.Pos)
}
