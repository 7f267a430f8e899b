package template

import "fmt"

// LexErrorKind enumerates lexer failures.
type LexErrorKind uint8

const (
	UnterminatedString LexErrorKind = iota
	InvalidCharacter
	InvalidNumber
)

func (k LexErrorKind) String() string {
	switch k {
	case UnterminatedString:
		return "unterminated string"
	case InvalidCharacter:
		return "invalid character"
	case InvalidNumber:
		return "invalid number"
	}
	return fmt.Sprintf("LexErrorKind(%d)", k)
}

// LexError stops the lexer. There is no recovery.
type LexError struct {
	Kind LexErrorKind
	Pos  Position
	Text string
}

func (e *LexError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("%s: %s", e.Pos, e.Kind)
	}
	return fmt.Sprintf("%s: %s %q", e.Pos, e.Kind, e.Text)
}

// ParseErrorKind enumerates parser failures.
type ParseErrorKind uint8

const (
	MismatchedTag ParseErrorKind = iota
	UnexpectedToken
	UnexpectedEOF
	NestingTooDeep
	UnknownFunction
	InvalidInterpolation
)

func (k ParseErrorKind) String() string {
	switch k {
	case MismatchedTag:
		return "mismatched tag"
	case UnexpectedToken:
		return "unexpected token"
	case UnexpectedEOF:
		return "unexpected end of input"
	case NestingTooDeep:
		return "nesting too deep"
	case UnknownFunction:
		return "unknown function"
	case InvalidInterpolation:
		return "invalid interpolation"
	}
	return fmt.Sprintf("ParseErrorKind(%d)", k)
}

// ParseError reports malformed template structure.
type ParseError struct {
	Kind     ParseErrorKind
	Expected string
	Found    string
	Pos      Position
}

func (e *ParseError) Error() string {
	switch {
	case e.Expected != "" && e.Found != "":
		return fmt.Sprintf("%s: %s: expected %s, found %s", e.Pos, e.Kind, e.Expected, e.Found)
	case e.Found != "":
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Found)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Kind)
}

// EvalErrorKind enumerates expression evaluation failures.
type EvalErrorKind uint8

const (
	UndefinedPath EvalErrorKind = iota
	TypeMismatch
	DivisionByZero
)

func (k EvalErrorKind) String() string {
	switch k {
	case UndefinedPath:
		return "undefined path"
	case TypeMismatch:
		return "type mismatch"
	case DivisionByZero:
		return "division by zero"
	}
	return fmt.Sprintf("EvalErrorKind(%d)", k)
}

// EvalError is a failed expression. Path is the source text of the path
// involved, when there is one.
type EvalError struct {
	Kind EvalErrorKind
	Path string
	Msg  string
	Pos  Position
}

func (e *EvalError) Error() string {
	s := fmt.Sprintf("%s: %s", e.Pos, e.Kind)
	if e.Path != "" {
		s += fmt.Sprintf(" %q", e.Path)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
