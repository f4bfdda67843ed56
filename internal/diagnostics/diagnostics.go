// Package diagnostics defines the compiler's typed error taxonomy and a
// colorized renderer for reporting them, in the spirit of
// hhramberg-go-vslc/src/util/perror.go's error-carrying-position
// convention. Since this compiler is single-threaded and non-suspending
// (spec §5), Logger is a plain buffered collector with no goroutine or
// channel plumbing behind it.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Kind tags the taxonomy of compiler error a Diagnostic belongs to.
type Kind int

const (
	KindTokenize Kind = iota
	KindParse
	KindUnresolvedCrate
	KindUnresolvedModule
	KindCyclicDependency
	KindRedefinition
	KindUndefinedName
	KindPrivateAccess
	KindImpureInPure
	KindNonModuleMember
	KindSuperAtRoot
	KindFlattenInvariant
	KindInstantiateCannotEvaluate
	KindEmitUnsupportedTarget
	KindCLI
)

var kindNames = map[Kind]string{
	KindTokenize:                  "tokenize error",
	KindParse:                     "parse error",
	KindUnresolvedCrate:           "unresolved crate",
	KindUnresolvedModule:          "unresolved module",
	KindCyclicDependency:          "cyclic dependency",
	KindRedefinition:              "redefinition",
	KindUndefinedName:             "undefined name",
	KindPrivateAccess:             "private access",
	KindImpureInPure:              "impure call in pure context",
	KindNonModuleMember:           "not a module member",
	KindSuperAtRoot:               "'super' has no parent at crate root",
	KindFlattenInvariant:          "internal: closure-conversion invariant violated",
	KindInstantiateCannotEvaluate: "cannot evaluate at compile time",
	KindEmitUnsupportedTarget:     "unsupported target architecture",
	KindCLI:                      "command failed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "error"
}

// Position locates a diagnostic in a source file.
type Position struct {
	File string
	Line int
	Col  int
}

func (p Position) String() string {
	if p.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Diagnostic is one compiler error, typed and positioned.
type Diagnostic struct {
	Kind Kind
	Pos  Position
	Msg  string
}

func (d Diagnostic) Error() string {
	if d.Pos.File != "" {
		return fmt.Sprintf("%s: %s: %s", d.Pos, d.Kind, d.Msg)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Msg)
}

// New builds a Diagnostic at the given position.
func New(kind Kind, pos Position, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Internal builds a position-less internal-invariant Diagnostic, used for
// conditions that indicate a compiler bug rather than bad input.
func Internal(kind Kind, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Logger buffers diagnostics reported during a compile and renders them.
type Logger struct {
	diags []Diagnostic
}

// NewLogger returns an empty Logger.
func NewLogger() *Logger {
	return &Logger{}
}

// Report appends a diagnostic. Nil-Kind zero values are never passed in
// practice, but Report never panics on a zero Diagnostic.
func (l *Logger) Report(d Diagnostic) {
	l.diags = append(l.diags, d)
}

// Len returns the number of diagnostics reported so far.
func (l *Logger) Len() int {
	return len(l.diags)
}

// HasErrors reports whether any diagnostic has been reported.
func (l *Logger) HasErrors() bool {
	return len(l.diags) > 0
}

// Diagnostics returns the reported diagnostics in report order.
func (l *Logger) Diagnostics() []Diagnostic {
	return l.diags
}

var (
	errorLabel = color.New(color.FgRed, color.Bold)
	posLabel   = color.New(color.FgHiBlack)
	kindLabel  = color.New(color.FgYellow)
)

// Render renders every buffered diagnostic as a colorized, human-readable
// report, one per line.
func (l *Logger) Render() string {
	var b strings.Builder
	for _, d := range l.diags {
		b.WriteString(errorLabel.Sprint("error"))
		b.WriteString(": ")
		if d.Pos.File != "" {
			b.WriteString(posLabel.Sprint(d.Pos.String()))
			b.WriteString(": ")
		}
		b.WriteString(kindLabel.Sprint(d.Kind.String()))
		b.WriteString(": ")
		b.WriteString(d.Msg)
		b.WriteByte('\n')
	}
	return b.String()
}
