package diagnostics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticErrorIncludesPositionWhenSet(t *testing.T) {
	d := New(KindUndefinedName, Position{File: "main.lambda", Line: 3, Col: 5}, "'%s' is undefined", "foo")
	assert.Equal(t, "main.lambda:3:5: undefined name: 'foo' is undefined", d.Error())
}

func TestDiagnosticErrorOmitsPositionWhenUnset(t *testing.T) {
	d := Internal(KindFlattenInvariant, "capture list out of order")
	assert.Equal(t, "internal: closure-conversion invariant violated: capture list out of order", d.Error())
}

func TestKindStringFallsBackForUnknownKind(t *testing.T) {
	assert.Equal(t, "error", Kind(999).String())
}

func TestLoggerAccumulatesInReportOrder(t *testing.T) {
	l := NewLogger()
	assert.False(t, l.HasErrors())
	assert.Equal(t, 0, l.Len())

	l.Report(New(KindParse, Position{File: "a.lambda", Line: 1, Col: 1}, "unexpected token"))
	l.Report(New(KindUndefinedName, Position{File: "a.lambda", Line: 2, Col: 1}, "'x' is undefined"))

	require.True(t, l.HasErrors())
	require.Equal(t, 2, l.Len())
	diags := l.Diagnostics()
	assert.Equal(t, KindParse, diags[0].Kind)
	assert.Equal(t, KindUndefinedName, diags[1].Kind)
}

func TestLoggerRenderProducesOneLinePerDiagnostic(t *testing.T) {
	l := NewLogger()
	l.Report(New(KindParse, Position{File: "a.lambda", Line: 1, Col: 1}, "unexpected token"))
	l.Report(Internal(KindCLI, "boom"))

	out := l.Render()
	assert.Contains(t, out, "a.lambda:1:1")
	assert.Contains(t, out, "unexpected token")
	assert.Contains(t, out, "boom")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}
