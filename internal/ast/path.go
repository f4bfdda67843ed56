// Package ast holds the path identities and the three tagged-IR tiers
// (surface, HLIR, MLIR) that flow through the compile pipeline.
package ast

import "strings"

// Path is an immutable, ordered sequence of identifier components.
// The first component names a crate; the rest name modules or
// definitions within it. Paths are compared structurally.
type Path struct {
	components []string
}

// NewPath builds a Path from its components. The slice is copied so the
// result is safe to share.
func NewPath(components ...string) Path {
	cs := make([]string, len(components))
	copy(cs, components)
	return Path{components: cs}
}

// Components returns the path's components. Callers must not mutate the
// returned slice.
func (p Path) Components() []string {
	return p.components
}

// Join appends name to the path and returns the result.
func (p Path) Join(name string) Path {
	cs := make([]string, len(p.components)+1)
	copy(cs, p.components)
	cs[len(p.components)] = name
	return Path{components: cs}
}

// JoinPath appends other's components to the path and returns the result.
func (p Path) JoinPath(other Path) Path {
	cs := make([]string, 0, len(p.components)+len(other.components))
	cs = append(cs, p.components...)
	cs = append(cs, other.components...)
	return Path{components: cs}
}

// Crate returns the first component of the path, the crate name.
func (p Path) Crate() string {
	if len(p.components) == 0 {
		return ""
	}
	return p.components[0]
}

// Tail returns the path with its first component removed.
func (p Path) Tail() Path {
	if len(p.components) == 0 {
		return p
	}
	return Path{components: p.components[1:]}
}

// Head returns the first component of the path.
func (p Path) Head() string {
	return p.components[0]
}

// Last returns the last component of the path.
func (p Path) Last() string {
	return p.components[len(p.components)-1]
}

// Len returns the number of components.
func (p Path) Len() int {
	return len(p.components)
}

// Empty reports whether the path has no components.
func (p Path) Empty() bool {
	return len(p.components) == 0
}

// IsInside reports whether p is other, or lies lexically within other;
// that is, other is a prefix of p's components.
func (p Path) IsInside(other Path) bool {
	if len(p.components) < len(other.components) {
		return false
	}
	for i, name := range other.components {
		if p.components[i] != name {
			return false
		}
	}
	return true
}

// Equal reports structural equality.
func (p Path) Equal(other Path) bool {
	if len(p.components) != len(other.components) {
		return false
	}
	for i, name := range p.components {
		if other.components[i] != name {
			return false
		}
	}
	return true
}

// Less imposes the path's lexicographic ordering.
func (p Path) Less(other Path) bool {
	for i := 0; i < len(p.components) && i < len(other.components); i++ {
		if p.components[i] != other.components[i] {
			return p.components[i] < other.components[i]
		}
	}
	return len(p.components) < len(other.components)
}

// String renders the path in "a::b::c" form.
func (p Path) String() string {
	return strings.Join(p.components, "::")
}

// InstancePath identifies a materialized closure instance produced at a
// definition site. ID is a per-path small non-negative integer.
type InstancePath struct {
	Path Path
	ID   int
}

// Equal reports structural equality.
func (p InstancePath) Equal(other InstancePath) bool {
	return p.Path.Equal(other.Path) && p.ID == other.ID
}

// Less imposes an ordering consistent with (Path, ID) tuples.
func (p InstancePath) Less(other InstancePath) bool {
	if !p.Path.Equal(other.Path) {
		return p.Path.Less(other.Path)
	}
	return p.ID < other.ID
}

// String renders the instance path in "path%id" form.
func (p InstancePath) String() string {
	return p.Path.String() + "%" + itoa(p.ID)
}

// ImplementationPath identifies a single flat function body.
// LambdaID counts lambdas within a definition; ContinuationID counts
// continuation frames within one lambda. (0, 0) is the definition's
// entry point.
type ImplementationPath struct {
	Path           Path
	LambdaID       int
	ContinuationID int
}

// Equal reports structural equality.
func (p ImplementationPath) Equal(other ImplementationPath) bool {
	return p.Path.Equal(other.Path) && p.LambdaID == other.LambdaID && p.ContinuationID == other.ContinuationID
}

// Less imposes an ordering consistent with (Path, LambdaID, ContinuationID).
func (p ImplementationPath) Less(other ImplementationPath) bool {
	if !p.Path.Equal(other.Path) {
		return p.Path.Less(other.Path)
	}
	if p.LambdaID != other.LambdaID {
		return p.LambdaID < other.LambdaID
	}
	return p.ContinuationID < other.ContinuationID
}

// String renders the implementation path in "path!lambda!cont" form.
func (p ImplementationPath) String() string {
	return p.Path.String() + "!" + itoa(p.LambdaID) + "!" + itoa(p.ContinuationID)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
