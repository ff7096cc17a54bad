// Package naming turns qualified type names into wire identifiers and keeps
// field names unique within a message.
package naming

import (
	"strconv"
	"strings"

	"github.com/broady/restproto/protogen/ir"
)

// Nesting separators inserted before the simple name.
const (
	TopLevelSeparator = "___"
	PublicSeparator   = "_INNER_"
	HiddenSeparator   = "_HIDDEN_"
)

// CollisionSeparator joins a colliding field name and its counter.
const CollisionSeparator = "___"

// Separator returns the separator for a nesting kind.
func Separator(k ir.NestingKind) string {
	switch k {
	case ir.PublicNested:
		return PublicSeparator
	case ir.HiddenNested:
		return HiddenSeparator
	default:
		return TopLevelSeparator
	}
}

// Mangle returns the wire identifier for a qualified type name.
// Package separators become '_' and the nesting separator is inserted before
// the simple name:
//
//	com.example.User            TopLevel     -> com_example___User
//	com.example.Outer$Inner     PublicNested -> com_example_Outer_INNER_Inner
//	com.example.Outer$Inner     HiddenNested -> com_example_Outer_HIDDEN_Inner
func Mangle(qualifiedName string, nesting ir.NestingKind) string {
	prefix, simple := ir.SplitQualifiedName(qualifiedName)
	return sanitize(prefix) + Separator(nesting) + sanitize(simple)
}

// MangleClass mangles a class descriptor's name.
func MangleClass(d *ir.ClassDescriptor) string {
	return Mangle(d.QualifiedName, d.Nesting)
}

// sanitize replaces every character that is not valid in a proto identifier.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// FieldName makes a source field name a valid proto identifier: invalid
// characters become '_' and a leading digit gets a '_' prefix.
//
//	first-name -> first_name
//	2fa        -> _2fa
func FieldName(s string) string {
	s = sanitize(s)
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		return "_" + s
	}
	return s
}

// Names tracks the names used within one message. Lookups are
// case-insensitive and also fold underscores the way proto3 derives JSON
// names, so two accepted names never clash on the wire.
type Names struct {
	used  map[string]struct{}
	count int
}

// NewNames returns an empty name set.
func NewNames() *Names {
	return &Names{used: make(map[string]struct{})}
}

// Resolve returns proposed, made a valid identifier by FieldName, if it is
// unused, otherwise with the smallest "___<n>" suffix (n >= 1) that is
// unused. The result is recorded.
func (n *Names) Resolve(proposed string) string {
	proposed = FieldName(proposed)
	name := proposed
	for i := 1; n.taken(name); i++ {
		name = proposed + CollisionSeparator + strconv.Itoa(i)
	}
	n.record(name)
	return name
}

// Has reports whether name, or a name that folds to the same key, is used.
func (n *Names) Has(name string) bool {
	return n.taken(FieldName(name))
}

// Len returns the number of recorded names.
func (n *Names) Len() int {
	return n.count
}

func (n *Names) taken(name string) bool {
	if _, ok := n.used[strings.ToLower(name)]; ok {
		return true
	}
	_, ok := n.used[jsonKey(name)]
	return ok
}

func (n *Names) record(name string) {
	n.count++
	n.used[strings.ToLower(name)] = struct{}{}
	n.used[jsonKey(name)] = struct{}{}
}

// jsonKey is the lower-cased proto3 JSON name, prefixed so it cannot be
// confused with a raw lower-cased name.
func jsonKey(name string) string {
	return "\x00" + strings.ToLower(JSONName(name))
}

// JSONName derives the proto3 default JSON name: underscores are dropped and
// the following letter is upper-cased.
func JSONName(name string) string {
	var b strings.Builder
	upper := false
	for _, r := range name {
		if r == '_' {
			upper = true
			continue
		}
		if upper && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		upper = false
		b.WriteRune(r)
	}
	return b.String()
}
