// Package extraclass parses extra-class specifications of the form
// "dir:qualifiedName". Each names a class to include in the schema even when
// no resource method reaches it, and the directory its declaration is
// loaded from.
package extraclass

import (
	"fmt"
	"strings"
	"unicode"
)

// Spec is one parsed extra-class specification.
type Spec struct {
	Dir           string
	QualifiedName string
}

func (s Spec) String() string {
	return s.Dir + ":" + s.QualifiedName
}

// SyntaxError reports a malformed specification.
type SyntaxError struct {
	Spec   string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid extra class %q: %s", e.Spec, e.Reason)
}

// ParseList parses a comma-separated list of specifications. Empty items are
// ignored.
func ParseList(list string) ([]Spec, error) {
	var specs []Spec
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		s, err := Parse(item)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// Parse parses one specification. The split happens at the last colon so
// directories with drive letters keep working.
func Parse(spec string) (Spec, error) {
	i := strings.LastIndexByte(spec, ':')
	if i < 0 {
		return Spec{}, &SyntaxError{Spec: spec, Reason: "missing ':' between directory and class name"}
	}
	dir, name := strings.TrimSpace(spec[:i]), strings.TrimSpace(spec[i+1:])
	if dir == "" {
		return Spec{}, &SyntaxError{Spec: spec, Reason: "empty directory"}
	}
	if name == "" {
		return Spec{}, &SyntaxError{Spec: spec, Reason: "empty class name"}
	}
	if reason := checkQualifiedName(name); reason != "" {
		return Spec{}, &SyntaxError{Spec: spec, Reason: reason}
	}
	return Spec{Dir: dir, QualifiedName: name}, nil
}

// checkQualifiedName returns why name is not a dotted identifier path, or "".
// '$' separates member types.
func checkQualifiedName(name string) string {
	for _, seg := range strings.FieldsFunc(name, func(r rune) bool { return r == '.' || r == '$' }) {
		for j, r := range seg {
			if r == '_' || unicode.IsLetter(r) || (j > 0 && unicode.IsDigit(r)) {
				continue
			}
			return fmt.Sprintf("segment %q is not an identifier", seg)
		}
	}
	if strings.Contains(name, "..") || strings.Contains(name, "$$") ||
		strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") ||
		strings.HasPrefix(name, "$") || strings.HasSuffix(name, "$") {
		return "empty name segment"
	}
	return ""
}
