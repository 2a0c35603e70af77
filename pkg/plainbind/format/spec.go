package format

import "strings"

// Spec is a parsed data-format value: "truncate:20" has Name "truncate" and
// Arg "20". Everything after the first colon is the argument, colons
// included.
type Spec struct {
	Name   string
	Arg    string
	HasArg bool
}

// ParseSpec parses a formatter spec. It reports false for an empty spec or
// an empty name.
func ParseSpec(raw string) (Spec, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Spec{}, false
	}
	name, arg, hasArg := strings.Cut(raw, ":")
	spec := Spec{
		Name:   strings.TrimSpace(name),
		Arg:    strings.TrimSpace(arg),
		HasArg: hasArg,
	}
	if spec.Name == "" {
		return Spec{}, false
	}
	return spec, true
}

// String returns the canonical form of the spec.
func (s Spec) String() string {
	if !s.HasArg {
		return s.Name
	}
	return s.Name + ":" + s.Arg
}
