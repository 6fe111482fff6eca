package webhook

import (
	"fmt"
	"strings"
)

// BodyType is a set of request body formats a receiver accepts.
type BodyType int

const (
	BodyTypeJSON           BodyType = 1
	BodyTypeXML            BodyType = 2
	BodyTypeFormURLEncoded BodyType = 4

	bodyTypeAll = BodyTypeJSON | BodyTypeXML | BodyTypeFormURLEncoded
)

// Reasons returned by BodyType.Validate.
const (
	BodyTypeNoFlagsSet             = "no flags set"
	BodyTypeNoMatchingDefinedValue = "no matching defined value"
)

var bodyTypeNames = []struct {
	flag BodyType
	name string
}{
	{BodyTypeJSON, "json"},
	{BodyTypeXML, "xml"},
	{BodyTypeFormURLEncoded, "form"},
}

// Validate returns an empty string for a usable value, otherwise the reason
// the value is rejected.
func (b BodyType) Validate() string {
	switch {
	case b == 0:
		return BodyTypeNoFlagsSet
	case b&^bodyTypeAll != 0:
		return BodyTypeNoMatchingDefinedValue
	default:
		return ""
	}
}

// Has reports whether every flag in f is set in b.
func (b BodyType) Has(f BodyType) bool {
	return f != 0 && b&f == f
}

func (b BodyType) String() string {
	if b == 0 {
		return "none"
	}
	var parts []string
	rest := b
	for _, n := range bodyTypeNames {
		if b&n.flag != 0 {
			parts = append(parts, n.name)
			rest &^= n.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", int(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseBodyType combines named formats ("json", "xml", "form") into a set.
func ParseBodyType(names ...string) (BodyType, error) {
	var b BodyType
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		found := false
		for _, n := range bodyTypeNames {
			if n.name == name {
				b |= n.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown body type %q", raw)
		}
	}
	return b, nil
}
