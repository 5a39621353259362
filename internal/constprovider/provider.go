// Package constprovider implements the constant-naming capability
// (spec.md §6): a default no-op and a small static, table-driven
// implementation suitable for tests and for callers who want a fixed enum
// table rather than a live Win32-metadata-backed service.
package constprovider

import (
	"fmt"
	"sort"
	"strings"
)

// Provider is the pluggable constant-naming capability the printer and the
// MapNamedReturnConstants refinement pass consume. The core must work with
// NoOp{}, the zero-cost default.
type Provider interface {
	// ExpectedEnumType reports the enum type a call argument is expected
	// to take, if any; the printer consults it for call arguments, and
	// MapNamedReturnConstants takes its enum type from its own
	// configuration rather than from this method. callSymbol matching is
	// case-insensitive and an optional "module!" prefix is stripped before
	// comparison.
	ExpectedEnumType(callSymbol string, argIndex int) (enumType string, ok bool)

	// FormatValue renders value as a member (or OR of members) of
	// enumType, if possible.
	FormatValue(enumType string, value uint64) (formatted string, ok bool)
}

// NoOp never expects an enum type and never formats a value. It is the
// default Provider.
type NoOp struct{}

func (NoOp) ExpectedEnumType(string, int) (string, bool) { return "", false }

func (NoOp) FormatValue(string, uint64) (string, bool) { return "", false }

// EnumMember is one named value of a static enum. Mask is the member's
// underlying value; for a pure enumeration (as opposed to a flag set) each
// member's Mask is simply its exact value.
type EnumMember struct {
	Name string
	Mask uint64
}

// argKey identifies one (symbol, argIndex) expectation slot.
type argKey struct {
	symbol string
	index  int
}

// Static is a table-driven Provider built by the caller (or by tests) ahead
// of time. It is read-only after construction and therefore safe to share
// across concurrent lifters.
type Static struct {
	expected map[argKey]string
	enums    map[string][]EnumMember
}

// NewStatic creates an empty Static provider.
func NewStatic() *Static {
	return &Static{
		expected: make(map[argKey]string),
		enums:    make(map[string][]EnumMember),
	}
}

// ExpectArg registers that argument argIndex of calls to symbol (case
// insensitive, "module!" prefix ignored) is expected to be enumType.
// argIndex of -1 is the convention used for a function's return value.
func (s *Static) ExpectArg(symbol string, argIndex int, enumType string) *Static {
	s.expected[argKey{symbol: normalizeSymbol(symbol), index: argIndex}] = enumType
	if _, ok := s.enums[enumType]; !ok {
		s.enums[enumType] = nil
	}
	return s
}

// AddEnum registers enumType (creating it if new) and appends members to it.
func (s *Static) AddEnum(enumType string, members ...EnumMember) *Static {
	s.enums[enumType] = append(s.enums[enumType], members...)
	return s
}

func normalizeSymbol(symbol string) string {
	if i := strings.IndexByte(symbol, '!'); i >= 0 {
		symbol = symbol[i+1:]
	}
	return strings.ToLower(symbol)
}

// ExpectedEnumType implements Provider.
func (s *Static) ExpectedEnumType(callSymbol string, argIndex int) (string, bool) {
	t, ok := s.expected[argKey{symbol: normalizeSymbol(callSymbol), index: argIndex}]
	return t, ok
}

// FormatValue implements Provider. It tries an exact match first, then flag
// decomposition, then falls back to a hex literal for a known enum type
// with no match; an unrecognized enum type reports ok=false.
func (s *Static) FormatValue(enumType string, value uint64) (string, bool) {
	members, known := s.enums[enumType]
	if !known {
		return "", false
	}
	for _, m := range members {
		if m.Mask == value {
			return m.Name, true
		}
	}
	if value != 0 {
		var hit []EnumMember
		remaining := value
		for _, m := range members {
			if m.Mask == 0 {
				continue
			}
			if m.Mask&(m.Mask-1) != 0 {
				continue // not a power of two; flag decomposition only uses single-bit members
			}
			if remaining&m.Mask == m.Mask {
				hit = append(hit, m)
				remaining &^= m.Mask
			}
		}
		if remaining == 0 && len(hit) > 0 {
			sort.Slice(hit, func(i, j int) bool { return hit[i].Mask > hit[j].Mask })
			names := make([]string, len(hit))
			for i, m := range hit {
				names[i] = m.Name
			}
			return strings.Join(names, " | "), true
		}
	}
	return fmt.Sprintf("0x%X", value), true
}
