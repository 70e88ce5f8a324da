package graph

import "fmt"

// Many is the upper bound of an unbounded multiplicity.
const Many = -1

// Multiplicity is a cardinality range [Lower..Upper]; Upper is Many when
// unbounded.
type Multiplicity struct {
	Lower int
	Upper int
}

// Canonical multiplicities. The registry hands out these pointers for the
// matching bounds so they can be compared by identity.
var (
	PureOne      = &Multiplicity{Lower: 1, Upper: 1}
	ZeroOne      = &Multiplicity{Lower: 0, Upper: 1}
	ZeroMany     = &Multiplicity{Lower: 0, Upper: Many}
	OneMany      = &Multiplicity{Lower: 1, Upper: Many}
	PureZero     = &Multiplicity{Lower: 0, Upper: 0}
	multByName   = map[string]*Multiplicity{"one": PureOne, "zeroone": ZeroOne, "zeromany": ZeroMany, "onemany": OneMany, "zero": PureZero}
	canonicalSet = []*Multiplicity{PureOne, ZeroOne, ZeroMany, OneMany, PureZero}
)

// MultiplicityByName returns a canonical multiplicity by its interned name
// ("one", "zeroone", "zeromany", "onemany", "zero").
func MultiplicityByName(name string) (*Multiplicity, bool) {
	m, ok := multByName[name]
	return m, ok
}

// NewMultiplicity returns the canonical instance for the bounds when there is
// one, and a fresh value otherwise.
func NewMultiplicity(lower, upper int) *Multiplicity {
	for _, m := range canonicalSet {
		if m.Lower == lower && m.Upper == upper {
			return m
		}
	}
	return &Multiplicity{Lower: lower, Upper: upper}
}

// IsUnbounded reports whether the upper bound is infinite.
func (m *Multiplicity) IsUnbounded() bool { return m.Upper == Many }

// IsToOne reports whether the multiplicity is exactly [1].
func (m *Multiplicity) IsToOne() bool { return m.Lower == 1 && m.Upper == 1 }

// IsZeroOne reports whether the multiplicity is [0..1].
func (m *Multiplicity) IsZeroOne() bool { return m.Lower == 0 && m.Upper == 1 }

// IsToMany reports whether more than one value may be present.
func (m *Multiplicity) IsToMany() bool { return m.Upper == Many || m.Upper > 1 }

// Equal compares bounds.
func (m *Multiplicity) Equal(o *Multiplicity) bool {
	return m.Lower == o.Lower && m.Upper == o.Upper
}

// Subsumes reports whether every count legal for o is legal for m.
func (m *Multiplicity) Subsumes(o *Multiplicity) bool {
	if m.Lower > o.Lower {
		return false
	}
	if m.Upper == Many {
		return true
	}
	return o.Upper != Many && o.Upper <= m.Upper
}

// String prints the multiplicity the way Pure does: [1], [0..1], [*], [1..*].
func (m *Multiplicity) String() string {
	switch {
	case m.Upper == Many && m.Lower == 0:
		return "[*]"
	case m.Upper == Many:
		return fmt.Sprintf("[%d..*]", m.Lower)
	case m.Lower == m.Upper:
		return fmt.Sprintf("[%d]", m.Lower)
	default:
		return fmt.Sprintf("[%d..%d]", m.Lower, m.Upper)
	}
}

// Signature returns the compact code used in terse function signatures:
// "1" for [1], "MANY" for [*], otherwise "$lo_hi$".
func (m *Multiplicity) Signature() string {
	switch {
	case m.Upper == Many && m.Lower == 0:
		return "MANY"
	case m.Lower == m.Upper:
		return fmt.Sprintf("%d", m.Lower)
	case m.Upper == Many:
		return fmt.Sprintf("$%d_MANY$", m.Lower)
	default:
		return fmt.Sprintf("$%d_%d$", m.Lower, m.Upper)
	}
}

// MaxMultiplicity returns the smallest range covering both.
func MaxMultiplicity(a, b *Multiplicity) *Multiplicity {
	lower := min(a.Lower, b.Lower)
	upper := Many
	if a.Upper != Many && b.Upper != Many {
		upper = max(a.Upper, b.Upper)
	}
	return NewMultiplicity(lower, upper)
}

// SumMultiplicity adds the bounds of both ranges, as when concatenating.
func SumMultiplicity(a, b *Multiplicity) *Multiplicity {
	upper := Many
	if a.Upper != Many && b.Upper != Many {
		upper = a.Upper + b.Upper
	}
	return NewMultiplicity(a.Lower+b.Lower, upper)
}
