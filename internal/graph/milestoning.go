package graph

import "strings"

// Profiles the milestoning rules key on.
const (
	TemporalProfile    = "meta::pure::profiles::temporal"
	MilestoningProfile = "meta::pure::profiles::milestoning"

	GeneratedMilestoningDateProperty = "generatedmilestoningdateproperty"
	GeneratedMilestoningProperty     = "generatedmilestoningproperty"

	AllVersionsSuffix        = "AllVersions"
	AllVersionsInRangeSuffix = "AllVersionsInRange"
	MilestoningRangeProperty = "milestoning"
)

// Temporal is the milestoning stereotype of a class.
type Temporal int

const (
	NotTemporal Temporal = iota
	BusinessTemporal
	ProcessingTemporal
	Bitemporal
)

// temporalStereotypes lists the stereotype values in the temporal profile.
var temporalStereotypes = map[string]Temporal{
	"businesstemporal":   BusinessTemporal,
	"processingtemporal": ProcessingTemporal,
	"bitemporal":         Bitemporal,
}

func (t Temporal) String() string {
	switch t {
	case BusinessTemporal:
		return "businesstemporal"
	case ProcessingTemporal:
		return "processingtemporal"
	case Bitemporal:
		return "bitemporal"
	default:
		return "none"
	}
}

// DateNames returns the date parameter names, in declaration order.
func (t Temporal) DateNames() []string {
	switch t {
	case BusinessTemporal:
		return []string{"businessDate"}
	case ProcessingTemporal:
		return []string{"processingDate"}
	case Bitemporal:
		return []string{"processingDate", "businessDate"}
	default:
		return nil
	}
}

// IsSingleDate reports whether t has exactly one date dimension.
func (t Temporal) IsSingleDate() bool {
	return t == BusinessTemporal || t == ProcessingTemporal
}

// FormattedDateNames renders the date names as "[a, b]" for messages.
func (t Temporal) FormattedDateNames() string {
	return "[" + strings.Join(t.DateNames(), ", ") + "]"
}

// TemporalOf returns the milestoning stereotype carried by t or by its
// closest temporal supertype.
func TemporalOf(t Type) Temporal {
	c, ok := t.(*Class)
	if !ok {
		return NotTemporal
	}
	for _, g := range GeneralizationResolutionOrder(c) {
		for _, s := range g.Base().Stereotypes {
			if s.Profile == nil || s.Profile.Path() != TemporalProfile {
				continue
			}
			if tmp, ok := temporalStereotypes[s.Value]; ok {
				return tmp
			}
		}
	}
	return NotTemporal
}

// DeclaredTemporal returns the milestoning stereotype t declares itself,
// ignoring supertypes. Generated milestoning members key on this.
func DeclaredTemporal(t Type) Temporal {
	c, ok := t.(*Class)
	if !ok {
		return NotTemporal
	}
	for _, s := range c.Stereotypes {
		if s.Profile == nil || s.Profile.Path() != TemporalProfile {
			continue
		}
		if tmp, ok := temporalStereotypes[s.Value]; ok {
			return tmp
		}
	}
	return NotTemporal
}

// IsGeneratedMilestoning reports whether a property carries one of the
// generated milestoning stereotypes.
func IsGeneratedMilestoning(p *Property) bool {
	return HasStereotype(p.Stereotypes, MilestoningProfile, GeneratedMilestoningProperty) ||
		HasStereotype(p.Stereotypes, MilestoningProfile, GeneratedMilestoningDateProperty)
}

// IsGeneratedMilestoningQualified reports whether a qualified property was
// generated from a milestoned property.
func IsGeneratedMilestoningQualified(q *QualifiedProperty) bool {
	return HasStereotype(q.Stereotypes, MilestoningProfile, GeneratedMilestoningProperty)
}

// MilestoningDates are the dates in force at a point of an expression
// chain. A nil field means the dimension is not established.
type MilestoningDates struct {
	ProcessingDate ValueSpecification
	BusinessDate   ValueSpecification
}

// Covers reports whether the dates provide every dimension t needs.
func (d *MilestoningDates) Covers(t Temporal) bool {
	if d == nil {
		return false
	}
	switch t {
	case BusinessTemporal:
		return d.BusinessDate != nil
	case ProcessingTemporal:
		return d.ProcessingDate != nil
	case Bitemporal:
		return d.BusinessDate != nil && d.ProcessingDate != nil
	default:
		return true
	}
}

// For returns the dates t needs, in DateNames order.
func (d *MilestoningDates) For(t Temporal) []ValueSpecification {
	var out []ValueSpecification
	for _, name := range t.DateNames() {
		if name == "processingDate" {
			out = append(out, d.ProcessingDate)
		} else {
			out = append(out, d.BusinessDate)
		}
	}
	return out
}
