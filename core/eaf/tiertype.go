package eaf

import (
	cerrors "github.com/tierline/elan/core/errors"
	"github.com/tierline/elan/core/xml"
)

// Stereotype is the structural constraint governing how a tier's
// annotations relate to time and to a parent tier.
type Stereotype string

// The fixed set of stereotypes defined by the EAF schema. The zero-like
// StereotypeNone means plain time-alignable annotations with no parent
// constraint.
const (
	StereotypeNone                Stereotype = "None"
	StereotypeTimeSubdivision     Stereotype = "Time_Subdivision"
	StereotypeSymbolicSubdivision Stereotype = "Symbolic_Subdivision"
	StereotypeSymbolicAssociation Stereotype = "Symbolic_Association"
	StereotypeIncludedIn          Stereotype = "Included_In"
)

// Valid reports whether s is one of the fixed stereotype values.
func (s Stereotype) Valid() bool {
	switch s {
	case StereotypeNone, StereotypeTimeSubdivision, StereotypeSymbolicSubdivision,
		StereotypeSymbolicAssociation, StereotypeIncludedIn:
		return true
	}
	return false
}

// TimeAlignable reports whether annotations of this stereotype carry their
// own time anchors. Only None and Time_Subdivision are time-alignable.
func (s Stereotype) TimeAlignable() bool {
	return s == StereotypeNone || s == StereotypeTimeSubdivision
}

// TierType defines a named annotation category and its stereotype.
// Identity is by name; instances are immutable once built and shared by
// every tier referencing the type.
type TierType struct {
	Name       string
	Stereotype Stereotype
}

// NewTierType constructs a TierType, rejecting an empty name or a
// stereotype outside the fixed enum.
func NewTierType(name string, stereotype Stereotype) (*TierType, error) {
	if name == "" {
		return nil, cerrors.NewValidation("name", "tier type name must be non-empty")
	}
	if !stereotype.Valid() {
		return nil, &cerrors.ValidationError{
			Field:   "stereotype",
			Value:   string(stereotype),
			Message: "unknown stereotype",
		}
	}
	return &TierType{Name: name, Stereotype: stereotype}, nil
}

// DefaultTierType returns the type referenced by default tiers.
func DefaultTierType() *TierType {
	return &TierType{Name: DefaultTypeName, Stereotype: StereotypeNone}
}

// TierTypeFromTag builds a TierType from a LINGUISTIC_TYPE element. The
// CONSTRAINTS attribute, when present, supplies the stereotype; absence
// means StereotypeNone.
func TierTypeFromTag(tag *xml.Node) (*TierType, error) {
	if tag == nil || tag.Name() != "LINGUISTIC_TYPE" {
		return nil, cerrors.NewFormat("EAF", "", "expected a LINGUISTIC_TYPE element")
	}

	name := tag.Attr("LINGUISTIC_TYPE_ID")
	if name == "" {
		return nil, cerrors.NewFormat("EAF", "", "LINGUISTIC_TYPE element missing LINGUISTIC_TYPE_ID")
	}

	stereotype := StereotypeNone
	if tag.HasAttr("CONSTRAINTS") {
		stereotype = Stereotype(tag.Attr("CONSTRAINTS"))
		if !stereotype.Valid() {
			return nil, cerrors.NewFormat("EAF", "", "unknown CONSTRAINTS value "+tag.Attr("CONSTRAINTS"))
		}
	}

	return &TierType{Name: name, Stereotype: stereotype}, nil
}

// ToTag projects the type onto a LINGUISTIC_TYPE element. The attribute
// mapping is exhaustive and fixed for file compatibility:
//
//	None              -> TIME_ALIGNABLE="true", no CONSTRAINTS
//	Time_Subdivision  -> TIME_ALIGNABLE="true", CONSTRAINTS set
//	everything else   -> TIME_ALIGNABLE="false", CONSTRAINTS set
func (t *TierType) ToTag() *xml.Node {
	element := xml.NewElement("LINGUISTIC_TYPE")

	// No support for graphic references yet
	element.SetAttr("GRAPHIC_REFERENCES", "false")
	element.SetAttr("LINGUISTIC_TYPE_ID", t.Name)

	switch t.Stereotype {
	case StereotypeNone:
		element.SetAttr("TIME_ALIGNABLE", "true")
	case StereotypeTimeSubdivision:
		element.SetAttr("TIME_ALIGNABLE", "true")
		element.SetAttr("CONSTRAINTS", string(t.Stereotype))
	default:
		element.SetAttr("TIME_ALIGNABLE", "false")
		element.SetAttr("CONSTRAINTS", string(t.Stereotype))
	}

	return element
}
