package eaf

import (
	"errors"

	cerrors "github.com/tierline/elan/core/errors"
	"github.com/tierline/elan/core/xml"
)

// ErrWrongVariant reports a TIER element whose shape does not match the
// constructor used: a PARENT_REF attribute on a plain tier, or a missing
// one on a subtier.
var ErrWrongVariant = errors.New("tier element variant mismatch")

// Tier is a named annotation track referencing one TierType, optionally
// tagged with participant and annotator metadata. Tier names are unique
// within a document.
type Tier struct {
	Name        string
	Participant string
	Annotator   string
	Type        *TierType
}

// Subtier is a tier whose annotations are structurally dependent on a
// parent tier. Parent holds the parent's name; the Document owns all tier
// lifetimes, so the name doubles as the lookup key into its tier arena.
type Subtier struct {
	Tier
	Parent string
}

// NewTier constructs a Tier. The tier type must be non-nil; an empty name
// is rejected because names key every tier lookup.
func NewTier(name, participant, annotator string, tierType *TierType) (*Tier, error) {
	if name == "" {
		return nil, cerrors.NewValidation("name", "tier name must be non-empty")
	}
	if tierType == nil {
		return nil, cerrors.NewValidation("tierType", "tier type is required")
	}
	return &Tier{
		Name:        name,
		Participant: participant,
		Annotator:   annotator,
		Type:        tierType,
	}, nil
}

// DefaultTier returns a tier with the given name and the default type.
func DefaultTier(name string) *Tier {
	return &Tier{Name: name, Type: DefaultTierType()}
}

// NewSubtier constructs a Subtier. The parent must already exist as a
// constructed Tier; for a subtier parent, pass its embedded Tier.
func NewSubtier(name, participant, annotator string, tierType *TierType, parent *Tier) (*Subtier, error) {
	if parent == nil {
		return nil, cerrors.NewValidation("parent", "subtier parent is required")
	}
	tier, err := NewTier(name, participant, annotator, tierType)
	if err != nil {
		return nil, err
	}
	return &Subtier{Tier: *tier, Parent: parent.Name}, nil
}

// TierFromTag builds a Tier from a TIER element. The referenced TierType
// must be resolved by the caller; a tag carrying a PARENT_REF attribute is
// a subtier and is rejected with ErrWrongVariant.
func TierFromTag(tag *xml.Node, tierType *TierType) (*Tier, error) {
	if tag == nil || tag.Name() != "TIER" {
		return nil, cerrors.NewFormat("EAF", "", "expected a TIER element")
	}
	if tag.HasAttr("PARENT_REF") {
		return nil, cerrors.Wrap(ErrWrongVariant, "TIER element has a PARENT_REF attribute, use SubtierFromTag")
	}
	if tierType == nil {
		return nil, cerrors.NewValidation("tierType", "tier type is required")
	}

	name := tag.Attr("TIER_ID")
	if name == "" {
		return nil, cerrors.NewFormat("EAF", "", "TIER element missing TIER_ID")
	}

	// Optional metadata attributes copy through only when present.
	return &Tier{
		Name:        name,
		Participant: tag.Attr("PARTICIPANT"),
		Annotator:   tag.Attr("ANNOTATOR"),
		Type:        tierType,
	}, nil
}

// SubtierFromTag builds a Subtier from a TIER element carrying a
// PARENT_REF attribute. The parent cannot be recovered from the tag alone
// because its type information is declared elsewhere in the document, so
// the caller must resolve and pass the constructed parent explicitly.
func SubtierFromTag(tag *xml.Node, tierType *TierType, parent *Tier) (*Subtier, error) {
	if tag == nil || tag.Name() != "TIER" {
		return nil, cerrors.NewFormat("EAF", "", "expected a TIER element")
	}
	if !tag.HasAttr("PARENT_REF") {
		return nil, cerrors.Wrap(ErrWrongVariant, "TIER element has no PARENT_REF attribute, use TierFromTag")
	}
	if parent == nil {
		return nil, cerrors.NewValidation("parent", "subtier parent is required")
	}

	tier, err := TierFromTagAnyVariant(tag, tierType)
	if err != nil {
		return nil, err
	}
	return &Subtier{Tier: *tier, Parent: parent.Name}, nil
}

// TierFromTagAnyVariant builds the Tier part of a TIER element without
// checking for PARENT_REF. Shared by both variant constructors.
func TierFromTagAnyVariant(tag *xml.Node, tierType *TierType) (*Tier, error) {
	if tag == nil || tag.Name() != "TIER" {
		return nil, cerrors.NewFormat("EAF", "", "expected a TIER element")
	}
	if tierType == nil {
		return nil, cerrors.NewValidation("tierType", "tier type is required")
	}
	name := tag.Attr("TIER_ID")
	if name == "" {
		return nil, cerrors.NewFormat("EAF", "", "TIER element missing TIER_ID")
	}
	return &Tier{
		Name:        name,
		Participant: tag.Attr("PARTICIPANT"),
		Annotator:   tag.Attr("ANNOTATOR"),
		Type:        tierType,
	}, nil
}

// ToTag emits the TIER element for this tier. Participant and annotator
// attributes are included only when non-empty: omission, not empty-string,
// is the absent encoding.
func (t *Tier) ToTag() *xml.Node {
	element := xml.NewElement("TIER")

	element.SetAttr("LINGUISTIC_TYPE_REF", t.Type.Name)
	element.SetAttr("TIER_ID", t.Name)

	if t.Participant != "" {
		element.SetAttr("PARTICIPANT", t.Participant)
	}
	if t.Annotator != "" {
		element.SetAttr("ANNOTATOR", t.Annotator)
	}

	return element
}

// ToTag emits the TIER element for this subtier, adding the parent
// reference.
func (s *Subtier) ToTag() *xml.Node {
	element := s.Tier.ToTag()
	element.SetAttr("PARENT_REF", s.Parent)
	return element
}
