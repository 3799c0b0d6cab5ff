package eaf

import (
	"fmt"
	"sort"

	"github.com/tierline/elan/core/xml"
)

// schemaLocation is the EAF 3.0 schema reference written to every document.
const schemaLocation = "http://www.mpi.nl/tools/elan/EAFv3.0.xsd"

// anchorSet allocates TIME_SLOT ids for the serialized anchor table. Each
// distinct millisecond value gets one slot, in order of first use, so the
// output is stable across saves of the same document state.
type anchorSet struct {
	ids    map[int]string
	values []int
}

func newAnchorSet() *anchorSet {
	return &anchorSet{ids: make(map[int]string)}
}

func (a *anchorSet) ref(ms int) string {
	if id, ok := a.ids[ms]; ok {
		return id
	}
	id := fmt.Sprintf("ts%d", len(a.values)+1)
	a.ids[ms] = id
	a.values = append(a.values, ms)
	return id
}

// buildTree projects the document onto a fresh XML tree. The element order
// follows the EAF schema: header, time order, tiers, linguistic types,
// constraints.
func (d *Document) buildTree() (*xml.Document, error) {
	tree := xml.NewDocument(Encoding)

	root := xml.NewElement("ANNOTATION_DOCUMENT")
	root.SetAttr("AUTHOR", d.author)
	root.SetAttr("DATE", d.date)
	root.SetAttr("FORMAT", FormatVersion)
	root.SetAttr("VERSION", FormatVersion)
	root.SetAttr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")
	root.SetAttr("xsi:noNamespaceSchemaLocation", schemaLocation)
	tree.SetRoot(root)

	header := xml.NewElement("HEADER")
	header.SetAttr("MEDIA_FILE", "")
	header.SetAttr("TIME_UNITS", "milliseconds")
	if d.audio != "" {
		descriptor := xml.NewElement("MEDIA_DESCRIPTOR")
		descriptor.SetAttr("MEDIA_URL", "file://"+d.audio)
		descriptor.SetAttr("MIME_TYPE", "audio/x-wav")
		header.AppendChild(descriptor)
	}
	root.AppendChild(header)

	// Anchor references must be allocated before TIME_ORDER is emitted,
	// but TIME_ORDER precedes the tiers in the schema. Build the tier
	// elements first, then splice TIME_ORDER in ahead of them.
	anchors := newAnchorSet()
	tierElements := d.buildTierElements(anchors)

	timeOrder := xml.NewElement("TIME_ORDER")
	for i, ms := range anchors.values {
		slot := xml.NewElement("TIME_SLOT")
		slot.SetAttr("TIME_SLOT_ID", fmt.Sprintf("ts%d", i+1))
		slot.SetAttr("TIME_VALUE", fmt.Sprintf("%d", ms))
		timeOrder.AppendChild(slot)
	}
	root.AppendChild(timeOrder)

	for _, element := range tierElements {
		root.AppendChild(element)
	}

	for _, tierType := range d.sortedTypes() {
		root.AppendChild(tierType.ToTag())
	}

	for _, stereotype := range []Stereotype{
		StereotypeTimeSubdivision,
		StereotypeSymbolicSubdivision,
		StereotypeSymbolicAssociation,
		StereotypeIncludedIn,
	} {
		constraint := xml.NewElement("CONSTRAINT")
		constraint.SetAttr("DESCRIPTION", constraintDescriptions[stereotype])
		constraint.SetAttr("STEREOTYPE", string(stereotype))
		root.AppendChild(constraint)
	}

	return tree, nil
}

// buildTierElements emits one TIER element per tier, flat tiers first,
// each group sorted by name, with the tier's annotations nested in store
// order.
func (d *Document) buildTierElements(anchors *anchorSet) []*xml.Node {
	var elements []*xml.Node

	rootNames := make([]string, 0, len(d.tiers))
	for name := range d.tiers {
		rootNames = append(rootNames, name)
	}
	sort.Strings(rootNames)

	subNames := make([]string, 0, len(d.subtiers))
	for name := range d.subtiers {
		subNames = append(subNames, name)
	}
	sort.Strings(subNames)

	for _, name := range rootNames {
		element := d.tiers[name].ToTag()
		d.appendAnnotations(element, name, anchors)
		elements = append(elements, element)
	}
	for _, name := range subNames {
		element := d.subtiers[name].ToTag()
		d.appendAnnotations(element, name, anchors)
		elements = append(elements, element)
	}
	return elements
}

func (d *Document) appendAnnotations(tierElement *xml.Node, tier string, anchors *anchorSet) {
	for _, row := range d.store.RowsForTier(tier) {
		annotation := xml.NewElement("ANNOTATION")

		alignable := xml.NewElement("ALIGNABLE_ANNOTATION")
		alignable.SetAttr("ANNOTATION_ID", row.ID)
		alignable.SetAttr("TIME_SLOT_REF1", anchors.ref(row.Start))
		alignable.SetAttr("TIME_SLOT_REF2", anchors.ref(row.End))

		value := xml.NewElement("ANNOTATION_VALUE")
		value.SetText(row.Text)
		alignable.AppendChild(value)

		annotation.AppendChild(alignable)
		tierElement.AppendChild(annotation)
	}
}

// sortedTypes returns the type catalog entries ordered by name. Only types
// still referenced by a tier are emitted, so removing the last tier of a
// type drops its declaration.
func (d *Document) sortedTypes() []*TierType {
	referenced := make(map[string]*TierType)
	for _, tier := range d.tiers {
		referenced[tier.Type.Name] = tier.Type
	}
	for _, subtier := range d.subtiers {
		referenced[subtier.Type.Name] = subtier.Type
	}

	names := make([]string, 0, len(referenced))
	for name := range referenced {
		names = append(names, name)
	}
	sort.Strings(names)

	types := make([]*TierType, len(names))
	for i, name := range names {
		types[i] = referenced[name]
	}
	return types
}
