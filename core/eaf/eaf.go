// Package eaf models ELAN annotation documents (.eaf files): tier type
// definitions, annotation tiers and subtiers, and the table of time-aligned
// text segments, together with the bidirectional transformation between the
// in-memory model and the XML file representation.
//
// The file format indirects every annotation's start and end through a
// shared time-anchor table. Parsing resolves anchor references into literal
// millisecond values; saving re-synthesizes the anchor table from the
// segment rows.
package eaf

// Process-wide read-only configuration. These are fixed at build time and
// must never be mutated.
const (
	// Version is the library version.
	Version = "2.0.0"

	// Encoding is the character encoding used for all .eaf files.
	Encoding = "UTF-8"

	// FormatVersion is the EAF schema version written to new documents.
	FormatVersion = "3.0"

	// DefaultTierName is the tier present in every freshly created document.
	DefaultTierName = "default"

	// DefaultTypeName is the linguistic type referenced by default tiers.
	DefaultTypeName = "default-lt"
)

// skeleton is the minimum well-formed EAF document. New documents start
// from this tree: one default tier, its linguistic type, and the four
// standard constraint declarations.
const skeleton = `<?xml version="1.0" encoding="UTF-8"?>
<ANNOTATION_DOCUMENT AUTHOR="" DATE=""
    FORMAT="3.0" VERSION="3.0"
    xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:noNamespaceSchemaLocation="http://www.mpi.nl/tools/elan/EAFv3.0.xsd">
    <HEADER MEDIA_FILE="" TIME_UNITS="milliseconds">
    </HEADER>
    <TIME_ORDER/>
    <TIER LINGUISTIC_TYPE_REF="default-lt" TIER_ID="default"/>
    <LINGUISTIC_TYPE GRAPHIC_REFERENCES="false"
        LINGUISTIC_TYPE_ID="default-lt" TIME_ALIGNABLE="true"/>
    <CONSTRAINT
        DESCRIPTION="Time subdivision of parent annotation's time interval, no time gaps allowed within this interval" STEREOTYPE="Time_Subdivision"/>
    <CONSTRAINT
        DESCRIPTION="Symbolic subdivision of a parent annotation. Annotations refering to the same parent are ordered" STEREOTYPE="Symbolic_Subdivision"/>
    <CONSTRAINT DESCRIPTION="1-1 association with a parent annotation" STEREOTYPE="Symbolic_Association"/>
    <CONSTRAINT
        DESCRIPTION="Time alignable annotations within the parent annotation's time interval, gaps are allowed" STEREOTYPE="Included_In"/>
</ANNOTATION_DOCUMENT>
`

// constraintDescriptions maps each stereotype to the CONSTRAINT element
// description emitted on save. The wording matches what ELAN itself writes.
var constraintDescriptions = map[Stereotype]string{
	StereotypeTimeSubdivision:     "Time subdivision of parent annotation's time interval, no time gaps allowed within this interval",
	StereotypeSymbolicSubdivision: "Symbolic subdivision of a parent annotation. Annotations refering to the same parent are ordered",
	StereotypeSymbolicAssociation: "1-1 association with a parent annotation",
	StereotypeIncludedIn:          "Time alignable annotations within the parent annotation's time interval, gaps are allowed",
}
