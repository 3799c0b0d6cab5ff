package eaf

import (
	"encoding/hex"
	"path/filepath"
	"sort"
	"time"

	"github.com/zeebo/blake3"

	cerrors "github.com/tierline/elan/core/errors"
	"github.com/tierline/elan/core/xml"
	"github.com/tierline/elan/internal/fileutil"
	"github.com/tierline/elan/internal/logging"
)

// Document is the aggregate root for one .eaf file: the tier catalog, the
// linguistic type catalog, the segment store, and document-level metadata.
// Tier and subtier names share one namespace; a name resolves to exactly
// one of the two maps, never both.
type Document struct {
	path     string
	author   string
	date     string
	tiers    map[string]*Tier
	subtiers map[string]*Subtier
	types    map[string]*TierType
	store    *Store
	audio    string
	modified bool
}

// New creates a fresh document bound to the given target path. The result
// matches the minimum well-formed EAF file: one default tier and its type.
// Nothing touches the filesystem until Save.
func New(path string) (*Document, error) {
	if err := checkEAFPath(path); err != nil {
		return nil, err
	}
	doc, err := fromBytes([]byte(skeleton), path)
	if err != nil {
		return nil, err
	}
	doc.modified = false
	return doc, nil
}

// FromFile parses an existing .eaf file into a Document. Parse failures
// propagate unmodified so callers see the structural cause.
func FromFile(path string) (*Document, error) {
	if err := checkEAFPath(path); err != nil {
		return nil, err
	}
	tree, err := xml.ParseFile(path)
	if err != nil {
		logging.ParseError("EAF", path, err)
		return nil, err
	}
	doc, err := fromTree(tree, path)
	if err != nil {
		logging.ParseError("EAF", path, err)
		return nil, err
	}
	logging.DocumentLoaded(path, len(doc.tiers)+len(doc.subtiers), doc.store.Len())
	return doc, nil
}

// FromBytes parses serialized EAF content into a Document. The path is
// recorded as the document's target but is not read.
func FromBytes(data []byte, path string) (*Document, error) {
	if err := checkEAFPath(path); err != nil {
		return nil, err
	}
	return fromBytes(data, path)
}

// FromRows builds a document from pre-resolved segment rows, creating a
// flat tier for every distinct tier name in order of first appearance.
// Fresh sequential ids are assigned; ids on the input rows are ignored.
func FromRows(rows []Segment, path, audio string) (*Document, error) {
	doc, err := New(path)
	if err != nil {
		return nil, err
	}

	// The default tier only survives if the rows actually use it.
	usesDefault := false
	for _, row := range rows {
		if row.Tier == DefaultTierName {
			usesDefault = true
			break
		}
	}
	if !usesDefault {
		doc.RemoveTiers(DefaultTierName)
	}

	for _, row := range rows {
		if err := doc.AddSegment(row.Tier, row.Start, row.End, row.Text); err != nil {
			return nil, err
		}
	}

	if audio != "" {
		if err := doc.AddAudio(audio); err != nil {
			return nil, err
		}
	}
	doc.modified = false
	return doc, nil
}

// CreateEAF builds a new document with the given tiers and optional audio
// reference and writes it to path in one step.
func CreateEAF(path, audio string, tiers []string, removeDefault bool) (*Document, error) {
	doc, err := New(path)
	if err != nil {
		return nil, err
	}

	doc.AddTiers(tiers)
	if removeDefault {
		doc.RemoveTiers(DefaultTierName)
	}
	if audio != "" {
		if err := doc.AddAudio(audio); err != nil {
			return nil, err
		}
	}

	if err := doc.Save(); err != nil {
		return nil, err
	}
	return doc, nil
}

// checkEAFPath rejects only an empty path. The conventional ".eaf" suffix
// is not enforced; callers may bind documents to any filename.
func checkEAFPath(path string) error {
	if path == "" {
		return cerrors.NewValidation("path", "document path must be non-empty")
	}
	return nil
}

func fromBytes(data []byte, path string) (*Document, error) {
	tree, err := xml.Parse(data)
	if err != nil {
		return nil, err
	}
	return fromTree(tree, path)
}

// Path returns the document's target file path.
func (d *Document) Path() string {
	return d.path
}

// Modified reports whether the document has unsaved changes.
func (d *Document) Modified() bool {
	return d.modified
}

// Len returns the number of annotation segments.
func (d *Document) Len() int {
	return d.store.Len()
}

// AudioPath returns the absolute path of the linked audio file, or ""
// when no audio is linked.
func (d *Document) AudioPath() string {
	return d.audio
}

// Author returns the document author metadata.
func (d *Document) Author() string {
	return d.author
}

// Date returns the document date metadata.
func (d *Document) Date() string {
	return d.date
}

// SetMetadata records the author and date written into the document root.
// An empty date means "now" in RFC 3339 form.
func (d *Document) SetMetadata(author, date string) {
	if date == "" {
		date = time.Now().Format(time.RFC3339)
	}
	d.author = author
	d.date = date
	d.modified = true
}

// TierNames returns every tier and subtier name, sorted.
func (d *Document) TierNames() []string {
	names := make([]string, 0, len(d.tiers)+len(d.subtiers))
	for name := range d.tiers {
		names = append(names, name)
	}
	for name := range d.subtiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Contains reports whether a tier or subtier with the given name exists.
func (d *Document) Contains(name string) bool {
	if _, ok := d.tiers[name]; ok {
		return true
	}
	_, ok := d.subtiers[name]
	return ok
}

// Tier returns the named tier. A subtier is returned through its embedded
// Tier, so callers that only need the flat view use one lookup.
func (d *Document) Tier(name string) (*Tier, bool) {
	if tier, ok := d.tiers[name]; ok {
		return tier, true
	}
	if subtier, ok := d.subtiers[name]; ok {
		return &subtier.Tier, true
	}
	return nil, false
}

// Subtier returns the named subtier, distinguishing it from flat tiers.
func (d *Document) Subtier(name string) (*Subtier, bool) {
	subtier, ok := d.subtiers[name]
	return subtier, ok
}

// AddTier registers a flat tier with the default type. Empty names and
// names already present are silent no-ops.
func (d *Document) AddTier(name string) {
	if name == "" || d.Contains(name) {
		return
	}
	d.tiers[name] = DefaultTier(name)
	d.types[DefaultTypeName] = DefaultTierType()
	d.modified = true
}

// AddTiers registers several flat tiers at once.
func (d *Document) AddTiers(names []string) {
	for _, name := range names {
		d.AddTier(name)
	}
}

// AttachTier registers a fully constructed tier, carrying its type into
// the type catalog. An existing tier with the same name is replaced.
func (d *Document) AttachTier(t *Tier) error {
	if t == nil || t.Type == nil {
		return cerrors.NewValidation("tier", "tier and its type are required")
	}
	delete(d.subtiers, t.Name)
	d.tiers[t.Name] = t
	d.types[t.Type.Name] = t.Type
	d.modified = true
	return nil
}

// AttachSubtier registers a fully constructed subtier. The parent must
// already be present in the document.
func (d *Document) AttachSubtier(s *Subtier) error {
	if s == nil || s.Type == nil {
		return cerrors.NewValidation("subtier", "subtier and its type are required")
	}
	if !d.Contains(s.Parent) {
		return cerrors.NewNotFound("tier", s.Parent)
	}
	delete(d.tiers, s.Name)
	d.subtiers[s.Name] = s
	d.types[s.Type.Name] = s.Type
	d.modified = true
	return nil
}

// RemoveTiers deletes the named tiers and subtiers. Missing names are
// silently ignored. Segments on removed tiers are deliberately left in
// place: tier removal and segment removal are separate operations.
func (d *Document) RemoveTiers(names ...string) {
	for _, name := range names {
		if _, ok := d.tiers[name]; ok {
			delete(d.tiers, name)
			d.modified = true
		}
		if _, ok := d.subtiers[name]; ok {
			delete(d.subtiers, name)
			d.modified = true
		}
	}
}

// Segments returns all segment rows in store order.
func (d *Document) Segments() []Segment {
	return d.store.Rows()
}

// SegmentsForTier returns the rows on one tier in store order.
func (d *Document) SegmentsForTier(tier string) []Segment {
	return d.store.RowsForTier(tier)
}

// Segment looks up one segment by id.
func (d *Document) Segment(id string) (Segment, bool) {
	return d.store.Get(id)
}

// AddSegment validates the interval, creates the tier if it does not
// exist yet, and appends the segment. The interval is checked first so a
// rejected segment never leaves a freshly created empty tier behind.
func (d *Document) AddSegment(tier string, start, end int, text string) error {
	if start < 0 {
		return cerrors.NewValidation("start", "must be 0 or greater")
	}
	if end <= start {
		return cerrors.NewValidation("end", "must be greater than start")
	}

	d.AddTier(tier)
	if _, err := d.store.Add(tier, start, end, text); err != nil {
		return err
	}
	d.modified = true
	return nil
}

// RemoveSegment deletes the segment with the given id. A missing id is a
// no-op that leaves the modified flag untouched.
func (d *Document) RemoveSegment(id string) error {
	if _, ok := d.store.Get(id); !ok {
		return nil
	}
	if err := d.store.Remove(id); err != nil {
		return err
	}
	d.modified = true
	return nil
}

// SplitSegment splits a segment at a millisecond timestamp strictly
// inside its interval.
func (d *Document) SplitSegment(id string, at int) error {
	if err := d.store.SplitAt(id, at); err != nil {
		return err
	}
	d.modified = true
	return nil
}

// SplitSegmentFraction splits a segment at a fractional position of its
// interval.
func (d *Document) SplitSegmentFraction(id string, fraction float64) error {
	if err := d.store.SplitFraction(id, fraction); err != nil {
		return err
	}
	d.modified = true
	return nil
}

// AddAudio links an audio file. The path is normalized to absolute form;
// linking the already linked file is a no-op that leaves the modified
// flag untouched, anything else replaces the existing link.
func (d *Document) AddAudio(path string) error {
	if path == "" {
		return cerrors.NewValidation("path", "audio path must be non-empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return cerrors.NewIO("resolve", path, err)
	}
	if abs == d.audio {
		return nil
	}
	d.audio = abs
	d.modified = true
	return nil
}

// RemoveAudio unlinks the audio file, if any.
func (d *Document) RemoveAudio() {
	if d.audio == "" {
		return
	}
	d.audio = ""
	d.modified = true
}

// Bytes serializes the document to pretty-printed EAF XML. The anchor
// table and all ids are re-synthesized from the segment store, so output
// is deterministic for a given document state.
func (d *Document) Bytes() ([]byte, error) {
	tree, err := d.buildTree()
	if err != nil {
		return nil, err
	}
	return tree.Format(xml.FormatOptions{Indent: "\t"})
}

// Checksum returns the hex BLAKE3 digest of the serialized document.
func (d *Document) Checksum() (string, error) {
	data, err := d.Bytes()
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Save writes the document to its target path atomically and clears the
// modified flag.
func (d *Document) Save() error {
	return d.SaveAs(d.path)
}

// SaveAs writes the document to the given path atomically, rebinding the
// document to it.
func (d *Document) SaveAs(path string) error {
	if err := checkEAFPath(path); err != nil {
		return err
	}

	start := time.Now()
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return err
	}

	d.path = path
	d.modified = false
	logging.DocumentSaved(path, len(data), time.Since(start))
	return nil
}
