package eaf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	cerrors "github.com/tierline/elan/core/errors"
	"github.com/tierline/elan/core/xml"
)

// Segment is one annotation row: a tier, a millisecond interval, text, and
// a document-unique identifier of the form "a<N>".
type Segment struct {
	Tier     string
	Start    int // ms
	End      int // ms
	Text     string
	ID       string
	Duration int // always End - Start
}

var segmentIDPattern = regexp.MustCompile(`^a([1-9][0-9]*)$`)

// SegmentID normalizes a numeric identifier to the canonical "a<N>" form.
func SegmentID(n int) string {
	return fmt.Sprintf("a%d", n)
}

// Store is the table of annotation segments for one document. It owns the
// identifier allocation policy: ids are sequential "a<N>" values, and the
// counter is recomputed from recovered data so allocations never collide.
type Store struct {
	rows   []Segment
	nextID int
}

// NewStore builds a store from existing rows. Rows are copied defensively;
// each row's duration is recomputed from its interval, and the running id
// counter is set to max(numeric suffixes)+1, or 1 for an empty store.
func NewStore(rows []Segment) (*Store, error) {
	s := &Store{nextID: 1}
	for _, row := range rows {
		if !segmentIDPattern.MatchString(row.ID) {
			return nil, &cerrors.ValidationError{
				Field:   "id",
				Value:   row.ID,
				Message: `segment id must match "a<positive integer>"`,
			}
		}
		row.Duration = row.End - row.Start
		s.rows = append(s.rows, row)
		if n := idNumber(row.ID); n >= s.nextID {
			s.nextID = n + 1
		}
	}
	return s, nil
}

// NewEmptyStore returns a store with no rows and the counter at 1.
func NewEmptyStore() *Store {
	return &Store{nextID: 1}
}

// StoreFromFile extracts all segment rows from an .eaf file. Every
// time-aligned annotation's two anchor references are dereferenced against
// the document's TIME_ORDER table to obtain literal millisecond values.
func StoreFromFile(path string) (*Store, error) {
	doc, err := xml.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return storeFromTree(doc, path)
}

// storeFromTree reads segment rows out of a parsed EAF tree. The path is
// used for error context only.
func storeFromTree(doc *xml.Document, path string) (*Store, error) {
	anchors, err := anchorTable(doc, path)
	if err != nil {
		return nil, err
	}

	tierNodes, err := doc.XPath("//TIER")
	if err != nil {
		return nil, err
	}

	var rows []Segment
	for _, tierNode := range tierNodes {
		tier := tierNode.Attr("TIER_ID")

		aligns, err := tierNode.Find(".//ALIGNABLE_ANNOTATION")
		if err != nil {
			return nil, err
		}

		for _, ann := range aligns {
			id := ann.Attr("ANNOTATION_ID")

			start, err := resolveAnchor(anchors, ann.Attr("TIME_SLOT_REF1"), path)
			if err != nil {
				return nil, err
			}
			end, err := resolveAnchor(anchors, ann.Attr("TIME_SLOT_REF2"), path)
			if err != nil {
				return nil, err
			}

			text := ""
			if value, err := ann.FindFirst("./ANNOTATION_VALUE"); err == nil && value != nil {
				text = value.InnerText()
			}

			rows = append(rows, Segment{
				Tier:     tier,
				Start:    start,
				End:      end,
				Text:     text,
				ID:       id,
				Duration: end - start,
			})
		}
	}

	return NewStore(rows)
}

// anchorTable collects the TIME_SLOT_ID -> millisecond mapping.
func anchorTable(doc *xml.Document, path string) (map[string]int, error) {
	slots, err := doc.XPath("//TIME_ORDER/TIME_SLOT")
	if err != nil {
		return nil, err
	}

	anchors := make(map[string]int, len(slots))
	for _, slot := range slots {
		id := slot.Attr("TIME_SLOT_ID")
		value, err := strconv.Atoi(slot.Attr("TIME_VALUE"))
		if err != nil {
			return nil, cerrors.NewFormat("EAF", path, "TIME_SLOT "+id+" has a non-integer TIME_VALUE")
		}
		anchors[id] = value
	}
	return anchors, nil
}

func resolveAnchor(anchors map[string]int, ref, path string) (int, error) {
	value, ok := anchors[ref]
	if !ok {
		// An annotation referencing a missing anchor is structurally broken.
		return 0, &cerrors.FormatError{
			Format:  "EAF",
			Path:    path,
			Message: "annotation references unknown time slot " + ref,
			Err:     cerrors.NewNotFound("anchor", ref),
		}
	}
	return value, nil
}

// Len returns the number of segment rows.
func (s *Store) Len() int {
	return len(s.rows)
}

// Rows returns a copy of all segment rows in insertion order.
func (s *Store) Rows() []Segment {
	out := make([]Segment, len(s.rows))
	copy(out, s.rows)
	return out
}

// RowsForTier returns the rows belonging to one tier, in insertion order.
func (s *Store) RowsForTier(tier string) []Segment {
	var out []Segment
	for _, row := range s.rows {
		if row.Tier == tier {
			out = append(out, row)
		}
	}
	return out
}

// Get looks up a segment by exact id. A missing id is an explicit empty
// result, never an error. The returned Segment is a value copy, isolated
// from the store.
func (s *Store) Get(id string) (Segment, bool) {
	for _, row := range s.rows {
		if row.ID == id {
			return row, true
		}
	}
	return Segment{}, false
}

// Add validates the interval, allocates the next sequential id, and
// appends a row. Tier existence is deliberately not checked: tier creation
// is the owning Document's responsibility.
func (s *Store) Add(tier string, start, end int, text string) (Segment, error) {
	if start < 0 {
		return Segment{}, cerrors.NewValidation("start", "must be 0 or greater")
	}
	if end <= start {
		return Segment{}, cerrors.NewValidation("end", "must be greater than start")
	}

	row := Segment{
		Tier:     tier,
		Start:    start,
		End:      end,
		Text:     text,
		ID:       SegmentID(s.nextID),
		Duration: end - start,
	}
	s.nextID++
	s.rows = append(s.rows, row)
	return row, nil
}

// Remove deletes the row with the given id. Zero matches is a silent
// no-op. More than one match means the unique-id invariant is broken and
// the store is corrupt: the error is fatal, not retryable.
func (s *Store) Remove(id string) error {
	matches := 0
	index := -1
	for i, row := range s.rows {
		if row.ID == id {
			matches++
			index = i
		}
	}

	switch {
	case matches == 0:
		return nil
	case matches > 1:
		return cerrors.NewCorruption("segment store", id, fmt.Sprintf("%d rows share one id", matches))
	}

	s.rows = append(s.rows[:index], s.rows[index+1:]...)
	return nil
}

// SplitAt splits the segment with the given id into two abutting segments
// at a literal millisecond timestamp. Both halves inherit the original
// text; the original row is deleted and two fresh ids are allocated.
func (s *Store) SplitAt(id string, at int) error {
	row, ok := s.Get(id)
	if !ok {
		return cerrors.NewNotFound("segment", id)
	}
	if at <= row.Start || at >= row.End {
		return &cerrors.ValidationError{
			Field:   "at",
			Value:   strconv.Itoa(at),
			Message: fmt.Sprintf("split point must fall inside (%d, %d)", row.Start, row.End),
		}
	}

	if err := s.Remove(id); err != nil {
		return err
	}
	if _, err := s.Add(row.Tier, row.Start, at, row.Text); err != nil {
		return err
	}
	_, err := s.Add(row.Tier, at, row.End, row.Text)
	return err
}

// SplitFraction splits a segment at a fractional position of its interval,
// e.g. 0.5 for the midpoint. The fraction must fall strictly inside (0, 1).
func (s *Store) SplitFraction(id string, fraction float64) error {
	row, ok := s.Get(id)
	if !ok {
		return cerrors.NewNotFound("segment", id)
	}
	if fraction <= 0 || fraction >= 1 {
		return &cerrors.ValidationError{
			Field:   "fraction",
			Value:   strconv.FormatFloat(fraction, 'g', -1, 64),
			Message: "fraction must fall inside (0, 1)",
		}
	}

	at := row.Start + int(float64(row.Duration)*fraction)
	if at <= row.Start || at >= row.End {
		return &cerrors.ValidationError{
			Field:   "fraction",
			Value:   strconv.FormatFloat(fraction, 'g', -1, 64),
			Message: "fraction is too close to an interval boundary to split",
		}
	}
	return s.SplitAt(id, at)
}

func idNumber(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "a"))
	if err != nil {
		return 0
	}
	return n
}
