// Package export writes annotation documents out to secondary formats:
// plain text listings and SQLite databases. Conversion is one-way; the
// authoritative representation stays the .eaf file.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/tierline/elan/core/eaf"
	cerrors "github.com/tierline/elan/core/errors"
	"github.com/tierline/elan/internal/logging"
)

// Formatter renders one segment as one output line. The returned string
// must not include the trailing newline.
type Formatter func(seg eaf.Segment) string

// DefaultFormatter renders "TIER START-END: TEXT" with times in
// milliseconds.
func DefaultFormatter(seg eaf.Segment) string {
	return fmt.Sprintf("%s %d-%d: %s", seg.Tier, seg.Start, seg.End, seg.Text)
}

// Filter selects which segments are written. A nil filter keeps all.
type Filter func(seg eaf.Segment) bool

// TierFilter keeps only segments on the named tiers.
func TierFilter(tiers ...string) Filter {
	keep := make(map[string]struct{}, len(tiers))
	for _, tier := range tiers {
		keep[tier] = struct{}{}
	}
	return func(seg eaf.Segment) bool {
		_, ok := keep[seg.Tier]
		return ok
	}
}

// WriteText writes the document's segments to w, one line per segment in
// store order. A nil formatter falls back to DefaultFormatter.
func WriteText(w io.Writer, doc *eaf.Document, filter Filter, formatter Formatter) error {
	if formatter == nil {
		formatter = DefaultFormatter
	}

	buffered := bufio.NewWriter(w)
	for _, seg := range doc.Segments() {
		if filter != nil && !filter(seg) {
			continue
		}
		if _, err := buffered.WriteString(formatter(seg) + "\n"); err != nil {
			return cerrors.NewIO("write", "", err)
		}
	}
	if err := buffered.Flush(); err != nil {
		return cerrors.NewIO("write", "", err)
	}
	return nil
}

// WriteTextFile writes the document's segments to a text file.
func WriteTextFile(path string, doc *eaf.Document, filter Filter, formatter Formatter) error {
	f, err := os.Create(path)
	if err != nil {
		return cerrors.NewIO("create", path, err)
	}

	if err := WriteText(f, doc, filter, formatter); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return cerrors.NewIO("close", path, err)
	}

	logging.ExportEvent("text", doc.Path(), path, doc.Len())
	return nil
}
