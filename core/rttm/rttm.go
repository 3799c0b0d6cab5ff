// Package rttm reads and writes Rich Transcription Time Marked (.rttm)
// files and converts between RTTM records and annotation documents. RTTM
// is the line-oriented diarization interchange format: one segment per
// line, ten whitespace-separated fields, with "<NA>" marking absent values.
package rttm

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/tierline/elan/core/eaf"
	cerrors "github.com/tierline/elan/core/errors"
	"github.com/tierline/elan/internal/logging"
)

// NA is the RTTM placeholder for an absent field value.
const NA = "<NA>"

// Record is one RTTM line. Start and Duration are in seconds, following
// the format; conversion to milliseconds happens only at the document
// boundary.
type Record struct {
	Type       string  // segment type, "SPEAKER" for diarization output
	File       string  // recording identifier
	Channel    string  // channel id, conventionally "1"
	Start      float64 // onset in seconds
	Duration   float64 // duration in seconds
	Ortho      string  // orthography field, usually NA
	Subtype    string  // segment subtype, usually NA
	Speaker    string  // speaker name; maps to the tier name
	Confidence string  // confidence score, usually NA
	Signal     string  // signal lookahead time, usually NA
}

// lineGrammar captures the ten fixed fields of one RTTM line. Numeric
// fields parse directly into float64; everything else stays a token.
//
//nolint:govet // participle grammar tags are not standard struct tags
type lineGrammar struct {
	Type       string  `@Field`
	File       string  `@Field`
	Channel    string  `@Field`
	Start      float64 `@Field`
	Duration   float64 `@Field`
	Ortho      string  `@Field`
	Subtype    string  `@Field`
	Speaker    string  `@Field`
	Confidence string  `@Field`
	Signal     string  `@Field`
}

// lineLexer tokenizes one RTTM line: any run of non-whitespace is a field.
var lineLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Field", Pattern: `[^\s]+`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

// lineParser is the participle parser for one RTTM line.
var lineParser = participle.MustBuild[lineGrammar](
	participle.Lexer(lineLexer),
	participle.Elide("Whitespace"),
)

// ParseLine parses a single RTTM line into a Record.
func ParseLine(line string) (*Record, error) {
	parsed, err := lineParser.ParseString("", line)
	if err != nil {
		return nil, &cerrors.FormatError{
			Format:  "RTTM",
			Message: fmt.Sprintf("invalid line %q", line),
			Err:     err,
		}
	}
	if parsed.Duration < 0 {
		return nil, cerrors.NewFormat("RTTM", "", fmt.Sprintf("negative duration in line %q", line))
	}
	return &Record{
		Type:       parsed.Type,
		File:       parsed.File,
		Channel:    parsed.Channel,
		Start:      parsed.Start,
		Duration:   parsed.Duration,
		Ortho:      parsed.Ortho,
		Subtype:    parsed.Subtype,
		Speaker:    parsed.Speaker,
		Confidence: parsed.Confidence,
		Signal:     parsed.Signal,
	}, nil
}

// Parse reads RTTM records from r. Blank lines and lines starting with
// ";;" or "#" are skipped.
func Parse(r io.Reader) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";;") || strings.HasPrefix(line, "#") {
			continue
		}

		record, err := ParseLine(line)
		if err != nil {
			return nil, cerrors.Wrapf(err, "line %d", lineNo)
		}
		records = append(records, *record)
	}
	if err := scanner.Err(); err != nil {
		return nil, cerrors.NewIO("read", "", err)
	}
	return records, nil
}

// ParseFile reads RTTM records from a file.
func ParseFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cerrors.NewIO("open", path, err)
	}
	defer f.Close()

	records, err := Parse(f)
	if err != nil {
		var formatErr *cerrors.FormatError
		if cerrors.As(err, &formatErr) {
			formatErr.Path = path
		}
		logging.ParseError("RTTM", path, err)
		return nil, err
	}
	return records, nil
}

// ToRows converts RTTM records to segment rows. Each speaker becomes a
// tier; seconds become milliseconds, rounded to the nearest integer.
func ToRows(records []Record) []eaf.Segment {
	rows := make([]eaf.Segment, 0, len(records))
	for _, record := range records {
		start := int(math.Round(record.Start * 1000))
		end := int(math.Round((record.Start + record.Duration) * 1000))
		rows = append(rows, eaf.Segment{
			Tier:  record.Speaker,
			Start: start,
			End:   end,
		})
	}
	return rows
}

// ToDocument builds an annotation document from an RTTM file. The audio
// path, when non-empty, is linked into the new document.
func ToDocument(rttmPath, eafPath, audio string) (*eaf.Document, error) {
	records, err := ParseFile(rttmPath)
	if err != nil {
		return nil, err
	}

	doc, err := eaf.FromRows(ToRows(records), eafPath, audio)
	if err != nil {
		return nil, err
	}
	logging.ExportEvent("rttm", rttmPath, eafPath, len(records))
	return doc, nil
}

// Write serializes a document's segments as RTTM, optionally restricted
// to the named tiers. The recording id is the document's base filename
// without extension; tier names have spaces folded to underscores because
// RTTM fields cannot contain whitespace.
func Write(w io.Writer, doc *eaf.Document, tiers ...string) error {
	file := strings.TrimSuffix(filepath.Base(doc.Path()), filepath.Ext(doc.Path()))

	keep := make(map[string]struct{}, len(tiers))
	for _, tier := range tiers {
		keep[tier] = struct{}{}
	}

	for _, row := range doc.Segments() {
		if len(keep) > 0 {
			if _, ok := keep[row.Tier]; !ok {
				continue
			}
		}
		speaker := strings.ReplaceAll(row.Tier, " ", "_")
		_, err := fmt.Fprintf(w, "SPEAKER %s 1 %.6f %.6f %s %s %s %s %s\n",
			file,
			float64(row.Start)/1000,
			float64(row.Duration)/1000,
			NA, NA, speaker, NA, NA)
		if err != nil {
			return cerrors.NewIO("write", "", err)
		}
	}
	return nil
}

// WriteFile serializes a document's segments to an RTTM file.
func WriteFile(path string, doc *eaf.Document, tiers ...string) error {
	f, err := os.Create(path)
	if err != nil {
		return cerrors.NewIO("create", path, err)
	}

	if err := Write(f, doc, tiers...); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return cerrors.NewIO("close", path, err)
	}

	logging.ExportEvent("rttm", doc.Path(), path, doc.Len())
	return nil
}
