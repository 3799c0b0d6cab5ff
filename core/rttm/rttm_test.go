package rttm

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tierline/elan/core/eaf"
	cerrors "github.com/tierline/elan/core/errors"
)

const sample = `SPEAKER session 1 0.000000 1.500000 <NA> <NA> spk_1 <NA> <NA>
SPEAKER session 1 2.000000 1.250000 <NA> <NA> spk_2 <NA> <NA>

;; trailing comment line
SPEAKER session 1 3.500000 0.750000 <NA> <NA> spk_1 <NA> <NA>
`

func TestParseLine(t *testing.T) {
	t.Run("valid line", func(t *testing.T) {
		record, err := ParseLine("SPEAKER session 1 2.50 1.25 <NA> <NA> spk_1 <NA> <NA>")
		if err != nil {
			t.Fatalf("ParseLine: %v", err)
		}
		if record.Type != "SPEAKER" || record.File != "session" || record.Channel != "1" {
			t.Errorf("record = %+v", record)
		}
		if record.Start != 2.5 || record.Duration != 1.25 {
			t.Errorf("times = %g %g", record.Start, record.Duration)
		}
		if record.Speaker != "spk_1" {
			t.Errorf("Speaker = %q", record.Speaker)
		}
	})

	t.Run("invalid lines", func(t *testing.T) {
		lines := []string{
			"",
			"SPEAKER session 1",
			"SPEAKER session 1 notanumber 1.0 <NA> <NA> spk <NA> <NA>",
			"SPEAKER session 1 0.0 -1.0 <NA> <NA> spk <NA> <NA>",
		}
		for _, line := range lines {
			if _, err := ParseLine(line); !errors.Is(err, cerrors.ErrFormat) {
				t.Errorf("ParseLine(%q): want ErrFormat, got %v", line, err)
			}
		}
	})
}

func TestParse(t *testing.T) {
	records, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[1].Speaker != "spk_2" || records[1].Start != 2 {
		t.Errorf("records[1] = %+v", records[1])
	}
}

func TestToRows(t *testing.T) {
	records, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	rows := ToRows(records)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	// Seconds to milliseconds, end = start + duration.
	if rows[0].Tier != "spk_1" || rows[0].Start != 0 || rows[0].End != 1500 {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].Start != 2000 || rows[1].End != 3250 {
		t.Errorf("rows[1] = %+v", rows[1])
	}
}

func TestToDocument(t *testing.T) {
	dir := t.TempDir()
	rttmPath := filepath.Join(dir, "session.rttm")
	writeFile(t, rttmPath, sample)

	doc, err := ToDocument(rttmPath, filepath.Join(dir, "session.eaf"), "")
	if err != nil {
		t.Fatalf("ToDocument: %v", err)
	}

	names := doc.TierNames()
	if len(names) != 2 || names[0] != "spk_1" || names[1] != "spk_2" {
		t.Errorf("TierNames = %v", names)
	}
	if doc.Len() != 3 {
		t.Errorf("Len = %d, want 3", doc.Len())
	}
}

func TestWrite(t *testing.T) {
	doc, err := eaf.FromRows([]eaf.Segment{
		{Tier: "first speaker", Start: 0, End: 1500, Text: "hi"},
		{Tier: "spk_2", Start: 2000, End: 3250},
	}, "/tmp/session.eaf", "")
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		t.Fatalf("Write: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	want := "SPEAKER session 1 0.000000 1.500000 <NA> <NA> first_speaker <NA> <NA>"
	if lines[0] != want {
		t.Errorf("line 0 = %q, want %q", lines[0], want)
	}

	// Restricting to one tier drops the other line.
	buf.Reset()
	if err := Write(&buf, doc, "spk_2"); err != nil {
		t.Fatalf("Write filtered: %v", err)
	}
	lines = strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], "spk_2") {
		t.Errorf("filtered output = %q", buf.String())
	}
}

func TestRoundTrip(t *testing.T) {
	doc, err := eaf.FromRows([]eaf.Segment{
		{Tier: "spk_1", Start: 0, End: 1500},
		{Tier: "spk_1", Start: 2000, End: 3250},
	}, "/tmp/session.eaf", "")
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		t.Fatalf("Write: %v", err)
	}
	records, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rows := ToRows(records)

	got := doc.Segments()
	for i, row := range rows {
		if row.Tier != got[i].Tier || row.Start != got[i].Start || row.End != got[i].End {
			t.Errorf("row %d changed: %+v vs %+v", i, row, got[i])
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
