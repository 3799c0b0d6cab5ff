package export

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tierline/elan/core/eaf"
)

func testDocument(t *testing.T) *eaf.Document {
	t.Helper()
	doc, err := eaf.FromRows([]eaf.Segment{
		{Tier: "speech", Start: 0, End: 1500, Text: "hello"},
		{Tier: "noise", Start: 500, End: 900, Text: ""},
		{Tier: "speech", Start: 2000, End: 3250, Text: "again"},
	}, "/tmp/session.eaf", "")
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	return doc
}

func TestWriteText(t *testing.T) {
	doc := testDocument(t)

	t.Run("default formatter", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteText(&buf, doc, nil, nil); err != nil {
			t.Fatalf("WriteText: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 3 {
			t.Fatalf("got %d lines, want 3", len(lines))
		}
		if lines[0] != "speech 0-1500: hello" {
			t.Errorf("line 0 = %q", lines[0])
		}
	})

	t.Run("tier filter", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteText(&buf, doc, TierFilter("speech"), nil); err != nil {
			t.Fatalf("WriteText: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("got %d lines, want 2", len(lines))
		}
		for _, line := range lines {
			if !strings.HasPrefix(line, "speech ") {
				t.Errorf("unexpected line %q", line)
			}
		}
	})

	t.Run("custom formatter", func(t *testing.T) {
		var buf bytes.Buffer
		formatter := func(seg eaf.Segment) string { return seg.Text }
		if err := WriteText(&buf, doc, TierFilter("speech"), formatter); err != nil {
			t.Fatalf("WriteText: %v", err)
		}
		if got := buf.String(); got != "hello\nagain\n" {
			t.Errorf("output = %q", got)
		}
	})
}

func TestWriteSQLite(t *testing.T) {
	doc := testDocument(t)
	path := filepath.Join(t.TempDir(), "export.db")
	ctx := context.Background()

	if err := WriteSQLite(ctx, path, doc); err != nil {
		t.Fatalf("WriteSQLite: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("opening export: %v", err)
	}
	defer db.Close()

	var segments int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM segments`).Scan(&segments); err != nil {
		t.Fatalf("counting segments: %v", err)
	}
	if segments != 3 {
		t.Errorf("segments = %d, want 3", segments)
	}

	var text string
	err = db.QueryRowContext(ctx,
		`SELECT text FROM segments WHERE id = ? AND document = ?`, "a1", doc.Path()).Scan(&text)
	if err != nil {
		t.Fatalf("reading segment: %v", err)
	}
	if text != "hello" {
		t.Errorf("text = %q, want %q", text, "hello")
	}

	var tiers int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tiers`).Scan(&tiers); err != nil {
		t.Fatalf("counting tiers: %v", err)
	}
	if tiers != 2 {
		t.Errorf("tiers = %d, want 2", tiers)
	}

	// Re-export replaces the previous rows instead of duplicating them.
	if err := WriteSQLite(ctx, path, doc); err != nil {
		t.Fatalf("second WriteSQLite: %v", err)
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM segments`).Scan(&segments); err != nil {
		t.Fatalf("recounting segments: %v", err)
	}
	if segments != 3 {
		t.Errorf("segments after re-export = %d, want 3", segments)
	}
}
