package export

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite" // pure Go driver, registered as "sqlite"

	"github.com/tierline/elan/core/eaf"
	cerrors "github.com/tierline/elan/core/errors"
	"github.com/tierline/elan/internal/logging"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	path     TEXT PRIMARY KEY,
	author   TEXT NOT NULL,
	date     TEXT NOT NULL,
	audio    TEXT NOT NULL,
	checksum TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tiers (
	document    TEXT NOT NULL REFERENCES documents(path),
	name        TEXT NOT NULL,
	parent      TEXT,
	participant TEXT NOT NULL,
	annotator   TEXT NOT NULL,
	tier_type   TEXT NOT NULL,
	PRIMARY KEY (document, name)
);

CREATE TABLE IF NOT EXISTS segments (
	document TEXT NOT NULL REFERENCES documents(path),
	id       TEXT NOT NULL,
	tier     TEXT NOT NULL,
	start_ms INTEGER NOT NULL,
	end_ms   INTEGER NOT NULL,
	duration INTEGER NOT NULL,
	text     TEXT NOT NULL,
	PRIMARY KEY (document, id)
);

CREATE INDEX IF NOT EXISTS idx_segments_tier ON segments(document, tier);
`

// WriteSQLite exports a document into a SQLite database at path. The
// document, its tier catalog, and all segment rows land in one
// transaction; re-exporting the same document path replaces its rows.
func WriteSQLite(ctx context.Context, path string, doc *eaf.Document) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return cerrors.NewIO("open", path, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return cerrors.Wrap(err, "creating schema")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return cerrors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	if err := insertDocument(ctx, tx, doc); err != nil {
		return err
	}
	if err := insertTiers(ctx, tx, doc); err != nil {
		return err
	}
	if err := insertSegments(ctx, tx, doc); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return cerrors.Wrap(err, "committing export")
	}

	logging.ExportEvent("sqlite", doc.Path(), path, doc.Len())
	return nil
}

func insertDocument(ctx context.Context, tx *sql.Tx, doc *eaf.Document) error {
	checksum, err := doc.Checksum()
	if err != nil {
		return err
	}

	// Clear any previous export of the same document before re-inserting.
	for _, stmt := range []string{
		`DELETE FROM segments WHERE document = ?`,
		`DELETE FROM tiers WHERE document = ?`,
		`DELETE FROM documents WHERE path = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, doc.Path()); err != nil {
			return cerrors.Wrap(err, "clearing previous export")
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (path, author, date, audio, checksum) VALUES (?, ?, ?, ?, ?)`,
		doc.Path(), doc.Author(), doc.Date(), doc.AudioPath(), checksum)
	if err != nil {
		return cerrors.Wrap(err, "inserting document")
	}
	return nil
}

func insertTiers(ctx context.Context, tx *sql.Tx, doc *eaf.Document) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tiers (document, name, parent, participant, annotator, tier_type)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return cerrors.Wrap(err, "preparing tier insert")
	}
	defer stmt.Close()

	for _, name := range doc.TierNames() {
		tier, _ := doc.Tier(name)

		var parent any
		if subtier, ok := doc.Subtier(name); ok {
			parent = subtier.Parent
		}

		_, err := stmt.ExecContext(ctx, doc.Path(), name, parent,
			tier.Participant, tier.Annotator, tier.Type.Name)
		if err != nil {
			return cerrors.Wrapf(err, "inserting tier %s", name)
		}
	}
	return nil
}

func insertSegments(ctx context.Context, tx *sql.Tx, doc *eaf.Document) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO segments (document, id, tier, start_ms, end_ms, duration, text)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return cerrors.Wrap(err, "preparing segment insert")
	}
	defer stmt.Close()

	for _, seg := range doc.Segments() {
		_, err := stmt.ExecContext(ctx, doc.Path(), seg.ID, seg.Tier,
			seg.Start, seg.End, seg.Duration, seg.Text)
		if err != nil {
			return cerrors.Wrapf(err, "inserting segment %s", seg.ID)
		}
	}
	return nil
}
