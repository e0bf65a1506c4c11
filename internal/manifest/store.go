package manifest

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes. Open reports a
// mismatch with ErrSchemaMismatch and callers discard the workspace
// artifacts rather than migrate.
const schemaVersion = 2

// ErrSchemaMismatch indicates the database was written by another version.
var ErrSchemaMismatch = errors.New("manifest schema version mismatch")

// Params are the settings frames were extracted with.
type Params struct {
	Width  int
	Height int
	FPS    int
}

// Frame is one manifest row. Text and Raster are empty until produced.
type Frame struct {
	Seq    int
	Frame  string
	Text   string
	Raster string
}

// Store is an open manifest database.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the manifest at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Batch workers share one connection; sqlite serializes writers anyway.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Params returns the recorded extraction parameters. ok is false when no
// extraction has been indexed.
func (s *Store) Params(ctx context.Context) (Params, bool, error) {
	var p Params
	err := s.db.QueryRowContext(ctx, "SELECT width, height, fps FROM extraction WHERE id = 1").
		Scan(&p.Width, &p.Height, &p.FPS)
	if errors.Is(err, sql.ErrNoRows) {
		return Params{}, false, nil
	}
	if err != nil {
		return Params{}, false, fmt.Errorf("read extraction params: %w", err)
	}
	return p, true, nil
}

// ReplaceFrames discards every row and indexes frames extracted with params.
func (s *Store) ReplaceFrames(ctx context.Context, params Params, frames []Frame) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM frames"); err != nil {
		return fmt.Errorf("clear frames: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM extraction"); err != nil {
		return fmt.Errorf("clear extraction: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO extraction (id, width, height, fps, extracted_at) VALUES (1, ?, ?, ?, ?)",
		params.Width, params.Height, params.FPS, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("record extraction params: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO frames (seq, frame_name, text_name, raster_name) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare frame insert: %w", err)
	}
	defer stmt.Close()
	for _, frame := range frames {
		if _, err := stmt.ExecContext(ctx, frame.Seq, frame.Frame, nullable(frame.Text), nullable(frame.Raster)); err != nil {
			return fmt.Errorf("index frame %d: %w", frame.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index: %w", err)
	}
	return nil
}

// Reset clears frames and extraction parameters, leaving an empty manifest.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range []string{"DELETE FROM frames", "DELETE FROM extraction"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset manifest: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	return nil
}

// Frames lists every row in sequence order.
func (s *Store) Frames(ctx context.Context) ([]Frame, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT seq, frame_name, text_name, raster_name FROM frames ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var (
			f      Frame
			text   sql.NullString
			raster sql.NullString
		)
		if err := rows.Scan(&f.Seq, &f.Frame, &text, &raster); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		f.Text = text.String
		f.Raster = raster.String
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return frames, nil
}

// Counts reports how many rows exist and how many have text and raster
// artifacts recorded.
func (s *Store) Counts(ctx context.Context) (frames, texts, rasters int, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(1), COUNT(text_name), COUNT(raster_name) FROM frames",
	).Scan(&frames, &texts, &rasters)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("count frames: %w", err)
	}
	return frames, texts, rasters, nil
}

// SetText records the text artifact of frame seq.
func (s *Store) SetText(ctx context.Context, seq int, name string) error {
	return s.setColumn(ctx, "text_name", seq, name)
}

// SetRaster records the raster artifact of frame seq.
func (s *Store) SetRaster(ctx context.Context, seq int, name string) error {
	return s.setColumn(ctx, "raster_name", seq, name)
}

// ClearDerived forgets every text and raster artifact while keeping frames.
func (s *Store) ClearDerived(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE frames SET text_name = NULL, raster_name = NULL"); err != nil {
		return fmt.Errorf("clear derived artifacts: %w", err)
	}
	return nil
}

// RenderKey returns the render settings the recorded text and raster
// artifacts were produced with. It is empty before the first SetRenderKey.
func (s *Store) RenderKey(ctx context.Context) (string, error) {
	var key string
	err := s.db.QueryRowContext(ctx, "SELECT render_key FROM extraction WHERE id = 1").Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read render key: %w", err)
	}
	return key, nil
}

// SetRenderKey records the render settings of the derived artifacts. It fails
// when no extraction is recorded.
func (s *Store) SetRenderKey(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE extraction SET render_key = ? WHERE id = 1", key)
	if err != nil {
		return fmt.Errorf("record render key: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return errors.New("record render key: no extraction recorded")
	}
	return nil
}

func (s *Store) setColumn(ctx context.Context, column string, seq int, name string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE frames SET "+column+" = ? WHERE seq = ?", nullable(name), seq)
	if err != nil {
		return fmt.Errorf("update %s for frame %d: %w", column, seq, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("frame %d is not in the manifest", seq)
	}
	return nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
