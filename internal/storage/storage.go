// Package storage persists rooms and archived messages in sqlite. The room
// table holds the serialized replicated state; the archive keeps every
// message a client has seen, including ones the state's retention window has
// long since dropped.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/freenet/river-sub001/internal/crypto"
)

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite database at dsn.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous = NORMAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set synchronous: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign_keys: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

// migrate creates the schema. Idempotent.
func (s *Store) migrate() error {
	const sqlStmt = `
CREATE TABLE IF NOT EXISTS rooms (
  room_id TEXT PRIMARY KEY,   -- hex of the parameter hash
  name TEXT NOT NULL,
  params BLOB NOT NULL,       -- serialized room parameters
  state BLOB NOT NULL,        -- serialized replicated state
  updated_at INTEGER NOT NULL -- unix micro
);

CREATE TABLE IF NOT EXISTS archive (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  record_id TEXT NOT NULL,
  room_id TEXT NOT NULL,
  author_id TEXT NOT NULL,
  at INTEGER NOT NULL,        -- unix micro
  content TEXT NOT NULL,
  signature BLOB NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_archive_record ON archive (record_id);
CREATE INDEX IF NOT EXISTS idx_archive_room_time ON archive (room_id, at);
`
	_, err := s.db.Exec(sqlStmt)
	return err
}

// RoomRow is one saved room.
type RoomRow struct {
	ID        string
	Name      string
	Params    []byte
	State     []byte
	UpdatedAt int64
}

// SaveRoom inserts or replaces a room's serialized state.
func (s *Store) SaveRoom(ctx context.Context, roomID, name string, params, state []byte) error {
	const q = `
INSERT INTO rooms (room_id, name, params, state, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(room_id) DO UPDATE SET
  name = excluded.name,
  state = excluded.state,
  updated_at = excluded.updated_at;
`
	_, err := s.db.ExecContext(ctx, q, roomID, name, params, state, time.Now().UnixMicro())
	if err != nil {
		return fmt.Errorf("save room: %w", err)
	}
	return nil
}

// LoadRoom fetches one saved room.
func (s *Store) LoadRoom(ctx context.Context, roomID string) (*RoomRow, error) {
	const q = `SELECT room_id, name, params, state, updated_at FROM rooms WHERE room_id = ?;`
	var row RoomRow
	err := s.db.QueryRowContext(ctx, q, roomID).Scan(&row.ID, &row.Name, &row.Params, &row.State, &row.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRoomNotFound.WithDetails(roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}
	return &row, nil
}

// ListRooms returns all saved rooms, most recently updated first.
func (s *Store) ListRooms(ctx context.Context) ([]RoomRow, error) {
	const q = `SELECT room_id, name, params, state, updated_at FROM rooms ORDER BY updated_at DESC;`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var out []RoomRow
	for rows.Next() {
		var row RoomRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Params, &row.State, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteRoom removes a room and its archive.
func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM archive WHERE room_id = ?;`, roomID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete archive: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = ?;`, roomID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete room: %w", err)
	}
	return tx.Commit()
}

// ArchivedMessage is one archived message row.
type ArchivedMessage struct {
	RecordID  string
	RoomID    string
	AuthorID  crypto.MemberID
	At        int64
	Content   string
	Signature []byte
}

// SaveArchived stores one message. Duplicate record ids are ignored, so
// re-archiving after a resync is harmless.
func (s *Store) SaveArchived(ctx context.Context, m *ArchivedMessage) error {
	const q = `
INSERT OR IGNORE INTO archive (record_id, room_id, author_id, at, content, signature)
VALUES (?, ?, ?, ?, ?, ?);
`
	_, err := s.db.ExecContext(ctx, q, m.RecordID, m.RoomID, m.AuthorID.String(), m.At, m.Content, m.Signature)
	if err != nil {
		return fmt.Errorf("archive message: %w", err)
	}
	return nil
}

// ArchivedMessages returns up to limit messages for a room at or after
// `since`, oldest first. A zero limit means no bound.
func (s *Store) ArchivedMessages(ctx context.Context, roomID string, since int64, limit int) ([]ArchivedMessage, error) {
	q := `SELECT record_id, room_id, author_id, at, content, signature FROM archive
WHERE room_id = ? AND at >= ? ORDER BY at ASC`
	args := []any{roomID, since}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	var out []ArchivedMessage
	for rows.Next() {
		var m ArchivedMessage
		var author string
		if err := rows.Scan(&m.RecordID, &m.RoomID, &author, &m.At, &m.Content, &m.Signature); err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		id, err := crypto.ParseMemberID(author)
		if err != nil {
			return nil, fmt.Errorf("scan archive author: %w", err)
		}
		m.AuthorID = id
		out = append(out, m)
	}
	return out, rows.Err()
}

// LatestArchivedTime returns the newest archived timestamp for a room, zero
// when the archive is empty.
func (s *Store) LatestArchivedTime(ctx context.Context, roomID string) (int64, error) {
	const q = `SELECT COALESCE(MAX(at), 0) FROM archive WHERE room_id = ?;`
	var at int64
	if err := s.db.QueryRowContext(ctx, q, roomID).Scan(&at); err != nil {
		return 0, fmt.Errorf("latest archived time: %w", err)
	}
	return at, nil
}
