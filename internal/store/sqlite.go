package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/msg-memory/internal/model"
)

// SQLiteStore holds the conversation history, 2FA codes and, when the
// sqlite memory backend is selected, the memory collection.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection serializes writers; append+trim also runs in a transaction.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memory_items (
		seq                   INTEGER PRIMARY KEY AUTOINCREMENT,
		id                    TEXT NOT NULL UNIQUE,
		conversation_id       TEXT NOT NULL,
		conversation_title    TEXT,
		extracted_text        TEXT NOT NULL,
		original_message_text TEXT NOT NULL DEFAULT '',
		sender_name           TEXT,
		created_at            INTEGER NOT NULL,
		category              TEXT NOT NULL DEFAULT 'general',
		confidence            REAL NOT NULL DEFAULT 1.0
	);
	CREATE INDEX IF NOT EXISTS idx_memory_items_created ON memory_items(created_at DESC, seq DESC);
	CREATE INDEX IF NOT EXISTS idx_memory_items_conv ON memory_items(conversation_id);

	CREATE TABLE IF NOT EXISTS memory_meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		guid     TEXT PRIMARY KEY,
		local_id INTEGER NOT NULL DEFAULT 0,
		title    TEXT,
		is_group INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS messages (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_guid TEXT NOT NULL REFERENCES conversations(guid),
		sender            TEXT,
		text              TEXT NOT NULL,
		date              INTEGER NOT NULL,
		outgoing          INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conv_date ON messages(conversation_guid, date);
	CREATE INDEX IF NOT EXISTS idx_messages_date ON messages(date DESC);

	CREATE TABLE IF NOT EXISTS twofa_codes (
		id           TEXT PRIMARY KEY,
		code         TEXT NOT NULL,
		service      TEXT NOT NULL,
		phone_number TEXT NOT NULL DEFAULT '',
		message_text TEXT NOT NULL DEFAULT '',
		timestamp    INTEGER NOT NULL,
		used         INTEGER NOT NULL DEFAULT 0,
		UNIQUE (code, timestamp)
	);
	CREATE INDEX IF NOT EXISTS idx_twofa_timestamp ON twofa_codes(timestamp DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const memoryColumns = `id, conversation_id, conversation_title, extracted_text, original_message_text,
	sender_name, created_at, category, confidence`

// Append inserts item and evicts beyond limit in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, item model.MemoryItem, limit int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertMemory(ctx, tx, item); err != nil {
		return err
	}
	if err := trimTx(ctx, tx, limit); err != nil {
		return err
	}
	if err := s.touch(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func insertMemory(ctx context.Context, tx *sql.Tx, it model.MemoryItem) error {
	category := it.Category
	if category == "" {
		category = model.CategoryGeneral
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO memory_items (`+memoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.ConversationID, nullable(it.ConversationTitle), it.ExtractedText, it.OriginalMessageText,
		nullable(it.SenderName), it.CreatedAt.UnixNano(), category, it.Confidence)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// trimTx keeps the limit newest items by created_at, breaking ties by
// insertion order.
func trimTx(ctx context.Context, tx *sql.Tx, limit int) error {
	if limit < 0 {
		limit = 0
	}
	_, err := tx.ExecContext(ctx,
		`DELETE FROM memory_items WHERE seq NOT IN (
			SELECT seq FROM memory_items ORDER BY created_at DESC, seq DESC LIMIT ?
		)`, limit)
	if err != nil {
		return fmt.Errorf("trim memories: %w", err)
	}
	return nil
}

func (s *SQLiteStore) touch(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO memory_meta (key, value) VALUES ('last_updated_at', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.FormatInt(s.now().UnixNano(), 10))
	return err
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]model.MemoryItem, error) {
	return s.queryMemories(ctx,
		`SELECT `+memoryColumns+` FROM memory_items ORDER BY created_at DESC, seq DESC`)
}

func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_items`); err != nil {
		return err
	}
	if err := s.touch(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) TrimToLimit(ctx context.Context, limit int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := trimTx(ctx, tx, limit); err != nil {
		return err
	}
	if err := s.touch(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Document returns the collection in insertion order.
func (s *SQLiteStore) Document(ctx context.Context) (*model.Document, error) {
	items, err := s.queryMemories(ctx, `SELECT `+memoryColumns+` FROM memory_items ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	doc := &model.Document{Items: items}

	var raw string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM memory_meta WHERE key = 'last_updated_at'`).Scan(&raw)
	if err == nil {
		if ns, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			doc.LastUpdatedAt = time.Unix(0, ns).UTC()
		}
	} else if err != sql.ErrNoRows {
		return nil, err
	}
	return doc, nil
}

// Replace swaps the whole collection for doc.
func (s *SQLiteStore) Replace(ctx context.Context, doc model.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_items`); err != nil {
		return err
	}
	for _, it := range doc.Items {
		if err := insertMemory(ctx, tx, it); err != nil {
			return err
		}
	}
	if err := s.touch(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) queryMemories(ctx context.Context, query string, args ...any) ([]model.MemoryItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.MemoryItem{}
	for rows.Next() {
		it, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(sc scanner) (model.MemoryItem, error) {
	var it model.MemoryItem
	var title, sender sql.NullString
	var created int64
	err := sc.Scan(&it.ID, &it.ConversationID, &title, &it.ExtractedText, &it.OriginalMessageText,
		&sender, &created, &it.Category, &it.Confidence)
	if err != nil {
		return it, err
	}
	it.ConversationTitle = title.String
	it.SenderName = sender.String
	it.CreatedAt = time.Unix(0, created).UTC()
	return it, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ MemoryStore = (*SQLiteStore)(nil)
