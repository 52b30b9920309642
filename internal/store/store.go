// Package store is the local session store: a sqlite database holding
// imported corpora as session/member/message relations. Analytics only
// ever read from it through parameterized queries.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mama165/chatlab/internal/model"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA cache_size = -64000;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS session (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    platform      TEXT NOT NULL,
    chat_type     TEXT NOT NULL,
    imported_at   INTEGER NOT NULL,
    message_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS source (
    session_id    TEXT NOT NULL,
    filename      TEXT NOT NULL,
    platform      TEXT NOT NULL,
    message_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS member (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  TEXT NOT NULL,
    platform_id TEXT NOT NULL,
    name        TEXT NOT NULL,
    aliases     TEXT NOT NULL DEFAULT '[]',
    UNIQUE (session_id, platform_id)
);

CREATE TABLE IF NOT EXISTS message (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    sender_id  INTEGER NOT NULL,
    ts         INTEGER NOT NULL,
    type       TEXT NOT NULL,
    content    TEXT
);

CREATE INDEX IF NOT EXISTS idx_message_session_ts ON message (session_id, ts, id);
CREATE INDEX IF NOT EXISTS idx_member_session ON member (session_id);
`

type DB struct {
	db *sql.DB
}

func Open(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Import loads a normalized corpus as a new session and returns its id.
// The whole load runs in one transaction.
func (d *DB) Import(c *model.Corpus) (string, error) {
	sessionID := uuid.NewString()

	tx, err := d.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO session (id, name, platform, chat_type, imported_at, message_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, c.Meta.Name, string(c.Meta.Platform), string(c.Meta.ChatType),
		time.Now().Unix(), len(c.Messages),
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}

	for _, s := range c.Sources {
		_, err = tx.Exec(
			`INSERT INTO source (session_id, filename, platform, message_count) VALUES (?, ?, ?, ?)`,
			sessionID, s.Filename, string(s.Platform), s.MessageCount,
		)
		if err != nil {
			return "", fmt.Errorf("insert source: %w", err)
		}
	}

	memberStmt, err := tx.Prepare(
		`INSERT INTO member (session_id, platform_id, name, aliases) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return "", err
	}
	defer memberStmt.Close()

	rowIDs := make(map[string]int64, len(c.Members))
	insertMember := func(m model.Member) error {
		aliases, err := json.Marshal(orEmpty(m.Aliases))
		if err != nil {
			return err
		}
		res, err := memberStmt.Exec(sessionID, m.PlatformID, m.Name, string(aliases))
		if err != nil {
			return fmt.Errorf("insert member %s: %w", m.PlatformID, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		rowIDs[m.PlatformID] = id
		return nil
	}
	for _, m := range c.Members {
		if err := insertMember(m); err != nil {
			return "", err
		}
	}

	msgStmt, err := tx.Prepare(
		`INSERT INTO message (session_id, sender_id, ts, type, content) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return "", err
	}
	defer msgStmt.Close()

	for _, m := range c.Messages {
		senderRow, ok := rowIDs[m.SenderID]
		if !ok {
			// sender missing from the member set, register on the fly
			if err := insertMember(model.Member{PlatformID: m.SenderID, Name: m.Name}); err != nil {
				return "", err
			}
			senderRow = rowIDs[m.SenderID]
		}
		var content any
		if m.Content != nil {
			content = *m.Content
		}
		if _, err := msgStmt.Exec(sessionID, senderRow, m.Timestamp, string(m.Type), content); err != nil {
			return "", fmt.Errorf("insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return sessionID, nil
}

func orEmpty(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
