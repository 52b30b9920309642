package store

import (
	"database/sql"
	"fmt"
	"strings"
)

type SessionRow struct {
	ID           string
	Name         string
	Platform     string
	ChatType     string
	ImportedAt   int64
	MessageCount int
}

type MemberRow struct {
	ID         int64
	PlatformID string
	Name       string
	Aliases    string // JSON array
}

type MessageRow struct {
	ID         int64
	PlatformID string
	Name       string
	Ts         int64
	Type       string
	Content    sql.NullString
}

func (d *DB) Sessions() ([]SessionRow, error) {
	rows, err := d.db.Query(
		`SELECT id, name, platform, chat_type, imported_at, message_count
		 FROM session ORDER BY imported_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var s SessionRow
		if err := rows.Scan(&s.ID, &s.Name, &s.Platform, &s.ChatType, &s.ImportedAt, &s.MessageCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *DB) Session(id string) (*SessionRow, error) {
	var s SessionRow
	err := d.db.QueryRow(
		`SELECT id, name, platform, chat_type, imported_at, message_count
		 FROM session WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.Platform, &s.ChatType, &s.ImportedAt, &s.MessageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *DB) Members(sessionID string) ([]MemberRow, error) {
	rows, err := d.db.Query(
		`SELECT id, platform_id, name, aliases FROM member WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MemberRow
	for rows.Next() {
		var m MemberRow
		if err := rows.Scan(&m.ID, &m.PlatformID, &m.Name, &m.Aliases); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MessageFilter narrows MessagesAsc. Zero values mean no bound.
type MessageFilter struct {
	Since         int64
	Until         int64
	TextOnly      bool // restrict to text messages
	ExcludeSystem bool // drop the sentinel system member
}

// MessagesAsc returns a session's messages joined with their sender, in
// (ts, insertion) order.
func (d *DB) MessagesAsc(sessionID string, f MessageFilter) ([]MessageRow, error) {
	conditions := []string{"m.session_id = ?"}
	args := []any{sessionID}
	if f.Since > 0 {
		conditions = append(conditions, "m.ts >= ?")
		args = append(args, f.Since)
	}
	if f.Until > 0 {
		conditions = append(conditions, "m.ts <= ?")
		args = append(args, f.Until)
	}
	if f.TextOnly {
		conditions = append(conditions, "m.type = 'text'")
	}
	if f.ExcludeSystem {
		conditions = append(conditions, "mem.platform_id != 'system'")
	}

	query := fmt.Sprintf(
		`SELECT m.id, mem.platform_id, mem.name, m.ts, m.type, m.content
		 FROM message m JOIN member mem ON mem.id = m.sender_id
		 WHERE %s ORDER BY m.ts, m.id`,
		strings.Join(conditions, " AND "),
	)
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MessageRow
	for rows.Next() {
		var m MessageRow
		if err := rows.Scan(&m.ID, &m.PlatformID, &m.Name, &m.Ts, &m.Type, &m.Content); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ContentCount is one (member, content) frequency row.
type ContentCount struct {
	PlatformID string
	Name       string
	Content    string
	Count      int
}

// ContentCounts aggregates text-message frequencies per member and
// content, for the catchphrase analysis.
func (d *DB) ContentCounts(sessionID string, f MessageFilter) ([]ContentCount, error) {
	conditions := []string{
		"m.session_id = ?",
		"m.type = 'text'",
		"m.content IS NOT NULL",
		"mem.platform_id != 'system'",
	}
	args := []any{sessionID}
	if f.Since > 0 {
		conditions = append(conditions, "m.ts >= ?")
		args = append(args, f.Since)
	}
	if f.Until > 0 {
		conditions = append(conditions, "m.ts <= ?")
		args = append(args, f.Until)
	}

	query := fmt.Sprintf(
		`SELECT mem.platform_id, mem.name, TRIM(m.content) AS c, COUNT(*) AS n
		 FROM message m JOIN member mem ON mem.id = m.sender_id
		 WHERE %s
		 GROUP BY mem.platform_id, c
		 ORDER BY n DESC, MIN(m.id)`,
		strings.Join(conditions, " AND "),
	)
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ContentCount
	for rows.Next() {
		var c ContentCount
		if err := rows.Scan(&c.PlatformID, &c.Name, &c.Content, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (d *DB) SessionCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM session").Scan(&n)
	return n, err
}

func (d *DB) MessageCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM message").Scan(&n)
	return n, err
}
