// Package archive is the durable system of record for conversations and
// messages. It sits off the hot path, fed by event-bus subscriptions, and is
// never read during generation.
package archive

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"openchat/internal/llm"
)

// Archive records conversations and messages in SQLite.
type Archive struct {
	db *sql.DB
}

// Open opens (or creates) the archive database at the given path.
func Open(dbPath string) (*Archive, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) migrate() error {
	for _, stmt := range migrations {
		if _, err := a.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordMessage persists one message, creating the conversation row on first
// contact.
func (a *Archive) RecordMessage(ctx context.Context, conversationKey string, msg llm.Message) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO conversations (key) VALUES (?)
		 ON CONFLICT(key) DO UPDATE SET updated_at = CURRENT_TIMESTAMP`,
		conversationKey,
	)
	if err != nil {
		return err
	}

	var name *string
	if msg.Name != "" {
		name = &msg.Name
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_key, role, content, name) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), conversationKey, msg.Role, msg.Content, name,
	)
	return err
}

// RecordGeneration persists the outcome of one generation attempt.
func (a *Archive) RecordGeneration(ctx context.Context, conversationKey, provider, model, status, errMsg string) error {
	var errCol *string
	if errMsg != "" {
		errCol = &errMsg
	}
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO generations (conversation_key, provider, model, status, error) VALUES (?, ?, ?, ?, ?)`,
		conversationKey, provider, model, status, errCol,
	)
	return err
}

// Messages returns the most recent messages of a conversation in
// chronological order.
func (a *Archive) Messages(ctx context.Context, conversationKey string, limit int) ([]llm.Message, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT role, content, name FROM (
			SELECT role, content, name, created_at, rowid
			FROM messages WHERE conversation_key = ? ORDER BY rowid DESC LIMIT ?
		) sub ORDER BY rowid ASC`,
		conversationKey, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []llm.Message
	for rows.Next() {
		var msg llm.Message
		var name sql.NullString
		if err := rows.Scan(&msg.Role, &msg.Content, &name); err != nil {
			return nil, err
		}
		if name.Valid {
			msg.Name = name.String
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (a *Archive) Close() error {
	return a.db.Close()
}
