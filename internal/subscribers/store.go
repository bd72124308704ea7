// Package subscribers persists the set of chats that receive the daily
// broadcast. The store is a single-table SQLite database so subscriptions
// survive restarts without any external service.
package subscribers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/book-expert/logger"
)

const (
	dbFileName     = "subscribers.db"
	dirPermissions = 0o700

	schema = `
	CREATE TABLE IF NOT EXISTS subscribers (
		chat_id       TEXT PRIMARY KEY,
		subscribed_at DATETIME NOT NULL
	)`
)

// Subscriber is a single chat registered for the daily broadcast.
type Subscriber struct {
	ChatID       string
	SubscribedAt time.Time
}

// Store is a SQLite-backed subscriber registry.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// NewStore opens (creating if needed) the subscriber database under dataDir.
func NewStore(dataDir string, log *logger.Logger) (*Store, error) {
	err := os.MkdirAll(dataDir, dirPermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	dbPath := filepath.Join(dataDir, dbFileName)

	db, err := sql.Open(
		"sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open subscriber database: %w", err)
	}

	_, err = db.Exec(schema)
	if err != nil {
		closeErr := db.Close()
		if closeErr != nil {
			log.Warn("Failed to close subscriber database: %v", closeErr)
		}

		return nil, fmt.Errorf("failed to create subscribers table: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close subscriber database: %w", err)
	}

	return nil
}

// Add registers a chat for the daily broadcast. Adding an already
// subscribed chat is a no-op.
func (s *Store) Add(ctx context.Context, chatID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscribers (chat_id, subscribed_at)
		VALUES (?, ?)
		ON CONFLICT(chat_id) DO NOTHING
	`, chatID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to add subscriber %s: %w", chatID, err)
	}

	return nil
}

// Remove unregisters a chat. Removing an unknown chat is a no-op.
func (s *Store) Remove(ctx context.Context, chatID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM subscribers WHERE chat_id = ?", chatID)
	if err != nil {
		return fmt.Errorf("failed to remove subscriber %s: %w", chatID, err)
	}

	return nil
}

// IsSubscribed reports whether a chat is currently registered.
func (s *Store) IsSubscribed(ctx context.Context, chatID string) (bool, error) {
	var count int

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM subscribers WHERE chat_id = ?", chatID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check subscriber %s: %w", chatID, err)
	}

	return count > 0, nil
}

// Count returns the number of registered chats.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM subscribers").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count subscribers: %w", err)
	}

	return count, nil
}

// All returns every registered chat ID, oldest subscription first.
func (s *Store) All(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chat_id FROM subscribers ORDER BY subscribed_at, chat_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}

	defer func() {
		closeErr := rows.Close()
		if closeErr != nil {
			s.log.Warn("Failed to close subscriber rows: %v", closeErr)
		}
	}()

	var chatIDs []string

	for rows.Next() {
		var chatID string

		err = rows.Scan(&chatID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscriber row: %w", err)
		}

		chatIDs = append(chatIDs, chatID)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate subscribers: %w", err)
	}

	return chatIDs, nil
}
