// Package leaderboard keeps finished games in a SQLite table.
package leaderboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wricardo/snake-engine/game/service"
)

// MaxTop caps a single Top query
const MaxTop = 100

var schema = []string{
	`CREATE TABLE IF NOT EXISTS scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		config_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		food_eaten INTEGER NOT NULL DEFAULT 0,
		moves INTEGER NOT NULL DEFAULT 0,
		ticks INTEGER NOT NULL DEFAULT 0,
		deaths INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS scores_rank ON scores (score DESC, created_at ASC)`,
}

// Store records finished games
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" keeps it in memory.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("leaderboard path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create leaderboard directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open leaderboard: %w", err)
	}
	// SQLite allows one writer; an in-memory database also lives on one connection
	db.SetMaxOpenConns(1)

	for _, query := range schema {
		if _, err := db.Exec(query); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create leaderboard schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Record stores one finished game
func (s *Store) Record(ctx context.Context, entry service.ScoreEntry) error {
	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (session_id, config_id, score, food_eaten, moves, ticks, deaths, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID, entry.ConfigID, entry.Score, entry.FoodEaten,
		entry.Moves, int64(entry.Ticks), entry.Deaths, recordedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record score: %w", err)
	}
	return nil
}

// Top returns the best games, highest score first and oldest first among ties
func (s *Store) Top(ctx context.Context, limit int) ([]service.ScoreEntry, error) {
	if limit < 1 {
		limit = 10
	}
	if limit > MaxTop {
		limit = MaxTop
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, config_id, score, food_eaten, moves, ticks, deaths, created_at
		 FROM scores ORDER BY score DESC, created_at ASC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []service.ScoreEntry{}
	for rows.Next() {
		var (
			entry service.ScoreEntry
			ticks int64
			nanos int64
		)
		if err := rows.Scan(&entry.SessionID, &entry.ConfigID, &entry.Score, &entry.FoodEaten,
			&entry.Moves, &ticks, &entry.Deaths, &nanos); err != nil {
			return nil, fmt.Errorf("failed to read leaderboard row: %w", err)
		}
		entry.Ticks = uint64(ticks)
		entry.RecordedAt = time.Unix(0, nanos).UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
