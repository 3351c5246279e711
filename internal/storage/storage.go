package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is the durability layer: one JSON document per named collection
// (config, warnings, levels, reactionroles) plus append-only mod_logs rows.
// Saves are last-writer-wins; callers keep their in-memory copy authoritative.
type Store struct {
	db *sql.DB
}

type ModLog struct {
	ID        int64
	GuildID   string
	UserID    string
	Event     string
	Details   string
	CreatedAt time.Time
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

// SaveDocument replaces the whole named collection with the JSON encoding of value.
func (s *Store) SaveDocument(ctx context.Context, name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, name, string(data), time.Now().Unix())
	return err
}

// LoadDocument unmarshals the named collection into dest. A document that has
// never been saved leaves dest untouched and returns nil.
func (s *Store) LoadDocument(ctx context.Context, name string, dest any) error {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE name = ?`, name)

	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (s *Store) AddModLog(ctx context.Context, log ModLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mod_logs (guild_id, user_id, event, details, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, log.GuildID, log.UserID, log.Event, log.Details, log.CreatedAt.Unix())
	return err
}

func (s *Store) ListModLogs(ctx context.Context, guildID string, since time.Time) ([]ModLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, event, details, created_at
		FROM mod_logs
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`, guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []ModLog
	for rows.Next() {
		var log ModLog
		var created int64
		if err := rows.Scan(&log.ID, &log.GuildID, &log.UserID, &log.Event, &log.Details, &created); err != nil {
			return nil, err
		}
		log.CreatedAt = time.Unix(created, 0)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
