package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nijaru/yt-mp3/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT NOT NULL,
    video_id TEXT NOT NULL DEFAULT '',
    action TEXT NOT NULL,
    status TEXT NOT NULL,
    bytes INTEGER NOT NULL DEFAULT 0,
    elapsed_ms INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversions_created_at ON conversions(created_at);
CREATE INDEX IF NOT EXISTS idx_conversions_video_id ON conversions(video_id);
`

// Store is an append-only ledger of gateway outcomes. It is never consulted
// to answer info or convert requests.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	logrus.WithField("path", dbPath).Info("Initializing database")

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "error creating directory for database")
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrap(err, "error opening database")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error creating schema")
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) RecordConversion(ctx context.Context, c *models.Conversion) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "error beginning transaction")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO conversions
        (request_id, video_id, action, status, bytes, elapsed_ms, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "error preparing statement")
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, c.RequestID, c.VideoID, string(c.Action), string(c.Status), c.Bytes, c.ElapsedMS, c.CreatedAt)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "error executing statement")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "error committing transaction")
	}

	if id, err := res.LastInsertId(); err == nil {
		c.ID = id
	}
	return nil
}

// RecentConversions returns up to limit entries, newest first.
func (s *Store) RecentConversions(ctx context.Context, limit int) ([]models.Conversion, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, request_id, video_id, action, status, bytes, elapsed_ms, created_at
        FROM conversions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "error querying database")
	}
	defer rows.Close()

	conversions := []models.Conversion{}
	for rows.Next() {
		var c models.Conversion
		var action, status string
		if err := rows.Scan(&c.ID, &c.RequestID, &c.VideoID, &action, &status, &c.Bytes, &c.ElapsedMS, &c.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}
		c.Action = models.Action(action)
		c.Status = models.ConversionStatus(status)
		conversions = append(conversions, c)
	}

	return conversions, errors.Wrap(rows.Err(), "error iterating rows")
}
