package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pavelanni/pdfquiz/internal/model"

	_ "modernc.org/sqlite"
)

// Store keeps the LLM request log and generation metadata in SQLite.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS llm_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		purpose TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL DEFAULT 0,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AppendLLMRequest records a model call.
func (s *Store) AppendLLMRequest(ctx context.Context, r model.LLMRequest) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_requests
		 (purpose, provider, model, latency_ms, success, input_tokens, output_tokens, error, request_body, response_body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Purpose, r.Provider, r.Model, r.LatencyMs, r.Success, r.InputTokens, r.OutputTokens,
		r.Error, r.RequestBody, r.ResponseBody, r.CreatedAt,
	)
	return err
}

// ListLLMRequests returns the most recent requests first. A limit <= 0 returns all rows.
func (s *Store) ListLLMRequests(limit int) ([]model.LLMRequest, error) {
	query := `SELECT id, purpose, provider, model, latency_ms, success, input_tokens, output_tokens,
		error, request_body, response_body, created_at
		FROM llm_requests ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LLMRequest
	for rows.Next() {
		var r model.LLMRequest
		if err := rows.Scan(&r.ID, &r.Purpose, &r.Provider, &r.Model, &r.LatencyMs, &r.Success,
			&r.InputTokens, &r.OutputTokens, &r.Error, &r.RequestBody, &r.ResponseBody, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LLMRequestCount returns the number of recorded requests.
func (s *Store) LLMRequestCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM llm_requests`).Scan(&count)
	return count, err
}
