package store

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/pavelanni/pdfquiz/internal/model"
)

// SetMetadata upserts a key-value pair in the metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetGenerationInfo stores all GenerationInfo fields as metadata rows.
func (s *Store) SetGenerationInfo(info model.GenerationInfo) error {
	pairs := []struct{ k, v string }{
		{"generated_at", info.GeneratedAt.UTC().Format(time.RFC3339)},
		{"difficulty", string(info.Difficulty)},
		{"sources", strings.Join(info.Sources, "\n")},
		{"mcq_count", strconv.Itoa(info.MCQCount)},
		{"short_count", strconv.Itoa(info.ShortCount)},
	}
	for _, p := range pairs {
		if err := s.SetMetadata(p.k, p.v); err != nil {
			return err
		}
	}
	return nil
}

// GetGenerationInfo reads GenerationInfo from metadata.
// It returns nil when no generation has been recorded yet.
func (s *Store) GetGenerationInfo() (*model.GenerationInfo, error) {
	at, err := s.GetMetadata("generated_at")
	if err != nil {
		return nil, err
	}
	if at == "" {
		return nil, nil
	}

	var info model.GenerationInfo
	if info.GeneratedAt, err = time.Parse(time.RFC3339, at); err != nil {
		return nil, err
	}
	d, err := s.GetMetadata("difficulty")
	if err != nil {
		return nil, err
	}
	info.Difficulty = model.Difficulty(d)

	src, err := s.GetMetadata("sources")
	if err != nil {
		return nil, err
	}
	if src != "" {
		info.Sources = strings.Split(src, "\n")
	}

	for _, f := range []struct {
		key string
		dst *int
	}{
		{"mcq_count", &info.MCQCount},
		{"short_count", &info.ShortCount},
	} {
		v, err := s.GetMetadata(f.key)
		if err != nil {
			return nil, err
		}
		if v == "" {
			continue
		}
		if *f.dst, err = strconv.Atoi(v); err != nil {
			return nil, err
		}
	}
	return &info, nil
}
