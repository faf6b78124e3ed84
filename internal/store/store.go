// Package store persists the agent's own metadata — API keys for callers of
// the HTTP surface — in the same MySQL instance the agent serves.
package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// keyPrefixLen is how many leading characters of a raw key are stored in
// clear for lookup; the rest is verified against the bcrypt hash.
const keyPrefixLen = 10

type Store struct {
	db *sql.DB
}

// New wraps an established pool. The store does not own the pool and never
// closes it.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// InitSchema creates the metadata table if it is missing.
func (s *Store) InitSchema() error {
	const q = `
CREATE TABLE IF NOT EXISTS agent_api_keys (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	key_hash VARCHAR(255) NOT NULL UNIQUE,
	key_prefix VARCHAR(10) NOT NULL,
	label VARCHAR(255) NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	last_used_at TIMESTAMP NULL
)`
	if _, err := s.db.Exec(q); err != nil {
		return fmt.Errorf("creating agent_api_keys: %w", err)
	}
	return nil
}

// APIKey is the stored record; the raw key itself is only returned once at
// creation time.
type APIKey struct {
	ID        int64     `json:"id"`
	KeyPrefix string    `json:"key_prefix"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateAPIKey mints a new raw key, stores its bcrypt hash and clear prefix,
// and returns the raw key. The caller must show it to the user now; it is
// not recoverable later.
func (s *Store) CreateAPIKey(label string) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	rawKey := "dfk_" + hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	_, err = s.db.Exec(
		"INSERT INTO agent_api_keys (key_hash, key_prefix, label) VALUES (?, ?, ?)",
		string(hash), rawKey[:keyPrefixLen], label,
	)
	if err != nil {
		return "", err
	}
	return rawKey, nil
}

// VerifyAPIKey checks a presented raw key against the stored hashes sharing
// its prefix and returns the matching record.
func (s *Store) VerifyAPIKey(rawKey string) (*APIKey, error) {
	prefix := rawKey
	if len(rawKey) > keyPrefixLen {
		prefix = rawKey[:keyPrefixLen]
	}

	rows, err := s.db.Query(
		"SELECT id, key_hash, key_prefix, label, created_at FROM agent_api_keys WHERE key_prefix = ?",
		prefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var k APIKey
		var hash string
		if err := rows.Scan(&k.ID, &hash, &k.KeyPrefix, &k.Label, &k.CreatedAt); err != nil {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawKey)) == nil {
			go s.db.Exec("UPDATE agent_api_keys SET last_used_at = NOW() WHERE id = ?", k.ID)
			return &k, nil
		}
	}
	return nil, fmt.Errorf("invalid api key")
}

// ListAPIKeys returns the stored key records, newest first.
func (s *Store) ListAPIKeys() ([]APIKey, error) {
	rows, err := s.db.Query(
		"SELECT id, key_prefix, label, created_at FROM agent_api_keys ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.KeyPrefix, &k.Label, &k.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
