package store

import (
	"database/sql/driver"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/noless3011/data-formulator/internal/dbtest"
)

func TestCreateAPIKeyStoresHashNotKey(t *testing.T) {
	engine := dbtest.NewEngine()

	var storedHash, storedPrefix, storedLabel string
	engine.OnExec(func(query string, args []driver.Value) (int64, error) {
		if strings.Contains(query, "INSERT INTO agent_api_keys") {
			storedHash, _ = args[0].(string)
			storedPrefix, _ = args[1].(string)
			storedLabel, _ = args[2].(string)
		}
		return 1, nil
	})
	pool := engine.Open()
	defer pool.Close()

	s := New(pool)
	rawKey, err := s.CreateAPIKey("reporting")
	if err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}

	if !strings.HasPrefix(rawKey, "dfk_") {
		t.Errorf("raw key %q lacks dfk_ prefix", rawKey)
	}
	if storedLabel != "reporting" {
		t.Errorf("label = %q, want reporting", storedLabel)
	}
	if storedPrefix != rawKey[:keyPrefixLen] {
		t.Errorf("prefix = %q, want %q", storedPrefix, rawKey[:keyPrefixLen])
	}
	if storedHash == rawKey || strings.Contains(storedHash, rawKey) {
		t.Error("raw key stored in clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(rawKey)); err != nil {
		t.Errorf("stored hash does not verify the raw key: %v", err)
	}
}

func TestVerifyAPIKey(t *testing.T) {
	rawKey := "dfk_0123456789abcdef0123456789abcdef0123456789abcdef"
	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	engine := dbtest.NewEngine()
	engine.OnQuery(func(query string, args []driver.Value) (*dbtest.Result, error) {
		if prefix, _ := args[0].(string); prefix != rawKey[:keyPrefixLen] {
			return &dbtest.Result{Columns: []string{"id", "key_hash", "key_prefix", "label", "created_at"}}, nil
		}
		return &dbtest.Result{
			Columns: []string{"id", "key_hash", "key_prefix", "label", "created_at"},
			Rows: [][]driver.Value{
				{int64(1), string(hash), rawKey[:keyPrefixLen], "reporting", time.Now()},
			},
		}, nil
	})
	engine.OnExec(func(query string, args []driver.Value) (int64, error) {
		return 1, nil // last_used_at touch
	})
	pool := engine.Open()
	defer pool.Close()

	s := New(pool)

	key, err := s.VerifyAPIKey(rawKey)
	if err != nil {
		t.Fatalf("VerifyAPIKey rejected the right key: %v", err)
	}
	if key.Label != "reporting" {
		t.Errorf("Label = %q, want reporting", key.Label)
	}

	if _, err := s.VerifyAPIKey(rawKey[:keyPrefixLen] + "wrong_suffix"); err == nil {
		t.Error("VerifyAPIKey accepted a key with the right prefix but wrong body")
	}
	if _, err := s.VerifyAPIKey("dfk_other"); err == nil {
		t.Error("VerifyAPIKey accepted an unknown prefix")
	}
}

func TestListAPIKeys(t *testing.T) {
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	engine := dbtest.NewEngine()
	engine.OnQuery(func(query string, args []driver.Value) (*dbtest.Result, error) {
		return &dbtest.Result{
			Columns: []string{"id", "key_prefix", "label", "created_at"},
			Rows: [][]driver.Value{
				{int64(2), "dfk_bbbbbb", "etl", created},
				{int64(1), "dfk_aaaaaa", "reporting", created},
			},
		}, nil
	})
	pool := engine.Open()
	defer pool.Close()

	keys, err := New(pool).ListAPIKeys()
	if err != nil {
		t.Fatalf("ListAPIKeys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}
	if keys[0].ID != 2 || keys[0].Label != "etl" {
		t.Errorf("keys[0] = %+v", keys[0])
	}
}
