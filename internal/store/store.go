// Package store persists per-directory viewing sessions so reopening a
// directory resumes at the last viewed image.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketSessions = []byte("sessions")

// session is the stored record for one directory.
type session struct {
	File      string    `json:"file"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionStore implements the resume store using BoltDB. A nil db means
// memory-less mode: lookups miss and saves are dropped.
type SessionStore struct {
	db *bolt.DB
}

// Open opens or creates the session database at path. An empty path disables
// persistence.
func Open(path string) (*SessionStore, error) {
	if path == "" {
		return &SessionStore{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SessionStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SessionStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LastViewed returns the saved file path for dir, if any.
func (s *SessionStore) LastViewed(dir string) (string, bool) {
	if s.db == nil {
		return "", false
	}

	var sess session
	found := false
	s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get([]byte(hashDir(dir)))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &sess); err == nil {
			found = true
		}
		return nil
	})
	if !found {
		return "", false
	}
	return sess.File, true
}

// SaveViewed records file as the last viewed image of dir.
func (s *SessionStore) SaveViewed(dir, file string) error {
	if s.db == nil {
		return nil
	}

	data, err := json.Marshal(session{File: file, UpdatedAt: time.Now()})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).Put([]byte(hashDir(dir)), data)
	})
}

func hashDir(dir string) string {
	normalized := strings.TrimRight(filepath.Clean(dir), string(filepath.Separator))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:8])
}
