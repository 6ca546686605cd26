// Package sessions maps opaque session tokens to Webshare credentials with a
// TTL. The store is a JSON file behind an afero filesystem so tests can run
// against memory; a miss or an expired entry both read as "absent".
package sessions

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"sharestream/models"
)

const (
	// DefaultTTL is the credential lifetime when none is configured.
	DefaultTTL = 12 * time.Hour

	// tokenBytes is the number of random bytes behind a session token.
	tokenBytes = 16

	storeFile = "sessions.json"
)

// Service is the session store adapter: Put/Get with TTL expiry.
type Service struct {
	mu       sync.RWMutex
	fs       afero.Fs
	path     string
	sessions map[string]models.Session
	ttl      time.Duration
}

// NewService creates a session store. storageDir may be empty, in which case
// sessions live only in memory. A nil fs uses the real filesystem.
func NewService(fs afero.Fs, storageDir string, ttl time.Duration) (*Service, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	svc := &Service{
		fs:       fs,
		sessions: make(map[string]models.Session),
		ttl:      ttl,
	}

	if strings.TrimSpace(storageDir) != "" {
		if err := fs.MkdirAll(storageDir, 0o755); err != nil {
			return nil, fmt.Errorf("create sessions dir: %w", err)
		}
		svc.path = filepath.Join(storageDir, storeFile)
		if err := svc.load(); err != nil {
			return nil, err
		}
	}

	go svc.cleanupLoop()

	return svc, nil
}

// GenerateToken creates a cryptographically random session token.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Put stores a credential under the given token. A non-positive ttl uses the
// service default.
func (s *Service) Put(token string, cred models.Credential, ttl time.Duration) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("empty session token")
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	now := time.Now().UTC()
	session := models.Session{
		Token:      token,
		Credential: cred,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session
	if err := s.saveLocked(); err != nil {
		delete(s.sessions, token)
		return err
	}
	return nil
}

// Get returns the credential for a token. The second return is false for
// unknown and for expired tokens; an expired entry is removed on the way out.
func (s *Service) Get(token string) (models.Credential, bool) {
	if token == "" {
		return models.Credential{}, false
	}

	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return models.Credential{}, false
	}
	if session.IsExpired() {
		// Re-check under the write lock: a concurrent Put may have refreshed
		// the token since the read above, and that entry must survive.
		s.mu.Lock()
		current, live := s.sessions[token]
		if live && current.IsExpired() {
			delete(s.sessions, token)
			_ = s.saveLocked()
			live = false
		}
		s.mu.Unlock()
		if !live {
			return models.Credential{}, false
		}
		return current.Credential, true
	}
	return session.Credential, true
}

// Count returns the number of stored sessions, expired ones included.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Cleanup removes all expired sessions and returns how many were dropped.
func (s *Service) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	now := time.Now()
	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
			count++
		}
	}
	if count > 0 {
		_ = s.saveLocked()
	}
	return count
}

func (s *Service) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		s.Cleanup()
	}
}

// load reads sessions from disk, dropping anything already expired.
func (s *Service) load() error {
	if s.path == "" {
		return nil
	}

	file, err := s.fs.Open(s.path)
	if err != nil {
		// No sessions file yet, start fresh.
		return nil
	}
	defer file.Close()

	var stored []models.Session
	if err := json.NewDecoder(file).Decode(&stored); err != nil {
		return fmt.Errorf("decode sessions: %w", err)
	}

	now := time.Now()
	s.sessions = make(map[string]models.Session, len(stored))
	for _, session := range stored {
		if strings.TrimSpace(session.Token) == "" {
			continue
		}
		if now.After(session.ExpiresAt) {
			continue
		}
		s.sessions[session.Token] = session
	}
	return nil
}

// saveLocked writes sessions to disk via a temp file rename. Must be called
// with mu held.
func (s *Service) saveLocked() error {
	if s.path == "" {
		return nil
	}

	sessions := make([]models.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}

	tmp := s.path + ".tmp"
	file, err := s.fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("create sessions temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sessions); err != nil {
		file.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("encode sessions: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("close sessions temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace sessions file: %w", err)
	}
	return nil
}
