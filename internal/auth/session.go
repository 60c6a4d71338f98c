package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Authenticator is the part of the backend client that issues tokens.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, email, password string) error
}

// Session holds the current credential, persists it to disk and tells
// subscribers when it changes.
type Session struct {
	path string

	mu      sync.Mutex
	cred    Credential
	subs    map[int]func(Credential)
	nextSub int
}

// NewSession creates a session persisted at path. An empty path keeps the
// credential in memory only.
func NewSession(path string) *Session {
	return &Session{
		path: path,
		subs: make(map[int]func(Credential)),
	}
}

// Credential returns the current credential.
func (s *Session) Credential() Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred
}

// LoggedIn reports whether the current credential is usable.
func (s *Session) LoggedIn() bool {
	return s.Credential().Valid()
}

// Subscribe registers fn to be called with the new credential after every
// change. The returned func removes the subscription.
func (s *Session) Subscribe(fn func(Credential)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Set replaces the credential, saves it and notifies subscribers.
func (s *Session) Set(cred Credential) error {
	s.mu.Lock()
	s.cred = cred
	subs := make([]func(Credential), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	err := s.save(cred)
	for _, fn := range subs {
		fn(cred)
	}
	return err
}

// Clear logs out: the credential is dropped and the saved file removed.
func (s *Session) Clear() error {
	return s.Set(Credential{})
}

// Login exchanges username and password for a token and stores the
// resulting credential.
func (s *Session) Login(ctx context.Context, a Authenticator, username, password string) error {
	token, err := a.Login(ctx, username, password)
	if err != nil {
		return err
	}
	cred, err := FromToken(token)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if cred.Username == "" {
		cred.Username = username
	}
	return s.Set(cred)
}

// Register creates the account and then logs in with it.
func (s *Session) Register(ctx context.Context, a Authenticator, username, email, password string) error {
	if err := a.Register(ctx, username, email, password); err != nil {
		return err
	}
	return s.Login(ctx, a, username, password)
}

// savedSession is the JSON structure written to disk.
type savedSession struct {
	Credential Credential `json:"credential"`
	SavedAt    time.Time  `json:"saved_at"`
}

func (s *Session) save(cred Credential) error {
	if s.path == "" {
		return nil
	}
	if !cred.Valid() {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove session: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(savedSession{
		Credential: cred,
		SavedAt:    time.Now(),
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Load restores a saved credential. It returns true if one was found and
// has not expired; an expired file is removed.
func (s *Session) Load() bool {
	if s.path == "" {
		return false
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}

	var saved savedSession
	if err := json.Unmarshal(data, &saved); err != nil {
		log.Printf("[WARN] ignoring unreadable session file %s: %v", s.path, err)
		return false
	}
	if !saved.Credential.Valid() {
		os.Remove(s.path)
		return false
	}

	s.mu.Lock()
	s.cred = saved.Credential
	s.mu.Unlock()
	return true
}
