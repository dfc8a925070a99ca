// Package session keeps the authentication token and the logged-in user between calls.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Keys used by the file store, the same the web console keeps in local storage.
const (
	TokenKey = "auth-token"
	UserKey  = "user"
)

// Store persists a session.
type Store interface {
	Load() (*Session, error)
	Save(s *Session) error
	Clear() error
}

// Session is the token of the logged-in user plus the user record the server returned with it.
// The user is kept raw so that callers decode it into their own type.
type Session struct {
	mu    sync.RWMutex
	token string
	user  json.RawMessage
}

func New(token string, user interface{}) (*Session, error) {
	s := &Session{}
	if err := s.Set(token, user); err != nil {
		return nil, err
	}
	return s, nil
}

// Token implements resource.TokenSource; empty when logged out.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Set(token string, user interface{}) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "encoding session user")
	}
	s.mu.Lock()
	s.token = token
	s.user = raw
	s.mu.Unlock()
	return nil
}

func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
}

// User decodes the stored user into v; false when there is none.
func (s *Session) User(v interface{}) (bool, error) {
	s.mu.RLock()
	raw := s.user
	s.mu.RUnlock()
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, errors.Wrap(err, "decoding session user")
	}
	return true, nil
}

// Expired reports whether the token is a JWT whose exp claim is past.
// The signature is not checked: only the server can do that. Tokens that are not JWTs never expire here.
func (s *Session) Expired(now time.Time) bool {
	tok := s.Token()
	if tok == "" {
		return true
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

type fileData struct {
	Token string          `json:"auth-token"`
	User  json.RawMessage `json:"user,omitempty"`
}

func (s *Session) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(fileData{Token: s.token, User: s.user})
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var fd fileData
	if err := json.Unmarshal(data, &fd); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = fd.Token
	s.user = fd.User
	s.mu.Unlock()
	return nil
}

// MemoryStore keeps the session for the lifetime of the process.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Session{}
	if m.data == nil {
		return s, nil
	}
	if err := json.Unmarshal(m.data, s); err != nil {
		return nil, errors.Wrap(err, "decoding session")
	}
	return s, nil
}

func (m *MemoryStore) Save(s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	m.data = nil
	m.mu.Unlock()
	return nil
}

// FileStore keeps the session in a JSON file readable by the owner only.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (f *FileStore) Load() (*Session, error) {
	s := &Session{}
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading session file")
	}
	if err = json.Unmarshal(data, s); err != nil {
		return nil, errors.Wrapf(err, "decoding session file %s", f.Path)
	}
	return s, nil
}

func (f *FileStore) Save(s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	if err = os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return errors.Wrap(err, "creating session directory")
	}
	return errors.Wrap(os.WriteFile(f.Path, data, 0o600), "writing session file")
}

func (f *FileStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing session file")
	}
	return nil
}
