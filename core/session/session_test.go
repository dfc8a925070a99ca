package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func signed(t *testing.T, exp time.Time) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	s, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "no token", want: true},
		{name: "mock token", token: "mock-jwt-token-1-1700000000000", want: false},
		{name: "jwt in the future", token: signed(t, now.Add(time.Hour)), want: false},
		{name: "jwt in the past", token: signed(t, now.Add(-time.Minute)), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{}
			require.NoError(t, s.Set(tt.token, nil))
			assert.Equal(t, tt.want, s.Expired(now))
		})
	}
}

func TestSessionUser(t *testing.T) {
	s, err := New("tok", testUser{ID: "1", Email: "admin@admission.com"})
	require.NoError(t, err)
	assert.Equal(t, "tok", s.Token())

	var usr testUser
	ok, err := s.User(&usr)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "admin@admission.com", usr.Email)

	s.Clear()
	assert.Empty(t, s.Token())
	ok, err = s.User(&usr)
	require.NoError(t, err)
	assert.False(t, ok)

	var nilSession *Session
	assert.Empty(t, nilSession.Token())
}

func testStore(t *testing.T, store Store) {
	s, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, s.Token())

	s, err = New("tok", testUser{ID: "2"})
	require.NoError(t, err)
	require.NoError(t, store.Save(s))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.Token())
	var usr testUser
	ok, err := loaded.User(&usr)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", usr.ID)

	require.NoError(t, store.Clear())
	loaded, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded.Token())
	require.NoError(t, store.Clear())
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	testStore(t, NewFileStore(path))

	s, err := New("tok", testUser{ID: "3"})
	require.NoError(t, err)
	store := NewFileStore(path)
	require.NoError(t, store.Save(s))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"auth-token": "tok"`)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
