package session

import (
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() Session {
	return Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		User:         User{Username: "alice", Role: RoleAdmin},
	}
}

func TestSessionValidate(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		wantErr bool
	}{
		{"both tokens", Session{AccessToken: "a", RefreshToken: "r"}, false},
		{"missing refresh", Session{AccessToken: "a"}, true},
		{"missing access", Session{RefreshToken: "r"}, true},
		{"empty", Session{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.session.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrIncompleteSession)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSessionIsAdmin(t *testing.T) {
	s := testSession()
	assert.True(t, s.IsAdmin())

	s.User.Role = RoleUser
	assert.False(t, s.IsAdmin())
}

func TestMemoryStore_SaveLoadClear(t *testing.T) {
	store := NewMemoryStore()

	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(testSession()))

	got, ok, err := store.Load()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, testSession(), got)

	require.NoError(t, store.Clear())
	got, ok, err = store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, got.AccessToken)
	assert.Empty(t, got.RefreshToken)
	assert.Empty(t, got.User.Username)
}

func TestMemoryStore_RejectsPartialSession(t *testing.T) {
	store := NewMemoryStoreWith(testSession())

	err := store.Save(Session{AccessToken: "only-access"})
	assert.ErrorIs(t, err, ErrIncompleteSession)

	// The previous session is untouched.
	got, ok, err := store.Load()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "access-1", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken)
}

func TestMemoryStore_ConcurrentWritesNeverInterleave(t *testing.T) {
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			tok := string(rune('a' + i%26))
			_ = store.Save(Session{AccessToken: "access-" + tok, RefreshToken: "refresh-" + tok})
		}(i)
		go func() {
			defer wg.Done()
			s, ok, _ := store.Load()
			if ok {
				assert.Equal(t, s.AccessToken[len("access-"):], s.RefreshToken[len("refresh-"):])
			}
		}()
	}
	wg.Wait()
}

func TestInspectToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	iat := time.Now().Add(-time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice@example.com",
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	info, err := InspectToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", info.Subject)
	assert.True(t, info.ExpiresAt.Equal(exp))
	assert.True(t, info.IssuedAt.Equal(iat))
	assert.False(t, info.Expired(time.Now()))
	assert.True(t, info.Expired(exp.Add(time.Second)))
}

func TestInspectToken_Opaque(t *testing.T) {
	_, err := InspectToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrOpaqueToken)
}

func TestTokenInfo_NoExpiry(t *testing.T) {
	info := TokenInfo{}
	assert.False(t, info.Expired(time.Now()))
}
