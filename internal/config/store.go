package config

import (
	"fmt"
	"sync"

	"github.com/shopfront/shopctl/internal/session"
)

// ProfileStore is a session.Store that persists the session into one
// profile of the config file, so a login survives between invocations.
type ProfileStore struct {
	mu   sync.Mutex
	cfg  *Config
	name string
}

var _ session.Store = (*ProfileStore)(nil)

// SessionStore returns the store for the named profile (current profile if empty).
func (c *Config) SessionStore(name string) *ProfileStore {
	if name == "" {
		name = c.CurrentProfile
	}
	return &ProfileStore{cfg: c, name: name}
}

// Save writes the tokens and user together. The current profile is left as
// is. If the file cannot be written the in-memory profile is rolled back.
func (s *ProfileStore) Save(sess session.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.cfg.profile(s.name)
	prev := *p

	p.AccessToken = sess.AccessToken
	p.RefreshToken = sess.RefreshToken
	p.Username = sess.User.Username
	p.Role = string(sess.User.Role)

	if err := s.cfg.Save(); err != nil {
		*p = prev
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *ProfileStore) Load() (session.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.cfg.Profiles[s.name]
	if !ok || p.AccessToken == "" {
		return session.Session{}, false, nil
	}

	return session.Session{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		User: session.User{
			Username: p.Username,
			Role:     session.Role(p.Role),
		},
	}, true, nil
}

// Clear drops the session but keeps the profile's server URL. Like Save, a
// failed write restores the in-memory profile.
func (s *ProfileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.cfg.Profiles[s.name]
	if !ok {
		return nil
	}

	prev := *p
	p.AccessToken = ""
	p.RefreshToken = ""
	p.Username = ""
	p.Role = ""

	if err := s.cfg.Save(); err != nil {
		*p = prev
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
