// Package session owns the current bearer credential and the identity it
// belongs to. The session is swapped atomically and persisted to a single
// file in the config directory; the file's absence means logged out.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

var (
	// ErrAuth is returned when the remote side rejects the credentials.
	ErrAuth = errors.New("authentication failed")

	// ErrValidation is returned when credentials fail local checks and
	// nothing was sent.
	ErrValidation = errors.New("invalid credentials")

	// ErrNoSession is returned when an authenticated value is requested
	// while logged out.
	ErrNoSession = errors.New("not logged in")
)

// State is the lifecycle position of a Store.
type State int

const (
	StateUninitialized State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "uninitialized"
	}
}

// Identity is the minimal user descriptor attached to a credential.
type Identity struct {
	Email string
}

// Session is an immutable credential/identity pair.
type Session struct {
	Credential string
	Identity   Identity
	Expiry     time.Time

	token *oauth2.Token
}

// OAuthToken returns a copy of the underlying token, refresh token included.
func (s Session) OAuthToken() *oauth2.Token {
	if s.token == nil {
		return &oauth2.Token{AccessToken: s.Credential, TokenType: "Bearer", Expiry: s.Expiry}
	}
	tok := *s.token
	return &tok
}

// Mode selects between signing in and creating an account.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

func (m Mode) String() string {
	if m == ModeRegister {
		return "register"
	}
	return "login"
}

// Credentials are what the user types to authenticate.
type Credentials struct {
	Email    string
	Password string
}

// Validate applies the checks done before any network call.
func (c Credentials) Validate() error {
	if !strings.Contains(c.Email, "@") {
		return fmt.Errorf("%w: email must contain '@'", ErrValidation)
	}
	if len(c.Password) < 3 {
		return fmt.Errorf("%w: password must be at least 3 characters", ErrValidation)
	}
	return nil
}

// Authenticator exchanges credentials for a bearer token. Implementations
// wrap a rejection with ErrAuth so callers can tell it apart from transport
// failures.
type Authenticator interface {
	Authenticate(ctx context.Context, mode Mode, creds Credentials) (*oauth2.Token, error)
}

// Store holds the single current session.
type Store struct {
	path   string
	logger zerolog.Logger

	mu      sync.RWMutex
	state   State
	current *Session
}

// NewStore creates a Store persisting to path. Call Load to read the
// durable state.
func NewStore(path string, logger zerolog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.With().Str("component", "session").Logger(),
	}
}

// Path returns the durable location of the session.
func (s *Store) Path() string { return s.path }

// State returns the lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Authenticated reports whether a session is present.
func (s *Store) Authenticated() bool {
	return s.State() == StateAuthenticated
}

// Current returns the session, if any. It never touches disk.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// Token implements oauth2.TokenSource over the current session.
func (s *Store) Token() (*oauth2.Token, error) {
	cur, ok := s.Current()
	if !ok {
		return nil, ErrNoSession
	}
	return cur.OAuthToken(), nil
}

// Load reads the persisted session. A missing file leaves the store
// unauthenticated; an unreadable one is reported and also leaves it
// unauthenticated.
func (s *Store) Load() error {
	rec, err := readRecord(s.path)
	if err != nil {
		s.swap(nil)
		return err
	}
	if rec == nil {
		s.swap(nil)
		return nil
	}
	sess, err := newSession(rec.Token, Identity{Email: rec.Email})
	if err != nil {
		s.swap(nil)
		return err
	}
	s.swap(&sess)
	return nil
}

// Login validates creds, authenticates through a and stores the result.
func (s *Store) Login(ctx context.Context, a Authenticator, creds Credentials) (Session, error) {
	return s.authenticate(ctx, a, ModeLogin, creds)
}

// Register creates the account through a and signs in with it.
func (s *Store) Register(ctx context.Context, a Authenticator, creds Credentials) (Session, error) {
	return s.authenticate(ctx, a, ModeRegister, creds)
}

func (s *Store) authenticate(ctx context.Context, a Authenticator, mode Mode, creds Credentials) (Session, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := creds.Validate(); err != nil {
		return Session{}, err
	}

	tok, err := a.Authenticate(ctx, mode, creds)
	if err != nil {
		s.logger.Debug().Err(err).Str("mode", mode.String()).Msg("authentication failed")
		return Session{}, err
	}

	return s.Establish(tok, Identity{Email: creds.Email})
}

// Adopt signs in through an authenticator that collects credentials itself,
// such as a browser consent flow. No local validation applies.
func (s *Store) Adopt(ctx context.Context, a Authenticator) (Session, error) {
	tok, err := a.Authenticate(ctx, ModeLogin, Credentials{})
	if err != nil {
		s.logger.Debug().Err(err).Msg("external authentication failed")
		return Session{}, err
	}
	return s.Establish(tok, Identity{})
}

// Establish replaces the current session with tok and persists it.
// The identity is taken from the token's claims when it is a JWT, and from
// fallback otherwise.
func (s *Store) Establish(tok *oauth2.Token, fallback Identity) (Session, error) {
	sess, err := newSession(tok, fallback)
	if err != nil {
		return Session{}, err
	}
	if err := writeRecord(s.path, record{Token: sess.token, Email: sess.Identity.Email}); err != nil {
		return Session{}, fmt.Errorf("failed to save session: %w", err)
	}
	s.swap(&sess)
	s.logger.Debug().Str("identity", sess.Identity.Email).Msg("session established")
	return sess, nil
}

// Logout clears the session from memory and disk. Calling it while logged
// out is a no-op.
func (s *Store) Logout() error {
	if err := removeRecord(s.path); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.state = StateUnauthenticated
	s.mu.Unlock()
	if had {
		s.logger.Debug().Msg("session cleared")
	}
	return nil
}

func (s *Store) swap(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sess
	if sess == nil {
		s.state = StateUnauthenticated
	} else {
		s.state = StateAuthenticated
	}
}

func newSession(tok *oauth2.Token, fallback Identity) (Session, error) {
	if tok == nil || strings.TrimSpace(tok.AccessToken) == "" {
		return Session{}, fmt.Errorf("%w: empty token", ErrAuth)
	}
	// Extra values do not survive copyToken.
	idToken, _ := tok.Extra("id_token").(string)
	tok = copyToken(tok)
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}

	identity := fallback
	c := parseClaims(tok.AccessToken)
	if c.Email == "" && idToken != "" {
		// OpenID providers put the identity in a separate ID token.
		c.Email = parseClaims(idToken).Email
	}
	if c.Email != "" {
		identity.Email = c.Email
	}
	if tok.Expiry.IsZero() && !c.Expiry.IsZero() {
		tok.Expiry = c.Expiry
	}
	if strings.TrimSpace(identity.Email) == "" {
		return Session{}, fmt.Errorf("%w: token carries no identity", ErrAuth)
	}

	return Session{
		Credential: tok.AccessToken,
		Identity:   identity,
		Expiry:     tok.Expiry,
		token:      tok,
	}, nil
}

func copyToken(tok *oauth2.Token) *oauth2.Token {
	cp := &oauth2.Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	return cp
}
