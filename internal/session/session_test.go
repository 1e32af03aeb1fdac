package session_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"tasksync/internal/session"
)

type fakeAuth struct {
	token *oauth2.Token
	err   error
	calls int
	mode  session.Mode
}

func (f *fakeAuth) Authenticate(ctx context.Context, mode session.Mode, creds session.Credentials) (*oauth2.Token, error) {
	f.calls++
	f.mode = mode
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

func newStore(t *testing.T) *session.Store {
	t.Helper()
	s := session.NewStore(filepath.Join(t.TempDir(), "session.json"), zerolog.Nop())
	require.NoError(t, s.Load())
	return s
}

func signedToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
	})
	raw, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestStore_InitialState(t *testing.T) {
	s := session.NewStore(filepath.Join(t.TempDir(), "session.json"), zerolog.Nop())
	require.Equal(t, session.StateUninitialized, s.State())

	require.NoError(t, s.Load())
	require.Equal(t, session.StateUnauthenticated, s.State())
	_, ok := s.Current()
	require.False(t, ok)
}

func TestStore_LoginPersistsAndReloads(t *testing.T) {
	s := newStore(t)
	auth := &fakeAuth{token: &oauth2.Token{AccessToken: "opaque-123"}}

	sess, err := s.Login(context.Background(), auth, session.Credentials{Email: " jane@example.com ", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, "opaque-123", sess.Credential)
	require.Equal(t, "jane@example.com", sess.Identity.Email)
	require.Equal(t, session.ModeLogin, auth.mode)
	require.True(t, s.Authenticated())

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded := session.NewStore(s.Path(), zerolog.Nop())
	require.NoError(t, reloaded.Load())
	cur, ok := reloaded.Current()
	require.True(t, ok)
	require.Equal(t, sess.Credential, cur.Credential)
	require.Equal(t, sess.Identity, cur.Identity)
}

func TestStore_IdentityFromJWT(t *testing.T) {
	s := newStore(t)
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	auth := &fakeAuth{token: &oauth2.Token{AccessToken: signedToken(t, "claims@example.com", exp)}}

	sess, err := s.Register(context.Background(), auth, session.Credentials{Email: "typed@example.com", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, session.ModeRegister, auth.mode)
	require.Equal(t, "claims@example.com", sess.Identity.Email)
	require.True(t, sess.Expiry.Equal(exp), "expected expiry %v, got %v", exp, sess.Expiry)
}

func TestStore_LoginValidationSkipsNetwork(t *testing.T) {
	s := newStore(t)
	auth := &fakeAuth{token: &oauth2.Token{AccessToken: "x"}}

	_, err := s.Login(context.Background(), auth, session.Credentials{Email: "no-at-sign", Password: "secret"})
	require.ErrorIs(t, err, session.ErrValidation)

	_, err = s.Login(context.Background(), auth, session.Credentials{Email: "a@b.c", Password: "pw"})
	require.ErrorIs(t, err, session.ErrValidation)

	require.Zero(t, auth.calls)
	require.False(t, s.Authenticated())
}

func TestStore_LoginRejectedKeepsPreviousSession(t *testing.T) {
	s := newStore(t)
	ok := &fakeAuth{token: &oauth2.Token{AccessToken: "first"}}
	_, err := s.Login(context.Background(), ok, session.Credentials{Email: "a@b.c", Password: "secret"})
	require.NoError(t, err)

	rejected := &fakeAuth{err: errors.Join(session.ErrAuth, errors.New("403"))}
	_, err = s.Login(context.Background(), rejected, session.Credentials{Email: "a@b.c", Password: "wrong"})
	require.ErrorIs(t, err, session.ErrAuth)

	cur, present := s.Current()
	require.True(t, present)
	require.Equal(t, "first", cur.Credential)
}

func TestStore_LogoutIdempotent(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.Logout())
	require.Equal(t, session.StateUnauthenticated, s.State())
	require.NoError(t, s.Logout())
	require.Equal(t, session.StateUnauthenticated, s.State())
}

func TestStore_LogoutClearsDisk(t *testing.T) {
	s := newStore(t)
	_, err := s.Login(context.Background(), &fakeAuth{token: &oauth2.Token{AccessToken: "t"}}, session.Credentials{Email: "a@b.c", Password: "secret"})
	require.NoError(t, err)

	require.NoError(t, s.Logout())
	_, err = os.Stat(s.Path())
	require.True(t, os.IsNotExist(err))
	_, err = s.Token()
	require.ErrorIs(t, err, session.ErrNoSession)
}

func TestStore_TokenSource(t *testing.T) {
	s := newStore(t)
	_, err := s.Login(context.Background(), &fakeAuth{token: &oauth2.Token{AccessToken: "t", RefreshToken: "r"}}, session.Credentials{Email: "a@b.c", Password: "secret"})
	require.NoError(t, err)

	var src oauth2.TokenSource = s
	tok, err := src.Token()
	require.NoError(t, err)
	require.Equal(t, "t", tok.AccessToken)
	require.Equal(t, "r", tok.RefreshToken)
	require.Equal(t, "Bearer", tok.TokenType)
}

func TestStore_EstablishRequiresIdentity(t *testing.T) {
	s := newStore(t)
	_, err := s.Establish(&oauth2.Token{AccessToken: "opaque"}, session.Identity{})
	require.ErrorIs(t, err, session.ErrAuth)
	require.False(t, s.Authenticated())
}

func TestStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	s := session.NewStore(path, zerolog.Nop())
	require.Error(t, s.Load())
	require.Equal(t, session.StateUnauthenticated, s.State())
}

func TestStore_WatchSeesExternalLogout(t *testing.T) {
	s := newStore(t)
	_, err := s.Login(context.Background(), &fakeAuth{token: &oauth2.Token{AccessToken: "t"}}, session.Credentials{Email: "a@b.c", Password: "secret"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := s.Watch(ctx)
	require.NoError(t, err)

	other := session.NewStore(s.Path(), zerolog.Nop())
	require.NoError(t, other.Logout())

	select {
	case ev := <-events:
		require.False(t, ev.Authenticated)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for session event")
	}
	require.False(t, s.Authenticated())
}

func TestStore_AdoptUsesIDTokenIdentity(t *testing.T) {
	s := newStore(t)
	idToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "me@example.com"})
	raw, err := idToken.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tok := (&oauth2.Token{AccessToken: "ya29.opaque", RefreshToken: "r"}).
		WithExtra(map[string]any{"id_token": raw})
	a := &fakeAuth{token: tok}

	sess, err := s.Adopt(context.Background(), a)
	require.NoError(t, err)
	require.Equal(t, 1, a.calls)
	require.Equal(t, "me@example.com", sess.Identity.Email)

	reloaded := session.NewStore(s.Path(), zerolog.Nop())
	require.NoError(t, reloaded.Load())
	cur, ok := reloaded.Current()
	require.True(t, ok)
	require.Equal(t, "me@example.com", cur.Identity.Email)
	require.Equal(t, "r", cur.OAuthToken().RefreshToken)
}
