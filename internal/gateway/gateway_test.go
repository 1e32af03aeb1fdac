package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"tasksync/internal/gateway"
	"tasksync/internal/session"
)

func loggedIn(t *testing.T, token string) *session.Store {
	t.Helper()
	s := session.NewStore(filepath.Join(t.TempDir(), "session.json"), zerolog.Nop())
	require.NoError(t, s.Load())
	_, err := s.Establish(&oauth2.Token{AccessToken: token}, session.Identity{Email: "a@b.c"})
	require.NoError(t, err)
	return s
}

func TestSend_AttachesBearerAndDecodes(t *testing.T) {
	var gotAuth, gotType, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"echo":"` + in["title"] + `"}`))
	}))
	defer srv.Close()

	g := gateway.New(srv.URL+"/api/", srv.Client(), loggedIn(t, "tok-1"), zerolog.Nop())

	var out struct{ Echo string }
	err := g.Send(context.Background(), http.MethodPost, "/todos", map[string]string{"title": "Buy milk"}, &out)
	require.NoError(t, err)
	require.Equal(t, "/api/todos", gotPath)
	require.Equal(t, "Bearer tok-1", gotAuth)
	require.Equal(t, "application/json", gotType)
	require.Equal(t, "Buy milk", out.Echo)
}

func TestSend_ReadsCredentialAtCallTime(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	store := loggedIn(t, "tok-1")
	g := gateway.New(srv.URL, srv.Client(), store, zerolog.Nop())

	require.NoError(t, g.Send(context.Background(), http.MethodDelete, "/todos/1", nil, nil))
	require.Equal(t, "Bearer tok-1", gotAuth)

	require.NoError(t, store.Logout())
	require.NoError(t, g.Send(context.Background(), http.MethodDelete, "/todos/1", nil, nil))
	require.Empty(t, gotAuth)
}

func TestSend_ClassifiesStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   gateway.Kind
		msg    string
	}{
		{"unauthorized", http.StatusUnauthorized, "", gateway.KindUnauthorized, ""},
		{"forbidden", http.StatusForbidden, `{"message":"Not authorized"}`, gateway.KindUnauthorized, "Not authorized"},
		{"not found", http.StatusNotFound, `{"error":"Todo not found"}`, gateway.KindNotFound, "Todo not found"},
		{"bad request", http.StatusBadRequest, "title required", gateway.KindValidation, "title required"},
		{"server", http.StatusInternalServerError, "<html>oops</html>", gateway.KindServerFault, ""},
		{"bad gateway", http.StatusBadGateway, "", gateway.KindServerFault, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := gateway.New(srv.URL, srv.Client(), nil, zerolog.Nop())
			err := g.Send(context.Background(), http.MethodGet, "/todos", nil, nil)
			require.Error(t, err)

			var gerr *gateway.Error
			require.ErrorAs(t, err, &gerr)
			require.Equal(t, tt.want, gerr.Kind)
			require.Equal(t, tt.status, gerr.Status)
			require.Equal(t, tt.msg, gerr.Message)
		})
	}
}

func TestSend_TransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	g := gateway.New(url, nil, nil, zerolog.Nop())
	err := g.Send(context.Background(), http.MethodGet, "/todos", nil, nil)

	kind, ok := gateway.KindOf(err)
	require.True(t, ok)
	require.Equal(t, gateway.KindUnavailable, kind)
}

func TestSend_TimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := srv.Client()
	client.Timeout = 20 * time.Millisecond
	g := gateway.New(srv.URL, client, nil, zerolog.Nop())

	err := g.Send(context.Background(), http.MethodGet, "/todos", nil, nil)
	kind, ok := gateway.KindOf(err)
	require.True(t, ok)
	require.Equal(t, gateway.KindUnavailable, kind)
}

func TestSend_MalformedJSONIsServerFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{"))
	}))
	defer srv.Close()

	g := gateway.New(srv.URL, srv.Client(), nil, zerolog.Nop())
	var out map[string]any
	err := g.Send(context.Background(), http.MethodGet, "/todos", nil, &out)

	kind, _ := gateway.KindOf(err)
	require.Equal(t, gateway.KindServerFault, kind)
}

func TestIsUnauthorized(t *testing.T) {
	require.True(t, gateway.IsUnauthorized(&gateway.Error{Kind: gateway.KindUnauthorized}))
	require.False(t, gateway.IsUnauthorized(&gateway.Error{Kind: gateway.KindNotFound}))
	require.False(t, gateway.IsUnauthorized(nil))
}
