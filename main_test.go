package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLibrary struct {
	url string

	mu    sync.Mutex
	auth  []string
	calls []string
}

func newFakeLibrary(t *testing.T) *fakeLibrary {
	t.Helper()
	f := &fakeLibrary{}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			f.calls = append(f.calls, req.Method+" "+req.URL.Path)
			f.auth = append(f.auth, req.Header.Get("Authorization"))
			f.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	reply := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte(body)) }
	}
	r.Get("/health", reply(`{"status":"healthy","database":"ok"}`))
	r.Post("/api/auth/login", reply(`{"access_token":"tok-main","token_type":"bearer"}`))
	r.Post("/api/books/borrow", reply(`{"success":true,"message":"Book borrowed successfully"}`))
	r.Post("/api/books/{id}/return", reply(`{"success":true,"message":"Book returned successfully"}`))
	r.Get("/api/users/fines", reply(`{"fines":[{"id":7,"book_title":"Emma","due_date":"2024-05-01","days_overdue":4,"current_fine":2}],"total_amount":2}`))
	r.Get("/api/users/notifications", reply(`[{"id":1,"type":"overdue","title":"Overdue","message":"Emma is overdue","is_read":false}]`))
	r.Get("/api/users/statistics", reply(`{"total_borrowed":12,"currently_borrowed":2,"total_fines":1.5,"favorite_genres":[{"genre":"Fiction","count":4}],"reading_streak":3}`))
	r.Get("/api/books/genres/list", reply(`{"genres":["Fiction","Science"]}`))
	r.Get("/api/books/authors/list", reply(`["Frank Herbert"]`))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	f.url = srv.URL
	return f
}

func (f *fakeLibrary) lastAuth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auth[len(f.auth)-1]
}

func (f *fakeLibrary) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

// testEnv points the CLI at f and a scratch data directory.
func testEnv(t *testing.T, f *fakeLibrary) {
	t.Helper()
	t.Setenv("LIBRIPAL_API_URL", f.url)
	t.Setenv("LIBRIPAL_DATA_DIR", t.TempDir())
	t.Setenv("LIBRIPAL_LOG_FILE", "")
	t.Setenv("LIBRIPAL_LOG_LEVEL", "")
}

func run(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root, a := newRootCmd(strings.NewReader(input), &out)
	t.Cleanup(a.close)
	root.SetArgs(args)
	err := root.Execute()
	a.close()
	return out.String(), err
}

func TestCommandsNeedSession(t *testing.T) {
	f := newFakeLibrary(t)
	testEnv(t, f)

	for _, args := range [][]string{{"borrow", "1"}, {"fines"}, {"dashboard"}, {"chat"}} {
		_, err := run(t, "", args...)
		assert.ErrorIs(t, err, errNotSignedIn, args)
	}
	assert.False(t, f.called("POST /api/books/borrow"))
}

func TestLoginThenActions(t *testing.T) {
	f := newFakeLibrary(t)
	testEnv(t, f)

	out, err := run(t, "ana\nsecret\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Signed in as ana")

	out, err = run(t, "", "borrow", "1")
	require.NoError(t, err)
	assert.Equal(t, "✓ Book borrowed successfully\n", out)
	assert.Equal(t, "Bearer tok-main", f.lastAuth())

	out, err = run(t, "", "return", "3")
	require.NoError(t, err)
	assert.True(t, f.called("POST /api/books/3/return"))
	assert.Contains(t, out, "Book returned successfully")

	_, err = run(t, "", "renew", "abc")
	assert.EqualError(t, err, "invalid id: abc")
	_, err = run(t, "", "renew")
	assert.Error(t, err)

	out, err = run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")
	_, err = run(t, "", "fines")
	assert.ErrorIs(t, err, errNotSignedIn)
}

func TestReports(t *testing.T) {
	f := newFakeLibrary(t)
	testEnv(t, f)
	_, err := run(t, "ana\nsecret\n", "login")
	require.NoError(t, err)

	out, err := run(t, "", "fines")
	require.NoError(t, err)
	assert.Contains(t, out, "Emma")
	assert.Contains(t, out, "$2.00")
	assert.Contains(t, out, "Total outstanding: $2.00")

	out, err = run(t, "", "notifications")
	require.NoError(t, err)
	assert.Contains(t, out, "1 unread")
	assert.Contains(t, out, "• ")
	assert.Contains(t, out, "Overdue: Emma is overdue")

	out, err = run(t, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Books read:            12")
	assert.Contains(t, out, "Reading streak:        3 days")
	assert.Contains(t, out, "Fiction")

	out, err = run(t, "", "genres")
	require.NoError(t, err)
	assert.Contains(t, out, "Genres:  Fiction, Science")
	assert.Contains(t, out, "Authors: Frank Herbert")
}

func TestHealthAndFlags(t *testing.T) {
	f := newFakeLibrary(t)
	testEnv(t, f)
	t.Setenv("LIBRIPAL_API_URL", "http://127.0.0.1:1")

	out, err := run(t, "", "health", "--api-url", f.url)
	require.NoError(t, err)
	assert.Contains(t, out, "status:      healthy")
	assert.Contains(t, out, "Local store ")

	_, err = run(t, "", "health", "--log-level", "loud")
	assert.ErrorContains(t, err, "loud")
}

func TestShellQuitsFromLogin(t *testing.T) {
	f := newFakeLibrary(t)
	testEnv(t, f)
	out, err := run(t, "q\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome to LibriPal")
}
