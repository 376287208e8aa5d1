package views

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"libripal/api"
	"libripal/chat"
	"libripal/library"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

type route struct {
	status int
	body   string
}

// defaultRoutes is a small library: Ana has Dune (due in two days, renewed
// once) and Emma (due in three weeks) and owes nothing.
var defaultRoutes = map[string]route{
	"GET /api/users/profile": {200, `{"id":1,"username":"ana","email":"ana@example.com","first_name":"Ana","last_name":"Lee",
		"library_stats":{"books_issued":2,"books_overdue":0,"total_fine":0,"max_books_allowed":5},
		"preferences":{"email_reminders":true,"telegram_reminders":false,"reminder_days":[3,1],"recommendation_frequency":"weekly"}}`},
	"GET /api/users/borrowed": {200, `{"borrowed_books":[
		{"id":11,"book_id":1,"title":"Dune","author":"Frank Herbert","due_date":"2024-05-12","renewal_count":1},
		{"id":12,"book_id":2,"book_title":"Emma","book_author":"Jane Austen","due_date":"2024-05-31","renewal_count":0}]}`},
	"GET /api/users/fines": {200, `{"fines":[],"total_amount":0,"currency":"USD"}`},
	"GET /api/users/recommendations": {200, `{"recommendations":[
		{"id":21,"title":"Rec One","author":"A"},{"id":22,"title":"Rec Two","author":"B"},
		{"id":23,"title":"Rec Three","author":"C"},{"id":24,"title":"Rec Four","author":"D"},
		{"id":25,"title":"Rec Five","author":"E"}]}`},
	"GET /api/users/notifications":         {200, `[{"id":31,"type":"warning","title":"Due soon","message":"Dune is due in 2 days","is_read":false}]`},
	"GET /api/users/reservations":          {200, `[]`},
	"PUT /api/users/notifications/31/read": {200, `{}`},
	"POST /api/books/search": {200, `{"books":[
		{"id":1,"title":"Dune","author":"Frank Herbert","genre":"Fiction","available_copies":2,"total_copies":3},
		{"id":2,"title":"SICP","author":"Abelson","genre":"Technology","available_copies":0,"total_copies":1}],"total_count":2}`},
	"GET /api/books/1":          {200, `{"id":1,"title":"Dune","author":"Frank Herbert","available_copies":1,"total_copies":3}`},
	"GET /api/books/2":          {200, `{"id":2,"title":"SICP","author":"Abelson","available_copies":0,"total_copies":1}`},
	"POST /api/books/borrow":    {200, `{"success":true,"message":"Book borrowed successfully"}`},
	"POST /api/books/reserve":   {200, `{"success":true,"message":"Book reserved successfully"}`},
	"POST /api/books/renew":     {200, `{"success":true,"message":"Book renewed successfully"}`},
	"POST /api/books/2/return":  {200, `{"success":true,"message":"Book returned successfully"}`},
	"POST /api/chat/":           {200, `{"type":"fines","message":"Your total outstanding fines: $0.00","data":[],"suggestions":["Set up reminders"]}`},
	"GET /api/chat/suggestions": {200, `["Renew Dune"]`},
	"POST /api/auth/login":      {200, `{"access_token":"tok-abc","token_type":"bearer"}`},
	"POST /api/auth/register":   {200, `{"success":true,"message":"User registered successfully"}`},
}

// backend is a chi fake of the LibriPal API that records request bodies.
type backend struct {
	url string

	mu     sync.Mutex
	bodies map[string]map[string]any
}

func newBackend(t *testing.T, overrides map[string]route) *backend {
	t.Helper()
	routes := map[string]route{}
	for k, v := range defaultRoutes {
		routes[k] = v
	}
	for k, v := range overrides {
		routes[k] = v
	}

	b := &backend{bodies: map[string]map[string]any{}}
	r := chi.NewRouter()
	for key, rt := range routes {
		method, path, _ := strings.Cut(key, " ")
		rt := rt
		r.MethodFunc(method, path, func(w http.ResponseWriter, req *http.Request) {
			var body map[string]any
			_ = json.NewDecoder(req.Body).Decode(&body)
			b.mu.Lock()
			b.bodies[key] = body
			b.mu.Unlock()
			w.WriteHeader(rt.status)
			w.Write([]byte(rt.body))
		})
	}
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	b.url = srv.URL
	return b
}

func (b *backend) body(key string) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[key]
}

func (b *backend) seen(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.bodies[key]
	return ok
}

func tempStore(t *testing.T) *library.Store {
	t.Helper()
	s, err := library.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// newEnv signs Ana in against b and feeds input to the terminal.
func newEnv(t *testing.T, b *backend, input string) (*Env, *bytes.Buffer) {
	t.Helper()
	client := api.NewClient(b.url)
	lm := library.NewLibraryManager(client, library.NewSession("ana", "tok", "bearer", testNow))
	out := &bytes.Buffer{}
	return &Env{
		Term:     NewTerminal(strings.NewReader(input), out),
		Manager:  lm,
		Chat:     chat.NewService(lm.Client(), time.Second),
		Store:    tempStore(t),
		Logger:   discardLogger(),
		Currency: "USD",
		Now:      clock,
	}, out
}
