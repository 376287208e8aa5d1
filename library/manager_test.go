package library

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"libripal/api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend records the last request body and Authorization header per
// route.
type fakeBackend struct {
	router chi.Router

	mu     sync.Mutex
	bodies map[string]map[string]any
	auth   map[string]string
}

func newFakeBackend() *fakeBackend {
	fb := &fakeBackend{
		router: chi.NewRouter(),
		bodies: map[string]map[string]any{},
		auth:   map[string]string{},
	}
	return fb
}

func (fb *fakeBackend) handle(method, pattern string, status int, reply string) {
	fb.router.MethodFunc(method, pattern, func(w http.ResponseWriter, r *http.Request) {
		key := method + " " + r.URL.Path
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		fb.mu.Lock()
		fb.auth[key] = r.Header.Get("Authorization")
		fb.bodies[key] = body
		fb.mu.Unlock()
		w.WriteHeader(status)
		w.Write([]byte(reply))
	})
}

func (fb *fakeBackend) body(key string) map[string]any {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.bodies[key]
}

func (fb *fakeBackend) seen(key string) bool {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	_, ok := fb.bodies[key]
	return ok
}

func (fb *fakeBackend) authFor(key string) string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.auth[key]
}

func newManager(t *testing.T, fb *fakeBackend) *LibraryManager {
	t.Helper()
	srv := httptest.NewServer(fb.router)
	t.Cleanup(srv.Close)
	sess := NewSession("ana", "tok", "bearer", time.Now())
	return NewLibraryManager(api.NewClient(srv.URL), sess)
}

func TestSearchBooks(t *testing.T) {
	fb := newFakeBackend()
	fb.handle(http.MethodPost, "/api/books/search", 200,
		`{"books":[{"id":1,"title":"Hands-On Machine Learning","author":"Aurélien Géron","available_copies":2,"total_copies":3}],"total_count":1,"search_time_ms":12.5}`)
	lm := newManager(t, fb)

	res, err := lm.SearchBooks(context.Background(), SearchRequest{Query: "  machine learning ", Genre: "AI"})
	require.NoError(t, err)
	require.Len(t, res.Books, 1)
	assert.Equal(t, "Hands-On Machine Learning", res.Books[0].Title)
	assert.Equal(t, 12.5, res.SearchTimeMS)

	body := fb.body("POST /api/books/search")
	assert.Equal(t, "machine learning", body["query"])
	assert.Equal(t, float64(20), body["limit"])
	assert.Equal(t, "AI", body["genre"])
	assert.Equal(t, false, body["availability_only"])
	assert.Equal(t, "Bearer tok", fb.authFor("POST /api/books/search"))
}

func TestEmptySearchShortCircuits(t *testing.T) {
	fb := newFakeBackend()
	lm := newManager(t, fb)
	_, err := lm.SearchBooks(context.Background(), SearchRequest{Query: "   "})
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, fb.seen("POST /api/books/search"))
}

func TestCirculationEndpoints(t *testing.T) {
	fb := newFakeBackend()
	fb.handle(http.MethodPost, "/api/books/borrow", 200, `{"success":true,"message":"Book borrowed successfully"}`)
	fb.handle(http.MethodPost, "/api/books/renew", 200, `{"success":true,"message":"Renewed"}`)
	fb.handle(http.MethodPost, "/api/books/reserve", 200, `{"success":true,"message":"Reserved"}`)
	fb.handle(http.MethodPost, "/api/books/{id}/return", 200, `{"success":true,"message":"Returned"}`)
	lm := newManager(t, fb)
	ctx := context.Background()

	res, err := lm.BorrowBook(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Book borrowed successfully", res.Message)
	assert.Equal(t, float64(7), fb.body("POST /api/books/borrow")["book_id"])

	_, err = lm.RenewBook(ctx, 31)
	require.NoError(t, err)
	assert.Equal(t, float64(31), fb.body("POST /api/books/renew")["borrowed_book_id"])

	_, err = lm.ReserveBook(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, float64(8), fb.body("POST /api/books/reserve")["book_id"])

	res, err = lm.ReturnBook(ctx, 9)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, fb.seen("POST /api/books/9/return"))

	_, err = lm.BorrowBook(ctx, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBorrowDoesNotPrecheckAvailability(t *testing.T) {
	fb := newFakeBackend()
	fb.handle(http.MethodPost, "/api/books/borrow", 400, `{"detail":"No copies available"}`)
	lm := newManager(t, fb)

	_, err := lm.BorrowBook(context.Background(), 3)
	require.Error(t, err)
	assert.Equal(t, "No copies available", err.Error())
	assert.Equal(t, 400, api.StatusCode(err))
}

func TestBorrowedBooksNormalizesShapes(t *testing.T) {
	for name, reply := range map[string]string{
		"array":  `[{"id":1,"book_title":"Dune","due_date":"2024-04-01","renewal_count":0}]`,
		"object": `{"borrowed_books":[{"id":1,"title":"Dune","due_date":"2024-04-01","renewal_count":0}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			fb := newFakeBackend()
			fb.handle(http.MethodGet, "/api/users/borrowed", 200, reply)
			lm := newManager(t, fb)
			books, err := lm.BorrowedBooks(context.Background())
			require.NoError(t, err)
			require.Len(t, books, 1)
			assert.Equal(t, "Dune", books[0].Title)
		})
	}
}

func TestUserEndpoints(t *testing.T) {
	fb := newFakeBackend()
	fb.handle(http.MethodGet, "/api/users/profile", 200,
		`{"id":5,"username":"ana","email":"ana@libripal.io","first_name":"Ana","library_stats":{"books_issued":2,"books_overdue":1,"total_fine":"3.00","max_books_allowed":5}}`)
	fb.handle(http.MethodGet, "/api/users/fines", 200,
		`{"fines":[{"id":2,"book_title":"Dune","due_date":"2024-03-01","fine_amount":3.0}],"total_amount":3.0,"currency":"USD"}`)
	fb.handle(http.MethodGet, "/api/users/reading-history", 200, `[{"id":1,"title":"Dune","borrowed_date":"2024-01-01","status":"returned"}]`)
	fb.handle(http.MethodGet, "/api/users/statistics", 200, `{"total_borrowed":12,"currently_borrowed":2,"total_fines":0,"favorite_genres":[{"genre":"Fiction","count":4}],"reading_streak":3}`)
	fb.handle(http.MethodGet, "/api/users/recommendations", 200, `{"recommendations":[{"id":3,"title":"Foundation","available_copies":1}]}`)
	fb.handle(http.MethodGet, "/api/users/notifications", 200, `[{"id":11,"type":"warning","title":"Due soon","message":"Dune is due","is_read":false}]`)
	fb.handle(http.MethodPut, "/api/users/notifications/{id}/read", 200, `{"success":true}`)
	fb.handle(http.MethodGet, "/api/users/reservations", 200, `[{"id":1,"book_id":3,"book_title":"Foundation","status":"active","position_in_queue":2}]`)
	fb.handle(http.MethodPut, "/api/users/notifications/preferences", 200, `{"success":true,"message":"Notification preferences updated successfully"}`)
	fb.handle(http.MethodPut, "/api/users/profile", 200, `{"success":true,"message":"Profile updated successfully"}`)
	lm := newManager(t, fb)
	ctx := context.Background()

	p, err := lm.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.DisplayName())
	assert.True(t, IssuanceBlocked(p.LibraryStats))

	f, err := lm.Fines(ctx)
	require.NoError(t, err)
	require.Len(t, f.Fines, 1)
	assert.Equal(t, "3", f.TotalAmount.String())

	h, err := lm.ReadingHistory(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, h, 1)

	st, err := lm.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, st.TotalBorrowed)
	assert.Equal(t, "Fiction", st.FavoriteGenres[0].Genre)

	recs, err := lm.Recommendations(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Foundation", recs[0].Title)

	ns, err := lm.Notifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, NotificationWarning, ns[0].Type)
	require.NoError(t, lm.MarkNotificationRead(ctx, 11))
	assert.True(t, fb.seen("PUT /api/users/notifications/11/read"))

	rs, err := lm.Reservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rs[0].PositionInQueue)

	res, err := lm.UpdateNotificationPreferences(ctx, NotificationPreferences{EmailReminders: true, ReminderDays: []int{3, 1}})
	require.NoError(t, err)
	assert.True(t, res.Success)
	_, err = lm.UpdateNotificationPreferences(ctx, NotificationPreferences{ReminderDays: []int{-1}})
	assert.ErrorIs(t, err, ErrValidation)

	first := "Ana"
	_, err = lm.UpdateProfile(ctx, ProfileUpdate{FirstName: &first})
	require.NoError(t, err)
	body := fb.body("PUT /api/users/profile")
	assert.Equal(t, "Ana", body["first_name"])
	assert.NotContains(t, body, "last_name")
}

func TestLoginCreatesSessionAndLogoutClosesIt(t *testing.T) {
	fb := newFakeBackend()
	fb.router.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Empty(t, r.Header.Get("Authorization"))
		if r.PostForm.Get("password") != "correct-horse" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Incorrect username or password"}`))
			return
		}
		w.Write([]byte(`{"access_token":"fresh","token_type":"bearer"}`))
	})
	fb.handle(http.MethodGet, "/api/users/profile", 200, `{"username":"ana"}`)
	srv := httptest.NewServer(fb.router)
	defer srv.Close()

	anon := NewLibraryManager(api.NewClient(srv.URL), nil)
	ctx := context.Background()

	_, err := anon.Login(ctx, "ana", "wrong")
	assert.EqualError(t, err, "Incorrect username or password")
	_, err = anon.Login(ctx, "", "x")
	assert.ErrorIs(t, err, ErrValidation)

	sess, err := anon.Login(ctx, "ana", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "fresh", sess.Token())

	lm := NewLibraryManager(api.NewClient(srv.URL), sess)
	_, err = lm.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer fresh", fb.authFor("GET /api/users/profile"))

	lm.Logout()
	_, err = lm.Profile(ctx)
	require.NoError(t, err)
	assert.Empty(t, fb.authFor("GET /api/users/profile"))
}

func TestRegisterValidates(t *testing.T) {
	fb := newFakeBackend()
	fb.handle(http.MethodPost, "/api/auth/register", 200, `{"success":true,"message":"User registered successfully"}`)
	lm := newManager(t, fb)
	ctx := context.Background()

	_, err := lm.Register(ctx, Registration{Email: "bad", Password: "longenough"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = lm.Register(ctx, Registration{Email: "ana@libripal.io", Password: "short"})
	assert.ErrorIs(t, err, ErrValidation)

	res, err := lm.Register(ctx, Registration{Email: "ana@libripal.io", Password: "longenough", FirstName: "Ana"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, fb.authFor("POST /api/auth/register"))
}

func TestCatalogueLookups(t *testing.T) {
	fb := newFakeBackend()
	fb.handle(http.MethodGet, "/api/books/genres/list", 200, `{"genres":["Fiction","Science"]}`)
	fb.handle(http.MethodGet, "/api/books/authors/list", 200, `["Frank Herbert"]`)
	fb.handle(http.MethodGet, "/api/books/{id}", 200, `{"id":4,"title":"Dune","available_copies":0}`)
	fb.handle(http.MethodGet, "/health", 200, `{"status":"healthy"}`)
	lm := newManager(t, fb)
	ctx := context.Background()

	g, err := lm.Genres(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fiction", "Science"}, g)

	a, err := lm.Authors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Frank Herbert"}, a)

	b, err := lm.GetBook(ctx, 4)
	require.NoError(t, err)
	assert.False(t, CanBorrow(*b))

	h, err := lm.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", h["status"])
}
