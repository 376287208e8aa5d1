package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"libripal/api"
	"libripal/helpers"
)

// ErrValidation marks input rejected before any request was made.
var ErrValidation = errors.New("invalid input")

const defaultSearchLimit = 20

// LibraryManager is a thin façade over the API client. Each method maps to
// one backend endpoint and returns the decoded response unchanged; business
// rules stay with the backend.
type LibraryManager struct {
	client  *api.Client
	session *Session
}

// NewLibraryManager binds client to sess. A nil session gives a manager
// that can only Login, Register and check Health.
func NewLibraryManager(client *api.Client, sess *Session) *LibraryManager {
	if sess != nil {
		client = client.WithTokens(sess)
	}
	return &LibraryManager{client: client, session: sess}
}

func (lm *LibraryManager) Session() *Session { return lm.session }

// Client exposes the session-bound API client for components that speak to
// endpoints outside the library domain (chat).
func (lm *LibraryManager) Client() *api.Client { return lm.client }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ------------------ Auth ------------------

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for a new Session.
func (lm *LibraryManager) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if !helpers.ValidateRequired(username) || !helpers.ValidateRequired(password) {
		return nil, invalid("username and password are required")
	}
	var tok tokenResponse
	err := lm.client.Do(ctx, api.Request{
		Method:    http.MethodPost,
		Path:      "/api/auth/login",
		Form:      url.Values{"username": {username}, "password": {password}},
		Anonymous: true,
	}, &tok)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, errors.New("login response carried no token")
	}
	return NewSession(username, tok.AccessToken, tok.TokenType, time.Now()), nil
}

// Logout closes the bound session; later calls go out unauthenticated.
func (lm *LibraryManager) Logout() {
	if lm.session != nil {
		lm.session.Close()
	}
}

func (lm *LibraryManager) Register(ctx context.Context, r Registration) (*ActionResult, error) {
	switch {
	case !helpers.ValidateEmail(r.Email):
		return nil, invalid("please enter a valid email address")
	case !helpers.ValidatePassword(r.Password):
		return nil, invalid("password must be at least 8 characters")
	}
	var res ActionResult
	err := lm.client.Do(ctx, api.Request{
		Method:    http.MethodPost,
		Path:      "/api/auth/register",
		Body:      r,
		Anonymous: true,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Health returns the backend's /health document.
func (lm *LibraryManager) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := lm.client.Do(ctx, api.Request{Path: "/health", Anonymous: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ------------------ Books ------------------

// SearchBooks runs a catalogue search. An empty query is rejected without
// calling the backend.
func (lm *LibraryManager) SearchBooks(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return nil, invalid("search query is empty")
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}
	var res SearchResult
	if err := lm.client.Post(ctx, "/api/books/search", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (lm *LibraryManager) GetBook(ctx context.Context, id int64) (*Book, error) {
	if id <= 0 {
		return nil, invalid("book id %d", id)
	}
	var b Book
	if err := lm.client.Get(ctx, "/api/books/"+strconv.FormatInt(id, 10), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (lm *LibraryManager) Genres(ctx context.Context) ([]string, error) {
	return lm.stringList(ctx, "/api/books/genres/list", "genres")
}

func (lm *LibraryManager) Authors(ctx context.Context) ([]string, error) {
	return lm.stringList(ctx, "/api/books/authors/list", "authors")
}

func (lm *LibraryManager) stringList(ctx context.Context, path, field string) ([]string, error) {
	var raw json.RawMessage
	if err := lm.client.Get(ctx, path, &raw); err != nil {
		return nil, err
	}
	var out []string
	if err := decodeList(raw, &out, field); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// ------------------ Circulation ------------------

func (lm *LibraryManager) BorrowBook(ctx context.Context, bookID int64) (*ActionResult, error) {
	if bookID <= 0 {
		return nil, invalid("book id %d", bookID)
	}
	return lm.action(ctx, http.MethodPost, "/api/books/borrow", map[string]int64{"book_id": bookID})
}

// RenewBook renews the loan identified by borrowedID (the issue record, not
// the catalogue id).
func (lm *LibraryManager) RenewBook(ctx context.Context, borrowedID int64) (*ActionResult, error) {
	if borrowedID <= 0 {
		return nil, invalid("borrowed book id %d", borrowedID)
	}
	return lm.action(ctx, http.MethodPost, "/api/books/renew", map[string]int64{"borrowed_book_id": borrowedID})
}

func (lm *LibraryManager) ReserveBook(ctx context.Context, bookID int64) (*ActionResult, error) {
	if bookID <= 0 {
		return nil, invalid("book id %d", bookID)
	}
	return lm.action(ctx, http.MethodPost, "/api/books/reserve", map[string]int64{"book_id": bookID})
}

func (lm *LibraryManager) ReturnBook(ctx context.Context, bookID int64) (*ActionResult, error) {
	if bookID <= 0 {
		return nil, invalid("book id %d", bookID)
	}
	return lm.action(ctx, http.MethodPost, "/api/books/"+strconv.FormatInt(bookID, 10)+"/return", nil)
}

func (lm *LibraryManager) action(ctx context.Context, method, path string, body any) (*ActionResult, error) {
	var res ActionResult
	if err := lm.client.Do(ctx, api.Request{Method: method, Path: path, Body: body}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ------------------ User ------------------

func (lm *LibraryManager) Profile(ctx context.Context) (*UserProfile, error) {
	var p UserProfile
	if err := lm.client.Get(ctx, "/api/users/profile", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (lm *LibraryManager) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*ActionResult, error) {
	return lm.action(ctx, http.MethodPut, "/api/users/profile", upd)
}

// BorrowedBooks accepts either a bare array or {"borrowed_books": [...]}.
func (lm *LibraryManager) BorrowedBooks(ctx context.Context) ([]IssuedBook, error) {
	var raw json.RawMessage
	if err := lm.client.Get(ctx, "/api/users/borrowed", &raw); err != nil {
		return nil, err
	}
	var out []IssuedBook
	if err := decodeList(raw, &out, "borrowed_books", "issued_books", "books"); err != nil {
		return nil, fmt.Errorf("decode borrowed books: %w", err)
	}
	return out, nil
}

func (lm *LibraryManager) Reservations(ctx context.Context) ([]Reservation, error) {
	var out []Reservation
	if err := lm.client.Get(ctx, "/api/users/reservations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (lm *LibraryManager) Fines(ctx context.Context) (*FineSummary, error) {
	var f FineSummary
	if err := lm.client.Get(ctx, "/api/users/fines", &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (lm *LibraryManager) ReadingHistory(ctx context.Context, limit int) ([]IssuedBook, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []IssuedBook
	err := lm.client.Do(ctx, api.Request{
		Path:  "/api/users/reading-history",
		Query: url.Values{"limit": {strconv.Itoa(limit)}},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (lm *LibraryManager) Statistics(ctx context.Context) (*Statistics, error) {
	var s Statistics
	if err := lm.client.Get(ctx, "/api/users/statistics", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Recommendations accepts either a bare array or {"recommendations": [...]}.
func (lm *LibraryManager) Recommendations(ctx context.Context) ([]Book, error) {
	var raw json.RawMessage
	if err := lm.client.Get(ctx, "/api/users/recommendations", &raw); err != nil {
		return nil, err
	}
	var out []Book
	if err := decodeList(raw, &out, "recommendations", "books"); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}
	return out, nil
}

func (lm *LibraryManager) Notifications(ctx context.Context) ([]Notification, error) {
	var raw json.RawMessage
	if err := lm.client.Get(ctx, "/api/users/notifications", &raw); err != nil {
		return nil, err
	}
	var out []Notification
	if err := decodeList(raw, &out, "notifications"); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	return out, nil
}

// MarkNotificationRead is the only transition a notification goes through
// on the client.
func (lm *LibraryManager) MarkNotificationRead(ctx context.Context, id int64) error {
	if id <= 0 {
		return invalid("notification id %d", id)
	}
	return lm.client.Put(ctx, "/api/users/notifications/"+strconv.FormatInt(id, 10)+"/read", nil, nil)
}

func (lm *LibraryManager) NotificationPreferences(ctx context.Context) (*NotificationPreferences, error) {
	var p NotificationPreferences
	if err := lm.client.Get(ctx, "/api/users/notifications/preferences", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (lm *LibraryManager) UpdateNotificationPreferences(ctx context.Context, p NotificationPreferences) (*ActionResult, error) {
	for _, d := range p.ReminderDays {
		if d < 0 || d > helpers.MaxBorrowDays {
			return nil, invalid("reminder day %d out of range", d)
		}
	}
	return lm.action(ctx, http.MethodPut, "/api/users/notifications/preferences", p)
}

// decodeList decodes raw into out when it is a JSON array, or else the first
// of fields present in a JSON object. A null body yields an empty list.
func decodeList(raw json.RawMessage, out any, fields ...string) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	for _, f := range fields {
		if v, ok := obj[f]; ok {
			return decodeList(v, out)
		}
	}
	return fmt.Errorf("expected a list or one of %v", fields)
}
