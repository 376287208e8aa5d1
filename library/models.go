package library

import (
	"encoding/json"
	"strings"
	"time"

	"libripal/helpers"

	"github.com/shopspring/decimal"
)

// Date is a calendar date or timestamp as sent by the backend. It accepts
// "2006-01-02", RFC3339 and null.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date { return Date{Time: t} }

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := helpers.ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(helpers.DateISO))
}

// Book is a catalogue record. Only AvailableCopies changes as a result of
// the client's actions (the backend recomputes it after borrow/return).
type Book struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	Author          string          `json:"author"`
	ISBN            string          `json:"isbn,omitempty"`
	Publisher       string          `json:"publisher,omitempty"`
	Genre           string          `json:"genre,omitempty"`
	Description     string          `json:"description,omitempty"`
	PublicationYear int             `json:"publication_year,omitempty"`
	TotalCopies     int             `json:"total_copies"`
	AvailableCopies int             `json:"available_copies"`
	CoverImageURL   string          `json:"cover_image_url,omitempty"`
	AISummary       string          `json:"ai_summary,omitempty"`
	Rating          float64         `json:"rating,omitempty"`
	Categories      []string        `json:"categories,omitempty"`
	Price           decimal.Decimal `json:"price"`
}

func (b *Book) UnmarshalJSON(data []byte) error {
	type plain Book
	var wire struct {
		plain
		ImageURL      string              `json:"image_url"`
		AverageRating float64             `json:"average_rating"`
		Price         decimal.NullDecimal `json:"price"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*b = Book(wire.plain)
	if b.CoverImageURL == "" {
		b.CoverImageURL = wire.ImageURL
	}
	if b.Rating == 0 {
		b.Rating = wire.AverageRating
	}
	if wire.Price.Valid {
		b.Price = wire.Price.Decimal
	}
	return nil
}

// IssuedBook is a copy currently (or previously) checked out to the user.
// The backend is inconsistent about field names between endpoints; both
// spellings are accepted.
type IssuedBook struct {
	ID            int64           `json:"id"`
	BookID        int64           `json:"book_id"`
	Title         string          `json:"title"`
	Author        string          `json:"author"`
	Genre         string          `json:"genre,omitempty"`
	CoverImageURL string          `json:"cover_image_url,omitempty"`
	IssueDate     Date            `json:"issue_date"`
	DueDate       Date            `json:"due_date"`
	ReturnedDate  Date            `json:"returned_date"`
	RenewalCount  int             `json:"renewal_count"`
	CurrentFine   decimal.Decimal `json:"current_fine"`
	Status        string          `json:"status,omitempty"`
	DaysOverdue   int             `json:"days_overdue,omitempty"`
}

func (i *IssuedBook) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID            int64               `json:"id"`
		BookID        int64               `json:"book_id"`
		Title         string              `json:"title"`
		BookTitle     string              `json:"book_title"`
		Author        string              `json:"author"`
		BookAuthor    string              `json:"book_author"`
		Genre         string              `json:"genre"`
		CoverImageURL string              `json:"cover_image_url"`
		ImageURL      string              `json:"image_url"`
		IssueDate     Date                `json:"issue_date"`
		BorrowedDate  Date                `json:"borrowed_date"`
		DueDate       Date                `json:"due_date"`
		ReturnedDate  Date                `json:"returned_date"`
		RenewalCount  int                 `json:"renewal_count"`
		CurrentFine   decimal.NullDecimal `json:"current_fine"`
		FineAmount    decimal.NullDecimal `json:"fine_amount"`
		Status        string              `json:"status"`
		DaysOverdue   int                 `json:"days_overdue"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*i = IssuedBook{
		ID:            wire.ID,
		BookID:        wire.BookID,
		Title:         firstNonEmpty(wire.Title, wire.BookTitle),
		Author:        firstNonEmpty(wire.Author, wire.BookAuthor),
		Genre:         wire.Genre,
		CoverImageURL: firstNonEmpty(wire.CoverImageURL, wire.ImageURL),
		IssueDate:     wire.IssueDate,
		DueDate:       wire.DueDate,
		ReturnedDate:  wire.ReturnedDate,
		RenewalCount:  wire.RenewalCount,
		Status:        wire.Status,
		DaysOverdue:   wire.DaysOverdue,
	}
	if i.IssueDate.IsZero() {
		i.IssueDate = wire.BorrowedDate
	}
	switch {
	case wire.CurrentFine.Valid:
		i.CurrentFine = wire.CurrentFine.Decimal
	case wire.FineAmount.Valid:
		i.CurrentFine = wire.FineAmount.Decimal
	}
	return nil
}

// Urgency classifies the due date against now.
func (i IssuedBook) Urgency(now time.Time) helpers.Urgency {
	return helpers.UrgencyLevel(i.DueDate.Time, now)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// FineSummary is the /api/users/fines payload.
type FineSummary struct {
	Fines       []IssuedBook    `json:"fines"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
}

type LibraryStats struct {
	BooksIssued     int             `json:"books_issued"`
	BooksOverdue    int             `json:"books_overdue"`
	TotalFine       decimal.Decimal `json:"total_fine"`
	MaxBooksAllowed int             `json:"max_books_allowed"`
}

type NotificationPreferences struct {
	EmailReminders          bool   `json:"email_reminders"`
	TelegramReminders       bool   `json:"telegram_reminders"`
	ReminderDays            []int  `json:"reminder_days"`
	RecommendationFrequency string `json:"recommendation_frequency"`
}

// DefaultNotificationPreferences mirrors the backend defaults.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		EmailReminders:          true,
		ReminderDays:            []int{3, 1},
		RecommendationFrequency: "weekly",
	}
}

type UserProfile struct {
	ID             int64                   `json:"id"`
	Username       string                  `json:"username"`
	Email          string                  `json:"email"`
	FirstName      string                  `json:"first_name"`
	LastName       string                  `json:"last_name"`
	TelegramChatID string                  `json:"telegram_chat_id,omitempty"`
	LibraryStats   LibraryStats            `json:"library_stats"`
	Preferences    NotificationPreferences `json:"preferences"`
	CreatedAt      Date                    `json:"created_at"`
}

// DisplayName prefers the full name and falls back to the username.
func (p UserProfile) DisplayName() string {
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		return name
	}
	if p.Username != "" {
		return p.Username
	}
	return p.Email
}

// ProfileUpdate carries only the fields to change.
type ProfileUpdate struct {
	FirstName      *string                  `json:"first_name,omitempty"`
	LastName       *string                  `json:"last_name,omitempty"`
	TelegramChatID *string                  `json:"telegram_chat_id,omitempty"`
	Preferences    *NotificationPreferences `json:"preferences,omitempty"`
}

type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
	NotificationWarning NotificationKind = "warning"
	NotificationInfo    NotificationKind = "info"
)

// Icon returns the glyph shown next to a notification.
func (k NotificationKind) Icon() string {
	switch k {
	case NotificationSuccess:
		return "✅"
	case NotificationWarning:
		return "⚠️"
	case NotificationError:
		return "❌"
	default:
		return "ℹ️"
	}
}

type Notification struct {
	ID        int64            `json:"id"`
	Type      NotificationKind `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	CreatedAt Date             `json:"created_at"`
	IsRead    bool             `json:"is_read"`
}

type Reservation struct {
	ID              int64  `json:"id"`
	BookID          int64  `json:"book_id"`
	BookTitle       string `json:"book_title"`
	ReservationDate Date   `json:"reservation_date"`
	ExpiryDate      Date   `json:"expiry_date"`
	Status          string `json:"status"`
	PositionInQueue int    `json:"position_in_queue"`
}

type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// Statistics is the reading summary from /api/users/statistics.
type Statistics struct {
	TotalBorrowed     int             `json:"total_borrowed"`
	CurrentlyBorrowed int             `json:"currently_borrowed"`
	TotalFines        decimal.Decimal `json:"total_fines"`
	FavoriteGenres    []GenreCount    `json:"favorite_genres"`
	ReadingStreak     int             `json:"reading_streak"`
}

// ActionResult is the backend's generic {success, message, data} reply.
type ActionResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type SearchRequest struct {
	Query            string `json:"query"`
	Limit            int    `json:"limit"`
	Genre            string `json:"genre,omitempty"`
	Author           string `json:"author,omitempty"`
	AvailabilityOnly bool   `json:"availability_only"`
}

type SearchResult struct {
	Books        []Book  `json:"books"`
	TotalCount   int     `json:"total_count"`
	SearchTimeMS float64 `json:"search_time_ms"`
}

type Registration struct {
	Username  string `json:"username,omitempty"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// LibraryPolicy holds the circulation rules shown to users.
type LibraryPolicy struct {
	MaxBooks      int             `json:"max_books"`
	MaxBorrowDays int             `json:"max_borrow_days"`
	FinePerDay    decimal.Decimal `json:"fine_per_day"`
	MaxRenewals   int             `json:"max_renewals"`
}

// DefaultPolicy is used when the backend has not sent its own.
func DefaultPolicy() LibraryPolicy {
	return LibraryPolicy{
		MaxBooks:      5,
		MaxBorrowDays: helpers.MaxBorrowDays,
		FinePerDay:    DefaultFinePerDay,
		MaxRenewals:   helpers.MaxRenewals,
	}
}
