package library

import (
	"time"

	"libripal/helpers"

	"github.com/shopspring/decimal"
)

// DefaultFinePerDay is the backend's default overdue rate.
var DefaultFinePerDay = decimal.NewFromInt(1)

// The checks below drive which actions the views offer. They are advisory:
// the backend remains the authority and hooks never enforce them.

// CanBorrow reports whether a copy is on the shelf. When false the views
// offer Reserve instead.
func CanBorrow(b Book) bool { return b.AvailableCopies > 0 }

// CanRenew allows a renewal while fewer than MaxRenewals have been used and
// the book is not overdue.
func CanRenew(i IssuedBook, now time.Time) bool {
	return RenewBlockReason(i, now) == ""
}

// RenewBlockReason explains why CanRenew is false, or returns "".
func RenewBlockReason(i IssuedBook, now time.Time) string {
	switch {
	case i.RenewalCount >= helpers.MaxRenewals:
		return "Max renewals reached"
	case i.Urgency(now) == helpers.UrgencyOverdue:
		return "Cannot renew overdue book"
	default:
		return ""
	}
}

// FineFor computes perDay × days overdue for a book due on due and returned
// (or still out) at returned. Books returned on time owe nothing.
func FineFor(due, returned time.Time, perDay decimal.Decimal) decimal.Decimal {
	days := -helpers.DaysUntilDue(due, returned)
	if days <= 0 {
		return decimal.Zero
	}
	return perDay.Mul(decimal.NewFromInt(int64(days)))
}

// OutstandingFine returns the reported fine, or the accrued one when the
// backend sent none for an overdue book.
func OutstandingFine(i IssuedBook, now time.Time) decimal.Decimal {
	if i.CurrentFine.IsPositive() {
		return i.CurrentFine
	}
	if !i.ReturnedDate.IsZero() {
		return decimal.Zero
	}
	return FineFor(i.DueDate.Time, now, DefaultFinePerDay)
}

// IssuanceBlocked reports whether unpaid fines prevent new checkouts.
func IssuanceBlocked(stats LibraryStats) bool { return stats.TotalFine.IsPositive() }

// UpcomingDues keeps the books that are due soon or already overdue.
func UpcomingDues(books []IssuedBook, now time.Time) []IssuedBook {
	var out []IssuedBook
	for _, b := range books {
		if u := b.Urgency(now); u == helpers.UrgencyDueSoon || u == helpers.UrgencyOverdue {
			out = append(out, b)
		}
	}
	return out
}

// BookFilter narrows search results on the client.
type BookFilter struct {
	Genre         string
	Author        string
	AvailableOnly bool
}

// Apply keeps books whose genre and author contain the filter text
// (case-insensitive) and, if requested, that have a copy available.
func (f BookFilter) Apply(books []Book) []Book {
	out := books
	if f.Genre != "" {
		out = helpers.FuzzySearch(out, f.Genre, func(b Book) string { return b.Genre })
	}
	if f.Author != "" {
		out = helpers.FuzzySearch(out, f.Author, func(b Book) string { return b.Author })
	}
	if f.AvailableOnly {
		var avail []Book
		for _, b := range out {
			if CanBorrow(b) {
				avail = append(avail, b)
			}
		}
		out = avail
	}
	return out
}

func (f BookFilter) Active() bool { return f.Genre != "" || f.Author != "" || f.AvailableOnly }
