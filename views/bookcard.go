package views

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"libripal/helpers"
	"libripal/library"
)

type Variant int

const (
	VariantDefault Variant = iota
	VariantBorrowed
	VariantSearch
)

type Action string

const (
	ActionBorrow  Action = "borrow"
	ActionReserve Action = "reserve"
	ActionRenew   Action = "renew"
	ActionDetails Action = "details"
)

// Actions are the callbacks a card may offer. A nil callback hides the
// action.
type Actions struct {
	OnBorrow      func(ctx context.Context, bookID int64) error
	OnReserve     func(ctx context.Context, bookID int64) error
	OnRenew       func(ctx context.Context, borrowedID int64) error
	OnViewDetails func(ctx context.Context, bookID int64) error
}

// BookCard renders one book in one of three variants and runs its actions.
type BookCard struct {
	Book        library.Book
	Issued      *library.IssuedBook
	Variant     Variant
	Actions     Actions
	HideActions bool
	Currency    string
	// Highlight marks occurrences of a search term in the title.
	Highlight string
}

// NewBorrowedCard builds the borrowed variant for a checked-out copy.
func NewBorrowedCard(i library.IssuedBook, actions Actions) BookCard {
	return BookCard{
		Book: library.Book{
			ID:            i.BookID,
			Title:         i.Title,
			Author:        i.Author,
			Genre:         i.Genre,
			CoverImageURL: i.CoverImageURL,
		},
		Issued:  &i,
		Variant: VariantBorrowed,
		Actions: actions,
	}
}

// Offered lists the actions the card shows at now, in display order.
func (c BookCard) Offered(now time.Time) []Action {
	if c.HideActions {
		return nil
	}
	var out []Action
	if c.Variant == VariantBorrowed {
		if c.Issued != nil && c.Actions.OnRenew != nil && library.CanRenew(*c.Issued, now) {
			out = append(out, ActionRenew)
		}
	} else if library.CanBorrow(c.Book) {
		if c.Actions.OnBorrow != nil {
			out = append(out, ActionBorrow)
		}
	} else if c.Actions.OnReserve != nil {
		out = append(out, ActionReserve)
	}
	if c.Actions.OnViewDetails != nil {
		out = append(out, ActionDetails)
	}
	return out
}

func (c BookCard) ActionLabel(a Action) string {
	switch a {
	case ActionBorrow:
		if c.Variant == VariantSearch {
			return "📖 Borrow"
		}
		return "Borrow"
	case ActionReserve:
		if c.Variant == VariantSearch {
			return "⏳ Reserve"
		}
		return "Reserve"
	case ActionRenew:
		return "Renew"
	case ActionDetails:
		return "Details"
	default:
		return string(a)
	}
}

func pendingLabel(a Action) string {
	switch a {
	case ActionRenew:
		return "Renewing..."
	case ActionDetails:
		return "Loading..."
	default:
		return "Processing..."
	}
}

// Run invokes the callback behind a while a spinner is shown on w. Callback
// errors are logged and swallowed; the result reports success so the caller
// can refresh.
func (c BookCard) Run(ctx context.Context, a Action, w io.Writer, logger *slog.Logger, now time.Time) bool {
	if !c.offers(a, now) {
		return false
	}

	var (
		fn func(context.Context, int64) error
		id = c.Book.ID
	)
	switch a {
	case ActionBorrow:
		fn = c.Actions.OnBorrow
	case ActionReserve:
		fn = c.Actions.OnReserve
	case ActionRenew:
		fn, id = c.Actions.OnRenew, c.Issued.ID
	case ActionDetails:
		fn = c.Actions.OnViewDetails
	}

	err := WithSpinner(w, pendingLabel(a), func() error { return fn(ctx, id) })
	if err != nil {
		logger.Error("book card action failed", "action", a, "id", id, "err", err)
		return false
	}
	return true
}

func (c BookCard) offers(a Action, now time.Time) bool {
	for _, o := range c.Offered(now) {
		if o == a {
			return true
		}
	}
	return false
}

// Render draws the card body without the action row.
func (c BookCard) Render(now time.Time) string {
	var b strings.Builder
	title := headingStyle.Render(c.Book.Title)
	if c.Variant == VariantSearch && c.Highlight != "" {
		title = helpers.HighlightSearchTerm(c.Book.Title, c.Highlight, func(s string) string {
			return highlightStyle.Render(s)
		})
	}
	b.WriteString(title + "\n")
	if c.Book.Author != "" {
		b.WriteString("by " + c.Book.Author + "\n")
	}

	switch c.Variant {
	case VariantBorrowed:
		c.renderBorrowed(&b, now)
	case VariantSearch:
		if c.Book.AISummary != "" {
			b.WriteString(helpers.TruncateText(c.Book.AISummary, 120) + "\n")
		}
		c.renderMeta(&b)
		if library.CanBorrow(c.Book) {
			b.WriteString(successStyle.Render(fmt.Sprintf("%d available", c.Book.AvailableCopies)))
		} else {
			b.WriteString(errorStyle.Render("Not available"))
		}
	default:
		if c.Book.AISummary != "" {
			b.WriteString(helpers.TruncateText(c.Book.AISummary, 240) + "\n")
		}
		c.renderMeta(&b)
		if library.CanBorrow(c.Book) {
			b.WriteString(successStyle.Render(fmt.Sprintf("%d/%d available", c.Book.AvailableCopies, c.Book.TotalCopies)))
		} else {
			b.WriteString(errorStyle.Render("Not available"))
		}
		if c.Book.Rating > 0 {
			b.WriteString(fmt.Sprintf("  ★ %.1f", c.Book.Rating))
		}
	}
	return cardStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (c BookCard) renderMeta(b *strings.Builder) {
	var meta []string
	if c.Book.Genre != "" {
		meta = append(meta, c.Book.Genre)
	}
	if c.Book.PublicationYear > 0 {
		meta = append(meta, fmt.Sprint(c.Book.PublicationYear))
	}
	if len(meta) > 0 {
		b.WriteString(mutedStyle.Render(strings.Join(meta, " · ")) + "\n")
	}
}

func (c BookCard) renderBorrowed(b *strings.Builder, now time.Time) {
	if c.Issued == nil {
		return
	}
	i := *c.Issued
	u := i.Urgency(now)
	fmt.Fprintf(b, "Due: %s (%s)\n", helpers.FormatDate(i.DueDate.Time, helpers.DateDisplay), helpers.DueText(i.DueDate.Time, now))

	status := urgencyStyle(u).Render(helpers.UrgencyLabel(u))
	if i.RenewalCount > 0 {
		status += mutedStyle.Render(fmt.Sprintf("  Renewed: %d/%d", i.RenewalCount, helpers.MaxRenewals))
	}
	b.WriteString(status + "\n")

	if fine := library.OutstandingFine(i, now); fine.IsPositive() {
		b.WriteString(warnStyle.Render("Fine: "+helpers.FormatCurrency(fine, c.Currency)) + "\n")
	}
	if c.Actions.OnRenew != nil && !c.HideActions {
		if reason := library.RenewBlockReason(i, now); reason != "" {
			b.WriteString(mutedStyle.Render(reason) + "\n")
		}
	}
}
