package views

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"libripal/chat"
	"libripal/helpers"
	"libripal/library"
)

// Route names a shell screen.
type Route string

const (
	RouteHome      Route = ""
	RouteDashboard Route = "dashboard"
	RouteSearch    Route = "search"
	RouteChat      Route = "chat"
	RouteProfile   Route = "profile"
	RouteLogout    Route = "logout"
	RouteQuit      Route = "quit"
)

// SessionName is the store slot of the shell's session.
const SessionName = "cli"

// Env carries what the shell screens share.
type Env struct {
	Term     *Terminal
	Manager  *library.LibraryManager
	Chat     *chat.Service
	Store    *library.Store
	Logger   *slog.Logger
	Currency string
	Now      func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Preferences are the viewer settings kept in the local store.
type Preferences struct {
	Filter   library.BookFilter `json:"filter"`
	PageSize int                `json:"page_size"`
}

func (e *Env) preferences() Preferences {
	p := Preferences{PageSize: defaultPageSize}
	if e.Store == nil {
		return p
	}
	if _, err := e.Store.GetFromStorage(helpers.KeyUserPreferences, &p); err != nil {
		e.logger().Warn("load preferences", "err", err)
	}
	return p
}

func (e *Env) savePreferences(p Preferences) {
	if e.Store == nil {
		return
	}
	if err := e.Store.SaveToStorage(helpers.KeyUserPreferences, p); err != nil {
		e.logger().Warn("save preferences", "err", err)
	}
}

// outcome collects what a card callback produced for the screen to show
// once the spinner has stopped.
type outcome struct {
	message string
	book    *library.Book
	err     error
}

func (o *outcome) reset() { *o = outcome{} }

// cardActions binds BookCard callbacks to the manager.
func (e *Env) cardActions(out *outcome) Actions {
	wrap := func(f func(context.Context, int64) (*library.ActionResult, error)) func(context.Context, int64) error {
		return func(ctx context.Context, id int64) error {
			res, err := f(ctx, id)
			if err != nil {
				out.err = err
				return err
			}
			out.message = res.Message
			return nil
		}
	}
	return Actions{
		OnBorrow:  wrap(e.Manager.BorrowBook),
		OnReserve: wrap(e.Manager.ReserveBook),
		OnRenew:   wrap(e.Manager.RenewBook),
		OnViewDetails: func(ctx context.Context, id int64) error {
			b, err := e.Manager.GetBook(ctx, id)
			if err != nil {
				out.err = err
				return err
			}
			out.book = b
			return nil
		},
	}
}

// runCard runs a on card and prints the outcome. It reports whether the
// action succeeded.
func (e *Env) runCard(ctx context.Context, card BookCard, a Action) bool {
	var out outcome
	card.Actions = e.cardActions(&out)
	card.Currency = e.Currency
	now := e.now()
	if !card.offers(a, now) {
		if card.Issued != nil && a == ActionRenew {
			e.Term.Error(library.RenewBlockReason(*card.Issued, now))
		} else {
			e.Term.Error("That action is not available for this book")
		}
		return false
	}
	if !card.Run(ctx, a, e.Term.Out(), e.logger(), now) {
		if out.err != nil {
			e.Term.Error(helpers.ErrorMessage(out.err))
		}
		return false
	}
	if out.book != nil {
		e.Term.Println(BookCard{Book: *out.book, HideActions: true}.Render(now))
		if a == ActionDetails {
			e.printBookExtras(*out.book)
		}
	}
	if out.message != "" {
		e.Term.Println(successStyle.Render("✓ " + out.message))
	}
	return true
}

func (e *Env) printBookExtras(b library.Book) {
	e.Term.Println(mutedStyle.Render(fmt.Sprintf("Ref: #%d %s", b.ID, helpers.GenerateBookSlug(b.Title, b.Author))))
	if kw := helpers.ExtractBookKeywords(b.Title, b.Author, b.Description); len(kw) > 0 {
		e.Term.Println(mutedStyle.Render("Keywords: " + strings.Join(kw, ", ")))
	}
	cover := b.CoverImageURL
	if cover == "" {
		cover = helpers.BookCoverPlaceholder(b.Title)
	}
	e.Term.Println(mutedStyle.Render("Cover: " + cover))
}
