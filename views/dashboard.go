package views

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"libripal/helpers"
	"libripal/library"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const dashboardRecommendations = 4

// DashboardData is everything the dashboard shows, fetched together.
type DashboardData struct {
	Profile         *library.UserProfile
	Borrowed        []library.IssuedBook
	Fines           *library.FineSummary
	Recommendations []library.Book
}

// LoadDashboard fetches the four dashboard sources in parallel. Any failure
// cancels the rest.
func LoadDashboard(ctx context.Context, lm *library.LibraryManager) (*DashboardData, error) {
	var d DashboardData
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Profile, err = lm.Profile(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Borrowed, err = lm.BorrowedBooks(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Fines, err = lm.Fines(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Recommendations, err = lm.Recommendations(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}

// RenderDashboard draws the dashboard. Due-soon books are numbered for the
// renew command.
func RenderDashboard(d *DashboardData, now time.Time, currency string) string {
	var b strings.Builder
	due := library.UpcomingDues(d.Borrowed, now)
	total := decimal.Zero
	if d.Fines != nil {
		total = d.Fines.TotalAmount
	}

	b.WriteString(titleStyle.Render("📚 LibriPal Dashboard") + "\n")
	if d.Profile != nil {
		b.WriteString("Welcome back, " + d.Profile.DisplayName() + "!\n")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%-20s %-12s %-22s %s\n", "Books Borrowed", "Due Soon", "Outstanding Fines", "Recommendations")
	b.WriteString(rule(72) + "\n")
	fmt.Fprintf(&b, "%-20d %-12d %-22s %d\n\n", len(d.Borrowed), len(due),
		helpers.FormatCurrency(total, currency), len(d.Recommendations))

	if d.Profile != nil && library.IssuanceBlocked(d.Profile.LibraryStats) {
		b.WriteString(warnStyle.Render("New checkouts are blocked until outstanding fines are paid.") + "\n\n")
	}

	if len(due) > 0 {
		b.WriteString(headingStyle.Render("⚠️ Books Due Soon") + "\n")
		for i, book := range due {
			card := NewBorrowedCard(book, Actions{})
			card.Currency = currency
			fmt.Fprintf(&b, "[%d]\n%s\n", i+1, card.Render(now))
		}
		b.WriteString("\n")
	}

	b.WriteString(headingStyle.Render("📖 Currently Borrowed") + "\n")
	if len(d.Borrowed) == 0 {
		b.WriteString("No books currently borrowed. Search for books to get started!\n")
	} else {
		fmt.Fprintf(&b, "%-6s %-30s %-20s %-14s %s\n", "ID", "Title", "Author", "Due", "Renewals")
		b.WriteString(rule(80) + "\n")
		byDue := helpers.SortBy(d.Borrowed, func(i library.IssuedBook) int64 { return i.DueDate.Unix() }, false)
		for _, book := range byDue {
			fmt.Fprintf(&b, "%-6d %-30s %-20s %-14s %d/%d\n", book.ID,
				helpers.Fit(book.Title, 30), helpers.Fit(book.Author, 20),
				helpers.FormatDate(book.DueDate.Time, helpers.DateShort),
				book.RenewalCount, helpers.MaxRenewals)
		}
	}

	if len(d.Recommendations) > 0 {
		b.WriteString("\n" + headingStyle.Render("💡 Recommended for You") + "\n")
		for _, book := range d.Recommendations[:min(dashboardRecommendations, len(d.Recommendations))] {
			fmt.Fprintf(&b, "• %s by %s", book.Title, book.Author)
			if book.AISummary != "" {
				b.WriteString("\n  " + mutedStyle.Render(helpers.TruncateText(book.AISummary, 100)))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Dashboard shows the overview and handles its quick actions.
func Dashboard(ctx context.Context, env *Env) (Route, error) {
	for {
		var d *DashboardData
		err := WithSpinner(env.Term.Out(), "Loading your library dashboard...", func() (err error) {
			d, err = LoadDashboard(ctx, env.Manager)
			return err
		})
		if err != nil {
			env.Term.Error(helpers.ErrorMessage(err))
			return RouteHome, nil
		}

		now := env.now()
		env.Term.Clear()
		env.Term.Println(RenderDashboard(d, now, env.Currency))
		env.Term.Println(mutedStyle.Render("Quick actions: r <n> renew due book n | s search | c chat | p profile | Enter back"))

		reload := false
		for !reload {
			input, err := env.Term.Prompt("> ")
			if err != nil {
				return RouteHome, nil
			}
			fields := strings.Fields(strings.ToLower(input))
			if len(fields) == 0 {
				return RouteHome, nil
			}
			switch fields[0] {
			case "s", "search":
				return RouteSearch, nil
			case "c", "chat":
				return RouteChat, nil
			case "p", "profile":
				return RouteProfile, nil
			case "r", "renew":
				due := library.UpcomingDues(d.Borrowed, now)
				n, ok := pick(fields, len(due))
				if !ok {
					env.Term.Error("Usage: r <number of a book due soon>")
					continue
				}
				reload = env.runCard(ctx, NewBorrowedCard(due[n], Actions{}), ActionRenew)
			default:
				env.Term.Println("Invalid command.")
			}
		}
	}
}

// pick parses the 1-based index in fields[1] against a list of n items.
func pick(fields []string, n int) (int, bool) {
	if len(fields) != 2 {
		return 0, false
	}
	i, err := strconv.Atoi(fields[1])
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	return i - 1, true
}
