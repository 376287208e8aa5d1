package views

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"libripal/helpers"
	"libripal/library"

	"golang.org/x/sync/errgroup"
)

// ProfileData backs the UserProfile screen.
type ProfileData struct {
	Profile       *library.UserProfile
	Borrowed      []library.IssuedBook
	Notifications []library.Notification
	Reservations  []library.Reservation
}

func LoadProfile(ctx context.Context, lm *library.LibraryManager) (*ProfileData, error) {
	var d ProfileData
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
		d.Notifications, err = lm.Notifications(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Reservations, err = lm.Reservations(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}

// RenderProfile draws the profile, stats, loans, notifications and rules.
func RenderProfile(d *ProfileData, env *Env) string {
	now := env.now()
	p := d.Profile
	var b strings.Builder

	b.WriteString(titleStyle.Render("👤 "+p.DisplayName()) + "\n")
	fmt.Fprintf(&b, "Username: %s\nEmail: %s\n", p.Username, p.Email)
	if !p.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Member since: %s\n", helpers.FormatDate(p.CreatedAt.Time, helpers.DateDisplay))
	}

	st := p.LibraryStats
	b.WriteString("\n" + headingStyle.Render("Library Stats") + "\n")
	fmt.Fprintf(&b, "Books issued: %d/%d  Overdue: %d  Fines: %s\n",
		st.BooksIssued, st.MaxBooksAllowed, st.BooksOverdue, helpers.FormatCurrency(st.TotalFine, env.Currency))
	if library.IssuanceBlocked(st) {
		b.WriteString(warnStyle.Render("New checkouts are blocked until outstanding fines are paid.") + "\n")
	}

	b.WriteString("\n" + headingStyle.Render("Borrowed Books") + "\n")
	if len(d.Borrowed) == 0 {
		b.WriteString("No books currently borrowed.\n")
	}
	for i, book := range d.Borrowed {
		card := NewBorrowedCard(book, Actions{OnRenew: noopAction})
		card.Currency = env.Currency
		fmt.Fprintf(&b, "[%d]\n%s\n", i+1, card.Render(now))
	}

	if len(d.Reservations) > 0 {
		b.WriteString("\n" + headingStyle.Render("Reservations") + "\n")
		for _, r := range d.Reservations {
			fmt.Fprintf(&b, "• %s  #%d in queue (%s)\n", r.BookTitle, r.PositionInQueue, r.Status)
		}
	}

	b.WriteString("\n" + headingStyle.Render("Notifications") + "\n")
	if len(d.Notifications) == 0 {
		b.WriteString("No notifications.\n")
	}
	for i, n := range d.Notifications {
		line := fmt.Sprintf("[%d] %s %s: %s", i+1, n.Type.Icon(), n.Title, n.Message)
		if n.IsRead {
			line = mutedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	pref := p.Preferences
	b.WriteString("\n" + headingStyle.Render("Notification Preferences") + "\n")
	fmt.Fprintf(&b, "Email reminders: %s  Telegram reminders: %s\n", onOff(pref.EmailReminders), onOff(pref.TelegramReminders))
	fmt.Fprintf(&b, "Remind me %s days before due  Recommendations: %s\n", joinInts(pref.ReminderDays), pref.RecommendationFrequency)

	pol := library.DefaultPolicy()
	b.WriteString("\n" + headingStyle.Render("Library Rules") + "\n")
	fmt.Fprintf(&b, "• Borrow up to %d books for %d days\n", pol.MaxBooks, pol.MaxBorrowDays)
	fmt.Fprintf(&b, "• Renew each book up to %d times unless it is overdue\n", pol.MaxRenewals)
	fmt.Fprintf(&b, "• Overdue books cost %s per day\n", helpers.FormatCurrency(pol.FinePerDay, env.Currency))
	return b.String()
}

// noopAction lets Render show renewal hints; the screen runs real actions
// through Env.runCard.
func noopAction(context.Context, int64) error { return nil }

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func joinInts(xs []int) string {
	s := make([]string, len(xs))
	for i, x := range xs {
		s[i] = strconv.Itoa(x)
	}
	return strings.Join(s, ",")
}

// Profile runs the UserProfile screen.
func Profile(ctx context.Context, env *Env) (Route, error) {
	for {
		var d *ProfileData
		err := WithSpinner(env.Term.Out(), "Loading profile...", func() (err error) {
			d, err = LoadProfile(ctx, env.Manager)
			return err
		})
		if err != nil {
			env.Term.Error(helpers.ErrorMessage(err))
			return RouteHome, nil
		}

		env.Term.Clear()
		env.Term.Println(RenderProfile(d, env))
		env.Term.Println(mutedStyle.Render("r <n> renew | t <n> return | m <n> mark read | e edit preferences | u edit name | h history | Enter back"))

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
			case "r", "renew":
				n, ok := pick(fields, len(d.Borrowed))
				if !ok {
					env.Term.Error("Usage: r <number of a borrowed book>")
					continue
				}
				reload = env.runCard(ctx, NewBorrowedCard(d.Borrowed[n], Actions{}), ActionRenew)
			case "t", "return":
				n, ok := pick(fields, len(d.Borrowed))
				if !ok {
					env.Term.Error("Usage: t <number of a borrowed book>")
					continue
				}
				reload = returnBook(ctx, env, d.Borrowed[n])
			case "m", "read":
				n, ok := pick(fields, len(d.Notifications))
				if !ok {
					env.Term.Error("Usage: m <number of a notification>")
					continue
				}
				if err := env.Manager.MarkNotificationRead(ctx, d.Notifications[n].ID); err != nil {
					env.Term.Error(helpers.ErrorMessage(err))
					continue
				}
				reload = true
			case "e", "edit":
				reload = editPreferences(ctx, env, d.Profile.Preferences)
			case "u", "name":
				reload = editName(ctx, env, d.Profile)
			case "h", "history":
				if err := showHistory(ctx, env); err != nil {
					return RouteHome, err
				}
			default:
				env.Term.Println("Invalid command.")
			}
		}
	}
}

func returnBook(ctx context.Context, env *Env, book library.IssuedBook) bool {
	if !env.Term.Confirm(fmt.Sprintf("Return %q?", book.Title)) {
		return false
	}
	var res *library.ActionResult
	err := WithSpinner(env.Term.Out(), "Returning...", func() (err error) {
		res, err = env.Manager.ReturnBook(ctx, book.BookID)
		return err
	})
	if err != nil {
		env.Term.Error(helpers.ErrorMessage(err))
		return false
	}
	env.Term.Println(successStyle.Render("✓ " + res.Message))
	return true
}

// editPreferences starts from the stored preferences and falls back to the
// copy embedded in the profile when they cannot be read.
func editPreferences(ctx context.Context, env *Env, cur library.NotificationPreferences) bool {
	if p, err := env.Manager.NotificationPreferences(ctx); err != nil {
		env.logger().Warn("load notification preferences", "err", err)
	} else {
		cur = *p
	}
	next := cur
	next.EmailReminders = env.Term.Confirm("Email reminders?")
	next.TelegramReminders = env.Term.Confirm("Telegram reminders?")

	days, err := env.Term.Prompt(fmt.Sprintf("Reminder days before due, comma separated [%s]: ", joinInts(cur.ReminderDays)))
	if err != nil {
		return false
	}
	if days != "" {
		next.ReminderDays = nil
		for _, f := range strings.Split(days, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				env.Term.Error("Reminder days must be numbers")
				return false
			}
			next.ReminderDays = append(next.ReminderDays, n)
		}
	}
	freq, err := env.Term.Prompt(fmt.Sprintf("Recommendations (daily, weekly, monthly, never) [%s]: ", cur.RecommendationFrequency))
	if err != nil {
		return false
	}
	if freq != "" {
		next.RecommendationFrequency = strings.ToLower(freq)
	}

	res, err := env.Manager.UpdateNotificationPreferences(ctx, next)
	if err != nil {
		env.Term.Error(helpers.ErrorMessage(err))
		return false
	}
	env.Term.Println(successStyle.Render("✓ " + res.Message))
	return true
}

func editName(ctx context.Context, env *Env, p *library.UserProfile) bool {
	first, err := env.Term.Prompt(fmt.Sprintf("First name [%s]: ", p.FirstName))
	if err != nil {
		return false
	}
	last, err := env.Term.Prompt(fmt.Sprintf("Last name [%s]: ", p.LastName))
	if err != nil {
		return false
	}
	var upd library.ProfileUpdate
	if first != "" {
		upd.FirstName = &first
	}
	if last != "" {
		upd.LastName = &last
	}
	if upd.FirstName == nil && upd.LastName == nil {
		return false
	}
	res, err := env.Manager.UpdateProfile(ctx, upd)
	if err != nil {
		env.Term.Error(helpers.ErrorMessage(err))
		return false
	}
	env.Term.Println(successStyle.Render("✓ " + res.Message))
	return true
}

func showHistory(ctx context.Context, env *Env) error {
	history, err := env.Manager.ReadingHistory(ctx, 0)
	if err != nil {
		env.Term.Error(helpers.ErrorMessage(err))
		return nil
	}
	if len(history) == 0 {
		env.Term.Println("No reading history yet.")
		return nil
	}
	entries := make([]string, len(history))
	for i, h := range history {
		returned := "not returned"
		if !h.ReturnedDate.IsZero() {
			returned = "returned " + helpers.FormatDate(h.ReturnedDate.Time, helpers.DateShort)
		}
		entries[i] = fmt.Sprintf("%s by %s\n  issued %s, %s", h.Title, h.Author,
			helpers.FormatDate(h.IssueDate.Time, helpers.DateShort), returned)
	}
	return Pager{Term: env.Term, Title: "📜 Reading History", PageSize: 10}.Show(entries)
}
