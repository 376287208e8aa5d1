package views

import (
	"fmt"
	"strings"
	"time"

	"libripal/chat"
	"libripal/helpers"
)

// NoFinesMessage replaces an empty fines list.
const NoFinesMessage = "🎉 You have no outstanding fines. Keep up the great reading!"

// TerminalRenderer draws assistant replies for the terminal chat.
type TerminalRenderer struct {
	Now      func() time.Time
	Currency string
}

var _ chat.Renderer = TerminalRenderer{}

func (tr TerminalRenderer) now() time.Time {
	if tr.Now == nil {
		return time.Now()
	}
	return tr.Now()
}

func (tr TerminalRenderer) Text(r chat.Response) string { return r.Message }

func (tr TerminalRenderer) Books(r chat.Response, p chat.BookList) string {
	if len(p.Books) == 0 {
		return r.Message
	}
	var b strings.Builder
	b.WriteString(r.Message)
	for i, book := range p.Books {
		fmt.Fprintf(&b, "\n%d. %s", i+1, headingStyle.Render(book.Title))
		if book.Author != "" {
			fmt.Fprintf(&b, " by %s", book.Author)
		}
		fmt.Fprintf(&b, " %s", mutedStyle.Render(fmt.Sprintf("[#%d]", book.ID)))
		if book.AvailableCopies > 0 {
			b.WriteString("  " + successStyle.Render(fmt.Sprintf("Available: %d/%d", book.AvailableCopies, book.TotalCopies)))
		} else {
			b.WriteString("  " + errorStyle.Render("Not available"))
		}
		if book.AISummary != "" {
			b.WriteString("\n   " + mutedStyle.Render(helpers.TruncateText(book.AISummary, 100)))
		}
	}
	return b.String()
}

func (tr TerminalRenderer) Issued(r chat.Response, p chat.IssuedList) string {
	if len(p.Books) == 0 {
		return r.Message
	}
	now := tr.now()
	var b strings.Builder
	b.WriteString(r.Message)
	for _, book := range p.Books {
		u := book.Urgency(now)
		fmt.Fprintf(&b, "\n• %s %s  Due: %s  %s",
			headingStyle.Render(book.Title),
			mutedStyle.Render(fmt.Sprintf("[#%d]", book.ID)),
			helpers.FormatDate(book.DueDate.Time, helpers.DateShort),
			urgencyStyle(u).Render(helpers.UrgencyLabel(u)))
	}
	return b.String()
}

func (tr TerminalRenderer) Fines(r chat.Response, p chat.FineList) string {
	if p.Empty() {
		return successStyle.Render(NoFinesMessage)
	}
	var b strings.Builder
	b.WriteString(r.Message)
	for _, f := range p.Fines {
		fmt.Fprintf(&b, "\n• %s  %s", f.Title, warnStyle.Render(helpers.FormatCurrency(f.CurrentFine, tr.Currency)))
		if f.DaysOverdue > 0 {
			b.WriteString(mutedStyle.Render(fmt.Sprintf(" (%s overdue)", helpers.Plural(f.DaysOverdue, "day"))))
		}
	}
	return b.String()
}

func (tr TerminalRenderer) LibraryInfo(r chat.Response, p chat.LibraryInfo) string {
	var b strings.Builder
	b.WriteString(r.Message)
	if len(p.Hours) > 0 {
		b.WriteString("\n" + headingStyle.Render("Library Hours"))
		for _, h := range p.Hours {
			fmt.Fprintf(&b, "\n  %-10s %s", helpers.CapitalizeFirst(h.Day)+":", h.Hours)
		}
	}
	if pol := p.Policy; pol != nil {
		b.WriteString("\n" + headingStyle.Render("Borrowing Rules"))
		fmt.Fprintf(&b, "\n  Max books:    %d", pol.MaxBooks)
		fmt.Fprintf(&b, "\n  Loan period:  %s", helpers.Plural(pol.MaxBorrowDays, "day"))
		fmt.Fprintf(&b, "\n  Renewals:     %d", pol.MaxRenewals)
		fmt.Fprintf(&b, "\n  Overdue fine: %s/day", helpers.FormatCurrency(pol.FinePerDay, tr.Currency))
	}
	return b.String()
}

func (tr TerminalRenderer) Reservations(r chat.Response, p chat.ReservationList) string {
	if len(p.Reservations) == 0 {
		return r.Message
	}
	var b strings.Builder
	b.WriteString(r.Message)
	for _, res := range p.Reservations {
		fmt.Fprintf(&b, "\n• %s  #%d in queue", res.BookTitle, res.PositionInQueue)
		if res.Status != "" {
			b.WriteString(mutedStyle.Render(" (" + res.Status + ")"))
		}
	}
	return b.String()
}
