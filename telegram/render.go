package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"libripal/chat"
	"libripal/helpers"
)

const noFines = "🎉 You have no outstanding fines. Keep up the great reading!"

// HTMLRenderer formats assistant replies as Telegram HTML.
type HTMLRenderer struct {
	Now      func() time.Time
	Currency string
}

var _ chat.Renderer = HTMLRenderer{}

func (hr HTMLRenderer) now() time.Time {
	if hr.Now == nil {
		return time.Now()
	}
	return hr.Now()
}

func esc(s string) string { return html.EscapeString(s) }

func (hr HTMLRenderer) Text(r chat.Response) string { return esc(r.Message) }

func (hr HTMLRenderer) Books(r chat.Response, p chat.BookList) string {
	var b strings.Builder
	b.WriteString(esc(r.Message))
	for i, book := range p.Books {
		fmt.Fprintf(&b, "\n\n%d. <b>%s</b>", i+1, esc(book.Title))
		if book.Author != "" {
			fmt.Fprintf(&b, " by %s", esc(book.Author))
		}
		fmt.Fprintf(&b, " <code>#%d</code>", book.ID)
		if book.AvailableCopies > 0 {
			fmt.Fprintf(&b, "\n✅ Available: %d/%d", book.AvailableCopies, book.TotalCopies)
		} else {
			b.WriteString("\n❌ Not available")
		}
		if book.AISummary != "" {
			b.WriteString("\n<i>" + esc(helpers.TruncateText(book.AISummary, 150)) + "</i>")
		}
	}
	return b.String()
}

func (hr HTMLRenderer) Issued(r chat.Response, p chat.IssuedList) string {
	now := hr.now()
	var b strings.Builder
	b.WriteString(esc(r.Message))
	for _, book := range p.Books {
		u := book.Urgency(now)
		fmt.Fprintf(&b, "\n• <b>%s</b> <code>#%d</code>\n  Due %s · %s",
			esc(book.Title), book.ID,
			helpers.FormatDate(book.DueDate.Time, helpers.DateShort),
			helpers.UrgencyLabel(u))
	}
	return b.String()
}

func (hr HTMLRenderer) Fines(r chat.Response, p chat.FineList) string {
	if p.Empty() {
		return noFines
	}
	var b strings.Builder
	b.WriteString(esc(r.Message))
	for _, f := range p.Fines {
		fmt.Fprintf(&b, "\n• %s: <b>%s</b>", esc(f.Title), helpers.FormatCurrency(f.CurrentFine, hr.Currency))
		if f.DaysOverdue > 0 {
			fmt.Fprintf(&b, " (%s overdue)", helpers.Plural(f.DaysOverdue, "day"))
		}
	}
	return b.String()
}

func (hr HTMLRenderer) LibraryInfo(r chat.Response, p chat.LibraryInfo) string {
	var b strings.Builder
	b.WriteString(esc(r.Message))
	if len(p.Hours) > 0 {
		b.WriteString("\n\n<b>Library Hours</b>")
		for _, h := range p.Hours {
			fmt.Fprintf(&b, "\n%s: %s", esc(helpers.CapitalizeFirst(h.Day)), esc(h.Hours))
		}
	}
	if pol := p.Policy; pol != nil {
		b.WriteString("\n\n<b>Borrowing Rules</b>")
		fmt.Fprintf(&b, "\nMax books: %d\nLoan period: %s\nRenewals: %d\nOverdue fine: %s/day",
			pol.MaxBooks, helpers.Plural(pol.MaxBorrowDays, "day"), pol.MaxRenewals,
			helpers.FormatCurrency(pol.FinePerDay, hr.Currency))
	}
	return b.String()
}

func (hr HTMLRenderer) Reservations(r chat.Response, p chat.ReservationList) string {
	var b strings.Builder
	b.WriteString(esc(r.Message))
	for _, res := range p.Reservations {
		fmt.Fprintf(&b, "\n• <b>%s</b> #%d in queue", esc(res.BookTitle), res.PositionInQueue)
		if res.Status != "" {
			fmt.Fprintf(&b, " (%s)", esc(res.Status))
		}
	}
	return b.String()
}

// suggestionList appends the assistant's follow-up prompts as plain text.
func suggestionList(s []string) string {
	if len(s) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n<i>You could ask:</i>")
	for _, item := range s {
		b.WriteString("\n• " + esc(item))
	}
	return b.String()
}
