package telegram

import (
	"testing"
	"time"

	"libripal/chat"
	"libripal/library"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestHTMLRendererEscapes(t *testing.T) {
	hr := HTMLRenderer{Currency: "USD"}
	out := chat.Dispatch(chat.Response{
		Message: "Results for <script>",
		Payload: chat.BookList{Books: []library.Book{
			{ID: 3, Title: "A & B", Author: "<anon>", AvailableCopies: 0, TotalCopies: 1, AISummary: "x < y"},
		}},
	}, hr)
	assert.Equal(t, "Results for &lt;script&gt;\n\n1. <b>A &amp; B</b> by &lt;anon&gt; <code>#3</code>\n❌ Not available\n<i>x &lt; y</i>", out)
}

func TestHTMLRendererFines(t *testing.T) {
	hr := HTMLRenderer{Currency: "USD"}
	assert.Equal(t, noFines, hr.Fines(chat.Response{Message: "none"}, chat.FineList{}))

	out := hr.Fines(chat.Response{Message: "You owe"}, chat.FineList{Fines: []library.IssuedBook{
		{Title: "Emma", CurrentFine: decimal.RequireFromString("1.5"), DaysOverdue: 3},
	}})
	assert.Equal(t, "You owe\n• Emma: <b>$1.50</b> (3 days overdue)", out)
}

func TestHTMLRendererIssuedAndInfo(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	hr := HTMLRenderer{Now: func() time.Time { return now }, Currency: "USD"}

	out := hr.Issued(chat.Response{Message: "Due"}, chat.IssuedList{Books: []library.IssuedBook{
		{ID: 4, Title: "Dune", DueDate: library.NewDate(now.AddDate(0, 0, -1))},
	}})
	assert.Contains(t, out, "<b>Dune</b> <code>#4</code>")
	assert.Contains(t, out, "🚨 Overdue")

	pol := library.DefaultPolicy()
	out = hr.LibraryInfo(chat.Response{Message: "Info"}, chat.LibraryInfo{
		Hours:  []chat.DayHours{{Day: "monday", Hours: "9-5"}},
		Policy: &pol,
	})
	assert.Contains(t, out, "<b>Library Hours</b>\nMonday: 9-5")
	assert.Contains(t, out, "<b>Borrowing Rules</b>")
	assert.Contains(t, out, "Loan period: 14 days")

	out = hr.Reservations(chat.Response{Message: "Queue"}, chat.ReservationList{Reservations: []library.Reservation{
		{BookTitle: "SICP", PositionInQueue: 2, Status: "active"},
	}})
	assert.Equal(t, "Queue\n• <b>SICP</b> #2 in queue (active)", out)
}

func TestSuggestionList(t *testing.T) {
	assert.Empty(t, suggestionList(nil))
	assert.Equal(t, "\n\n<i>You could ask:</i>\n• a &amp; b", suggestionList([]string{"a & b"}))
}
