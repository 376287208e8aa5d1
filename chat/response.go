// Package chat implements the assistant conversation: the tagged reply
// contract, its dispatch to renderers and the per-message exchange state.
package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"libripal/library"
)

// Kind tags a reply with the shape of its data. The set is open: tags this
// client does not know decode as plain text.
type Kind string

const (
	KindBookSearch      Kind = "book_search"
	KindIssuedBooks     Kind = "issued_books"
	KindBorrowedBooks   Kind = "borrowed_books"
	KindDueDates        Kind = "due_dates"
	KindFines           Kind = "fines"
	KindLibraryInfo     Kind = "library_info"
	KindRecommendations Kind = "recommendations"
	KindReservations    Kind = "reservations"
	KindHelp            Kind = "help"
	KindReservationHelp Kind = "reservation_help"
)

// Response is one assistant reply. Payload is never nil after decoding.
type Response struct {
	Message     string
	Type        Kind
	Suggestions []string
	Payload     Payload
}

// Payload is the closed set of data shapes a reply can carry.
type Payload interface{ payload() }

// BookList backs book_search and recommendations.
type BookList struct{ Books []library.Book }

// IssuedList backs issued_books, borrowed_books and due_dates.
type IssuedList struct{ Books []library.IssuedBook }

// FineList backs fines. An empty list means the user owes nothing.
type FineList struct{ Fines []library.IssuedBook }

func (f FineList) Empty() bool { return len(f.Fines) == 0 }

type DayHours struct {
	Day   string
	Hours string
}

// LibraryInfo backs library_info: opening hours in week order and, when the
// backend sent them, the circulation rules.
type LibraryInfo struct {
	Hours  []DayHours
	Policy *library.LibraryPolicy
}

type ReservationList struct{ Reservations []library.Reservation }

// Text carries nothing beyond Response.Message.
type Text struct{}

func (BookList) payload()        {}
func (IssuedList) payload()      {}
func (FineList) payload()        {}
func (LibraryInfo) payload()     {}
func (ReservationList) payload() {}
func (Text) payload()            {}

func (r *Response) UnmarshalJSON(b []byte) error {
	var wire struct {
		Type        Kind            `json:"type"`
		Message     string          `json:"message"`
		Data        json.RawMessage `json:"data"`
		Suggestions []string        `json:"suggestions"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	*r = Response{
		Message:     wire.Message,
		Type:        wire.Type,
		Suggestions: wire.Suggestions,
		Payload:     decodePayload(wire.Type, wire.Data),
	}
	return nil
}

// decodePayload never fails: data that does not fit the tag degrades to
// Text so the message is still shown.
func decodePayload(kind Kind, data json.RawMessage) Payload {
	data = bytes.TrimSpace(data)
	absent := len(data) == 0 || bytes.Equal(data, []byte("null"))

	switch kind {
	case KindBookSearch, KindRecommendations:
		var books []library.Book
		if absent || json.Unmarshal(data, &books) != nil {
			return Text{}
		}
		return BookList{Books: books}
	case KindIssuedBooks, KindBorrowedBooks, KindDueDates:
		var books []library.IssuedBook
		if absent || json.Unmarshal(data, &books) != nil {
			return Text{}
		}
		return IssuedList{Books: books}
	case KindFines:
		var fines []library.IssuedBook
		if absent {
			return FineList{}
		}
		if json.Unmarshal(data, &fines) != nil {
			return Text{}
		}
		return FineList{Fines: fines}
	case KindLibraryInfo:
		if absent {
			return Text{}
		}
		info, err := decodeLibraryInfo(data)
		if err != nil {
			return Text{}
		}
		return info
	case KindReservations:
		var rs []library.Reservation
		if absent || json.Unmarshal(data, &rs) != nil {
			return Text{}
		}
		return ReservationList{Reservations: rs}
	default:
		return Text{}
	}
}

var weekOrder = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
}

// decodeLibraryInfo accepts {"monday": "9-6", ...} or
// {"hours": {...}, "max_books": 5, "fine_per_day": 1.0, ...}.
func decodeLibraryInfo(data json.RawMessage) (LibraryInfo, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return LibraryInfo{}, err
	}

	hoursRaw := obj
	var info LibraryInfo
	if h, ok := obj["hours"]; ok {
		if err := json.Unmarshal(h, &hoursRaw); err != nil {
			return LibraryInfo{}, fmt.Errorf("hours: %w", err)
		}
		policy := library.DefaultPolicy()
		if err := json.Unmarshal(data, &policy); err != nil {
			return LibraryInfo{}, fmt.Errorf("policy: %w", err)
		}
		info.Policy = &policy
	}

	for day, raw := range hoursRaw {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = string(raw)
		}
		info.Hours = append(info.Hours, DayHours{Day: day, Hours: s})
	}
	sort.SliceStable(info.Hours, func(i, j int) bool {
		a, aok := weekOrder[strings.ToLower(info.Hours[i].Day)]
		b, bok := weekOrder[strings.ToLower(info.Hours[j].Day)]
		switch {
		case aok && bok:
			return a < b
		case aok != bok:
			return aok
		default:
			return info.Hours[i].Day < info.Hours[j].Day
		}
	})
	return info, nil
}
