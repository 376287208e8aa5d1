package chat

// Renderer turns a reply into output for one front end. Text is the
// fallback arm: it must render Response.Message on its own, and it is what
// unknown tags and malformed data reach.
type Renderer interface {
	Books(r Response, p BookList) string
	Issued(r Response, p IssuedList) string
	Fines(r Response, p FineList) string
	LibraryInfo(r Response, p LibraryInfo) string
	Reservations(r Response, p ReservationList) string
	Text(r Response) string
}

// Dispatch routes r to the matching Renderer method.
func Dispatch(r Response, rd Renderer) string {
	switch p := r.Payload.(type) {
	case BookList:
		return rd.Books(r, p)
	case IssuedList:
		return rd.Issued(r, p)
	case FineList:
		return rd.Fines(r, p)
	case LibraryInfo:
		return rd.LibraryInfo(r, p)
	case ReservationList:
		return rd.Reservations(r, p)
	default:
		return rd.Text(r)
	}
}
