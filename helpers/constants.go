package helpers

import "time"

// Circulation limits enforced by the backend. The client only uses them for
// display and advisory checks.
const (
	MaxBorrowDays   = 14
	MaxRenewals     = 2
	MaxReservations = 5
	DueSoonDays     = 3

	MaxChatMessageLength = 1000
)

// Local storage keys.
const (
	KeyUserPreferences = "libripal_user_preferences"
	KeySearchHistory   = "libripal_search_history"
	KeyTheme           = "libripal_theme"
	KeyChatDraft       = "libripal_chat_draft"
)

// Date layouts accepted by FormatDate.
const (
	DateDisplay  = "January 02, 2006"
	DateShort    = "Jan 02, 2006"
	DateISO      = "2006-01-02"
	DateTime     = "3:04 PM"
	DateDateTime = "Jan 02, 2006 3:04 PM"
)

// SearchDebounce is how long interactive inputs wait before persisting.
const SearchDebounce = 300 * time.Millisecond
