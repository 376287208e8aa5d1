package views

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"libripal/helpers"
	"libripal/library"
)

// PopularSearches are offered before the user types anything.
var PopularSearches = []string{
	"Machine Learning",
	"Data Structures",
	"Web Development",
	"Algorithms",
	"Database Systems",
	"Software Engineering",
}

const recentSearchCount = 5

// Search runs the BookSearch screen. A non-empty initial query is searched
// straight away.
func Search(ctx context.Context, env *Env, initial string) (Route, error) {
	prefs := env.preferences()
	if q := strings.TrimSpace(initial); q != "" {
		if err := runSearch(ctx, env, q, prefs); err != nil {
			return RouteHome, err
		}
	}

	for {
		recent := recentSearches(env)
		env.Term.Println(titleStyle.Render("📚 Search Books"))
		env.Term.Println(headingStyle.Render("Popular Searches:"))
		for i, s := range PopularSearches {
			env.Term.Printf("  p%d %s\n", i+1, s)
		}
		if len(recent) > 0 {
			env.Term.Println(headingStyle.Render("Recent Searches:"))
			for i, s := range recent {
				env.Term.Printf("  h%d %s\n", i+1, s)
			}
		}
		env.Term.Println(mutedStyle.Render("Filters: " + describeFilter(prefs.Filter)))
		env.Term.Println(mutedStyle.Render("f set filters | x clear history | Enter back"))

		input, err := env.Term.Prompt("Search for books, authors, topics: ")
		if err != nil || input == "" {
			return RouteHome, nil
		}

		query := input
		switch {
		case input == "f":
			prefs.Filter = promptFilter(env, prefs.Filter)
			env.savePreferences(prefs)
			continue
		case input == "x":
			if env.Store != nil {
				if err := env.Store.ClearSearches(); err != nil {
					env.Term.Error(helpers.ErrorMessage(err))
				}
			}
			continue
		case shortcut(input, 'p', len(PopularSearches)) >= 0:
			query = PopularSearches[shortcut(input, 'p', len(PopularSearches))]
		case shortcut(input, 'h', len(recent)) >= 0:
			query = recent[shortcut(input, 'h', len(recent))]
		}
		if err := runSearch(ctx, env, query, prefs); err != nil {
			return RouteHome, err
		}
	}
}

// shortcut parses inputs such as "p3" into a 0-based index, or -1.
func shortcut(input string, prefix byte, n int) int {
	if len(input) < 2 || input[0] != prefix {
		return -1
	}
	i, err := strconv.Atoi(input[1:])
	if err != nil || i < 1 || i > n {
		return -1
	}
	return i - 1
}

func recentSearches(env *Env) []string {
	if env.Store == nil {
		return nil
	}
	recent, err := env.Store.RecentSearches(recentSearchCount)
	if err != nil {
		env.logger().Warn("load search history", "err", err)
		return nil
	}
	return recent
}

func describeFilter(f library.BookFilter) string {
	if !f.Active() {
		return "none"
	}
	var parts []string
	if f.Genre != "" {
		parts = append(parts, "genre~"+f.Genre)
	}
	if f.Author != "" {
		parts = append(parts, "author~"+f.Author)
	}
	if f.AvailableOnly {
		parts = append(parts, "available only")
	}
	return strings.Join(parts, ", ")
}

func promptFilter(env *Env, cur library.BookFilter) library.BookFilter {
	genre, err := env.Term.Prompt("Genre (fiction, science, technology, history, biography; blank for all): ")
	if err != nil {
		return cur
	}
	author, err := env.Term.Prompt("Author contains (blank for any): ")
	if err != nil {
		return cur
	}
	return library.BookFilter{
		Genre:         genre,
		Author:        author,
		AvailableOnly: env.Term.Confirm("Available only?"),
	}
}

// runSearch queries the catalogue, applies the local filters and pages the
// results. Books can be borrowed, reserved or inspected from the pager.
func runSearch(ctx context.Context, env *Env, query string, prefs Preferences) error {
	var res *library.SearchResult
	err := WithSpinner(env.Term.Out(), "Searching library catalog...", func() (err error) {
		res, err = env.Manager.SearchBooks(ctx, library.SearchRequest{Query: query})
		return err
	})
	if err != nil {
		env.Term.Error(helpers.ErrorMessage(err))
		return nil
	}
	if env.Store != nil {
		if err := env.Store.AddSearch(query); err != nil {
			env.logger().Warn("record search", "err", err)
		}
	}

	books := prefs.Filter.Apply(res.Books)
	if len(books) == 0 {
		env.Term.Println("No books found")
		env.Term.Println("Try adjusting your search terms or filters")
		return nil
	}

	now := env.now()
	cards := make([]BookCard, len(books))
	entries := make([]string, len(books))
	for i, b := range books {
		cards[i] = BookCard{Book: b, Variant: VariantSearch, Currency: env.Currency, Highlight: query}
		entries[i] = cards[i].Render(now)
	}

	pager := Pager{
		Term:     env.Term,
		Title:    "Search Results",
		Subtitle: helpers.Plural(len(books), "book") + " found for \"" + query + "\"",
		PageSize: prefs.PageSize,
		Hint:     "b<n> borrow or reserve book n | d<n> details",
		Handle: func(input string, _ int) (bool, error) {
			var i int
			switch {
			case shortcut(input, 'b', len(cards)) >= 0:
				i = shortcut(input, 'b', len(cards))
				a := ActionReserve
				if library.CanBorrow(cards[i].Book) {
					a = ActionBorrow
				}
				if env.runCard(ctx, cards[i], a) {
					refreshCard(ctx, env, cards, entries, i)
				}
			case shortcut(input, 'd', len(cards)) >= 0:
				i = shortcut(input, 'd', len(cards))
				env.runCard(ctx, cards[i], ActionDetails)
			default:
				return false, nil
			}
			return true, nil
		},
	}
	if err := pager.Show(entries); err != nil && !errors.Is(err, ErrInputClosed) {
		return err
	}
	return nil
}

// refreshCard reloads book i after a mutation so the pager shows current
// availability.
func refreshCard(ctx context.Context, env *Env, cards []BookCard, entries []string, i int) {
	b, err := env.Manager.GetBook(ctx, cards[i].Book.ID)
	if err != nil {
		env.logger().Warn("refresh book", "id", cards[i].Book.ID, "err", err)
		return
	}
	cards[i].Book = *b
	entries[i] = cards[i].Render(env.now())
}
