package views

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const defaultPageSize = 5

// Pager pages through rendered entries with [n]ext/[p]revious/[g]oto/[q]uit.
// Input the pager does not understand goes to Handle together with the
// index of the first entry on the current page; returning false reports an
// unknown command.
type Pager struct {
	Term     *Terminal
	Title    string
	Subtitle string
	PageSize int
	Hint     string
	Handle   func(input string, offset int) (handled bool, err error)
}

// Show runs until the user quits or input ends.
func (p Pager) Show(entries []string) error {
	size := p.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if len(entries) == 0 {
		return fmt.Errorf("nothing to display")
	}
	pages := (len(entries) + size - 1) / size
	currentPage := 0

	p.Term.Clear()
	for {
		start := currentPage * size
		end := min(start+size, len(entries))

		p.Term.Println(banner(79))
		p.Term.Println(titleStyle.Render(p.Title))
		if p.Subtitle != "" {
			p.Term.Printf("%s | ", p.Subtitle)
		}
		p.Term.Printf("Page %d of %d\n", currentPage+1, pages)
		p.Term.Println(banner(79))
		for i := start; i < end; i++ {
			p.Term.Printf("[%d]\n%s\n", i+1, entries[i])
		}

		p.Term.Println(banner(79))
		p.Term.Println("Navigation: [n]ext | [p]revious | [g]oto page | [q]uit")
		if p.Hint != "" {
			p.Term.Println(mutedStyle.Render(p.Hint))
		}
		input, err := p.Term.Prompt("> ")
		if errors.Is(err, ErrInputClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		p.Term.Clear()

		switch strings.ToLower(input) {
		case "n", "next":
			if currentPage < pages-1 {
				currentPage++
			} else {
				p.Term.Println("You're already on the last page!")
			}
		case "p", "prev", "previous":
			if currentPage > 0 {
				currentPage--
			} else {
				p.Term.Println("You're already on the first page!")
			}
		case "g", "goto":
			s, err := p.Term.Prompt(fmt.Sprintf("Enter page number (1-%d): ", pages))
			if err != nil {
				return nil
			}
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > pages {
				p.Term.Printf("Invalid page number. Please enter a number between 1 and %d.\n", pages)
				continue
			}
			currentPage = n - 1
		case "q", "quit", "":
			return nil
		default:
			if p.Handle != nil {
				handled, err := p.Handle(input, start)
				if err != nil {
					return err
				}
				if handled {
					continue
				}
			}
			p.Term.Println("Invalid command. Use n, p, g, or q.")
		}
	}
}
