package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"libripal/helpers"
	"libripal/library"
	"libripal/views"

	"github.com/spf13/cobra"
)

var timeNow = time.Now

// ------------------ Commands ------------------

func (a *app) commands() []*cobra.Command {
	return []*cobra.Command{
		{
			Use:   "login",
			Short: "Sign in and remember the session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				sess, err := views.SignIn(cmd.Context(), a.env())
				if err != nil {
					return err
				}
				a.signIn(sess)
				return nil
			},
		},
		{
			Use:   "logout",
			Short: "Forget the stored session",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				a.signOut()
				fmt.Fprintln(a.out, "👋 Signed out.")
				return nil
			},
		},
		{
			Use:   "register",
			Short: "Create an account",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return views.RegisterForm(cmd.Context(), a.env())
			},
		},
		{
			Use:     "dashboard",
			Short:   "Show loans, fines and recommendations",
			Args:    cobra.NoArgs,
			PreRunE: a.requireSession,
			RunE: func(cmd *cobra.Command, _ []string) error {
				d, err := views.LoadDashboard(cmd.Context(), a.manager)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, views.RenderDashboard(d, timeNow(), a.cfg.Currency))
				return nil
			},
		},
		{
			Use:     "search [query]",
			Short:   "Search the catalogue",
			PreRunE: a.requireSession,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := views.Search(cmd.Context(), a.env(), strings.Join(args, " "))
				return err
			},
		},
		{
			Use:     "chat",
			Short:   "Talk to the library assistant",
			Args:    cobra.NoArgs,
			PreRunE: a.requireSession,
			RunE: func(cmd *cobra.Command, _ []string) error {
				env := a.env()
				return views.RunChat(cmd.Context(), views.ChatDeps{
					Service:  env.Chat,
					Manager:  env.Manager,
					Store:    env.Store,
					Logger:   env.Logger,
					Renderer: views.TerminalRenderer{Now: timeNow, Currency: a.cfg.Currency},
					Now:      timeNow,
				})
			},
		},
		{
			Use:     "profile",
			Short:   "Show and edit your profile",
			Args:    cobra.NoArgs,
			PreRunE: a.requireSession,
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := views.Profile(cmd.Context(), a.env())
				return err
			},
		},
		a.actionCmd("borrow <book id>", "Borrow a book", (*library.LibraryManager).BorrowBook),
		a.actionCmd("reserve <book id>", "Join the waiting list for a book", (*library.LibraryManager).ReserveBook),
		a.actionCmd("renew <borrowed id>", "Renew a loan", (*library.LibraryManager).RenewBook),
		a.actionCmd("return <book id>", "Return a book", (*library.LibraryManager).ReturnBook),
		{
			Use:     "fines",
			Short:   "List outstanding fines",
			Args:    cobra.NoArgs,
			PreRunE: a.requireSession,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.printFines(cmd.Context())
			},
		},
		{
			Use:     "notifications",
			Short:   "List notifications",
			Args:    cobra.NoArgs,
			PreRunE: a.requireSession,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.printNotifications(cmd.Context())
			},
		},
		{
			Use:     "stats",
			Short:   "Show your reading statistics",
			Args:    cobra.NoArgs,
			PreRunE: a.requireSession,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.printStats(cmd.Context())
			},
		},
		{
			Use:     "genres",
			Short:   "List the genres and authors in the catalogue",
			Args:    cobra.NoArgs,
			PreRunE: a.requireSession,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.printCatalog(cmd.Context())
			},
		},
		{
			Use:   "health",
			Short: "Check the API is reachable",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				h, err := a.manager.Health(cmd.Context())
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(h))
				for k := range h {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				fmt.Fprintf(a.out, "API %s\n", a.cfg.APIURL)
				for _, k := range keys {
					fmt.Fprintf(a.out, "  %-12s %v\n", k+":", h[k])
				}
				if fi, err := os.Stat(a.cfg.StorePath()); err == nil {
					fmt.Fprintf(a.out, "Local store %s (%s)\n", a.cfg.StorePath(), helpers.FormatFileSize(fi.Size()))
				}
				return nil
			},
		},
	}
}

type managerAction func(*library.LibraryManager, context.Context, int64) (*library.ActionResult, error)

// actionCmd builds a one-shot command around a manager call taking an id.
func (a *app) actionCmd(use, short string, call managerAction) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		Short:   short,
		Args:    cobra.ExactArgs(1),
		PreRunE: a.requireSession,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid id: %s", args[0])
			}
			res, err := call(a.manager, cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, "✓ "+res.Message)
			return nil
		},
	}
}

// ------------------ Reports ------------------

func (a *app) printFines(ctx context.Context) error {
	f, err := a.manager.Fines(ctx)
	if err != nil {
		return err
	}
	if len(f.Fines) == 0 {
		fmt.Fprintln(a.out, views.NoFinesMessage)
		return nil
	}
	fmt.Fprintf(a.out, "%-6s %-30s %-14s %-8s %s\n", "ID", "Title", "Due", "Days", "Fine")
	fmt.Fprintln(a.out, strings.Repeat("-", 72))
	for _, b := range f.Fines {
		fmt.Fprintf(a.out, "%-6d %-30s %-14s %-8d %s\n", b.ID, helpers.Fit(b.Title, 30),
			helpers.FormatDate(b.DueDate.Time, helpers.DateShort), b.DaysOverdue,
			helpers.FormatCurrency(b.CurrentFine, a.cfg.Currency))
	}
	fmt.Fprintf(a.out, "\nTotal outstanding: %s\n", helpers.FormatCurrency(f.TotalAmount, a.cfg.Currency))
	return nil
}

func (a *app) printNotifications(ctx context.Context) error {
	list, err := a.manager.Notifications(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No notifications.")
		return nil
	}
	groups := helpers.GroupBy(list, func(n library.Notification) bool { return n.IsRead })
	fmt.Fprintf(a.out, "%s unread\n", helpers.FormatNumber(int64(len(groups[false]))))
	for _, read := range []bool{false, true} {
		mark := "•"
		if read {
			mark = " "
		}
		for _, n := range groups[read] {
			fmt.Fprintf(a.out, "%s %s %s: %s", mark, n.Type.Icon(), n.Title, n.Message)
			if !n.CreatedAt.IsZero() {
				fmt.Fprintf(a.out, " (%s)", helpers.FormatDate(n.CreatedAt.Time, helpers.DateShort))
			}
			fmt.Fprintln(a.out)
		}
	}
	return nil
}

func (a *app) printStats(ctx context.Context) error {
	st, err := a.manager.Statistics(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%-22s %s\n", "Books read:", helpers.FormatNumber(int64(st.TotalBorrowed)))
	fmt.Fprintf(a.out, "%-22s %d\n", "Currently borrowed:", st.CurrentlyBorrowed)
	fmt.Fprintf(a.out, "%-22s %s\n", "Fines paid:", helpers.FormatCurrency(st.TotalFines, a.cfg.Currency))
	fmt.Fprintf(a.out, "%-22s %s\n", "Reading streak:", helpers.Plural(st.ReadingStreak, "day"))
	if len(st.FavoriteGenres) > 0 {
		fmt.Fprintln(a.out, "Favorite genres:")
		for _, g := range st.FavoriteGenres {
			fmt.Fprintf(a.out, "  %-20s %s\n", g.Genre, helpers.Plural(g.Count, "book"))
		}
	}
	return nil
}

func (a *app) printCatalog(ctx context.Context) error {
	genres, err := a.manager.Genres(ctx)
	if err != nil {
		return err
	}
	authors, err := a.manager.Authors(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Genres:  "+strings.Join(genres, ", "))
	fmt.Fprintln(a.out, "Authors: "+strings.Join(authors, ", "))
	return nil
}
