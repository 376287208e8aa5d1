package views

import (
	"context"
	"strings"
)

// Screen is one destination of the shell.
type Screen func(ctx context.Context, env *Env) (Route, error)

var menu = []struct {
	route Route
	label string
}{
	{RouteDashboard, "Dashboard"},
	{RouteSearch, "Search"},
	{RouteChat, "Chat"},
	{RouteProfile, "Profile"},
	{RouteLogout, "Logout"},
}

// Navigation is the signed-in shell: a menu that routes to screens, each
// inside the ErrorBoundary.
type Navigation struct {
	Env      *Env
	Screens  map[Route]Screen
	Boundary ErrorBoundary
}

// DefaultScreens maps every route to its screen.
func DefaultScreens() map[Route]Screen {
	return map[Route]Screen{
		RouteDashboard: Dashboard,
		RouteSearch: func(ctx context.Context, env *Env) (Route, error) {
			return Search(ctx, env, "")
		},
		RouteChat: func(ctx context.Context, env *Env) (Route, error) {
			return RouteHome, RunChat(ctx, ChatDeps{
				Service:  env.Chat,
				Manager:  env.Manager,
				Store:    env.Store,
				Logger:   env.Logger,
				Renderer: TerminalRenderer{Now: env.Now, Currency: env.Currency},
				Now:      env.Now,
			})
		},
		RouteProfile: Profile,
	}
}

// Run shows the menu until the user logs out (RouteLogout) or quits
// (RouteQuit). start, when set, is opened first.
func (n Navigation) Run(ctx context.Context, start Route) (Route, error) {
	next := start
	for {
		if next == RouteHome {
			var err error
			if next, err = n.prompt(); err != nil {
				return RouteQuit, nil
			}
		}
		switch next {
		case RouteLogout, RouteQuit:
			return next, nil
		case RouteHome:
			continue
		}

		screen, ok := n.Screens[next]
		if !ok {
			n.Env.Term.Println("Unknown option.")
			next = RouteHome
			continue
		}
		route := next
		next = RouteHome
		err := n.Boundary.Run(string(route), func() error {
			r, err := screen(ctx, n.Env)
			next = r
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return RouteQuit, ctx.Err()
			}
			n.Env.logger().Error("screen failed", "screen", route, "err", err)
			n.Env.Term.Error(err.Error())
			next = RouteHome
		}
	}
}

func (n Navigation) prompt() (Route, error) {
	name := ""
	if s := n.Env.Manager.Session(); s != nil {
		name = s.Username
	}
	n.Env.Term.Println()
	n.Env.Term.Println(titleStyle.Render("📚 LibriPal") + mutedStyle.Render("  signed in as "+name))
	for i, item := range menu {
		n.Env.Term.Printf("  %d. %s\n", i+1, item.label)
	}
	n.Env.Term.Println("  q. Quit")

	input, err := n.Env.Term.Prompt("> ")
	if err != nil {
		return RouteQuit, err
	}
	input = strings.ToLower(input)
	if input == "q" || input == "quit" || input == "exit" {
		return RouteQuit, nil
	}
	for i, item := range menu {
		if input == string(rune('1'+i)) || input == strings.ToLower(item.label) {
			return item.route, nil
		}
	}
	if input != "" {
		n.Env.Term.Println("Invalid option. Choose 1-5 or q.")
	}
	return RouteHome, nil
}
