package views

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
)

// ErrorBoundary contains panics raised while a screen runs. Errors returned
// by the screen pass through untouched.
type ErrorBoundary struct {
	Term   *Terminal
	Logger *slog.Logger
}

// Run calls view and, if it panics, shows the fallback and offers to try
// again or go home. Going home returns nil.
func (eb ErrorBoundary) Run(name string, view func() error) error {
	for {
		recovered, stack, err := eb.try(view)
		if recovered == nil {
			return err
		}
		eb.logger().Error("view crashed", "view", name, "panic", fmt.Sprint(recovered), "stack", string(stack))

		eb.Term.Println()
		eb.Term.Println(errorStyle.Render("⚠ Oops! Something went wrong"))
		eb.Term.Println("We're sorry, but something unexpected happened.")
		eb.Term.Println(mutedStyle.Render(fmt.Sprintf("Error: %v", recovered)))
		eb.Term.Println("[r] Try Again | [h] Go Home")

		choice, perr := eb.Term.Prompt("> ")
		if perr != nil && !errors.Is(perr, ErrInputClosed) {
			return perr
		}
		if c := strings.ToLower(choice); c != "r" && c != "retry" && c != "try again" {
			return nil
		}
	}
}

// try runs view. The stack is captured inside the deferred recover, while
// the panicking frames are still on it.
func (eb ErrorBoundary) try(view func() error) (recovered any, stack []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			recovered, stack = r, debug.Stack()
		}
	}()
	return nil, nil, view()
}

func (eb ErrorBoundary) logger() *slog.Logger {
	if eb.Logger == nil {
		return slog.Default()
	}
	return eb.Logger
}
