// Package views holds the terminal screens of the client. Line-oriented
// screens run on a Terminal; the chat screen is a bubbletea program.
package views

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrInputClosed is returned by prompts once the input stream has ended.
var ErrInputClosed = errors.New("input closed")

const clearScreen = "\033[2J\033[H"

// Terminal is the line-oriented I/O shared by the shell screens.
type Terminal struct {
	in       *bufio.Scanner
	out      io.Writer
	password func(prompt string) (string, error)
	tty      bool
}

// NewTerminal reads from in and writes to out. When in is an interactive
// terminal passwords are read without echo and screens are cleared between
// pages.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{in: bufio.NewScanner(in), out: out}
	t.password = t.Prompt
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.tty = true
		t.password = func(prompt string) (string, error) { return readPassword(f, out, prompt) }
	}
	return t
}

// readPassword securely reads a password with masking
func readPassword(f *os.File, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	bytePassword, err := term.ReadPassword(int(f.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(out) // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

func (t *Terminal) Out() io.Writer { return t.out }

// Interactive reports whether input comes from a terminal.
func (t *Terminal) Interactive() bool { return t.tty }

func (t *Terminal) Printf(format string, args ...any) { fmt.Fprintf(t.out, format, args...) }

func (t *Terminal) Println(args ...any) { fmt.Fprintln(t.out, args...) }

// Prompt prints label and returns the trimmed line typed in reply.
func (t *Terminal) Prompt(label string) (string, error) {
	fmt.Fprint(t.out, label)
	if !t.in.Scan() {
		if err := t.in.Err(); err != nil {
			return "", err
		}
		return "", ErrInputClosed
	}
	return strings.TrimSpace(t.in.Text()), nil
}

// Password prompts without echo when possible.
func (t *Terminal) Password(label string) (string, error) { return t.password(label) }

// Confirm asks a yes/no question; anything but y/yes is no.
func (t *Terminal) Confirm(label string) bool {
	ans, err := t.Prompt(label + " [y/N]: ")
	if err != nil {
		return false
	}
	ans = strings.ToLower(ans)
	return ans == "y" || ans == "yes"
}

// Clear wipes the screen on interactive terminals.
func (t *Terminal) Clear() {
	if t.tty {
		fmt.Fprint(t.out, clearScreen)
	}
}

// Error prints the inline error line views use after a failed call.
func (t *Terminal) Error(msg string) {
	fmt.Fprintln(t.out, errorStyle.Render("Error: "+msg))
}
