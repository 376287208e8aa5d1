package views

import (
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const spinnerInterval = 100 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type spinnerTickMsg struct{}

// Spinner is the LoadingSpinner as a bubbletea component.
type Spinner struct {
	Label string
	frame int
}

func (s Spinner) Tick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if _, ok := msg.(spinnerTickMsg); ok {
		s.frame++
		return s, s.Tick()
	}
	return s, nil
}

func (s Spinner) View() string {
	frame := spinnerStyle.Render(spinnerFrames[s.frame%len(spinnerFrames)])
	if s.Label == "" {
		return frame
	}
	return frame + " " + mutedStyle.Render(s.Label)
}

type spinResult struct {
	err      error
	panicked bool
	value    any
}

// WithSpinner animates label on w while fn runs and returns fn's error. A
// panic in fn is re-raised on the caller's goroutine.
func WithSpinner(w io.Writer, label string, fn func() error) error {
	done := make(chan spinResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- spinResult{panicked: true, value: r}
			}
		}()
		done <- spinResult{err: fn()}
	}()

	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()
	width := lipgloss.Width(label) + 2
	for frame := 0; ; frame++ {
		fmt.Fprintf(w, "\r%s %s", spinnerFrames[frame%len(spinnerFrames)], label)
		select {
		case res := <-done:
			fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", width))
			if res.panicked {
				panic(res.value)
			}
			return res.err
		case <-ticker.C:
		}
	}
}
