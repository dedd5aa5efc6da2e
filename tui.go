package sbpatch

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	insertedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	removedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
)

type spinner struct {
	frames []string
	index  int
}

func newSpinner() spinner {
	return spinner{frames: []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}}
}
func (s *spinner) tick() { s.index = (s.index + 1) % len(s.frames) }

func (s spinner) View() string { return s.frames[s.index] }

type TUI struct {
	sess        *Session
	noAnimation bool
	spinner     spinner
	mu          sync.Mutex
	cur, total  int
}

func NewTUI(sess *Session, noAnimation bool) *TUI {
	return &TUI{sess: sess, noAnimation: noAnimation, spinner: newSpinner()}
}

func (t *TUI) Run(patch func() (*Result, error)) error {
	if t.noAnimation {
		res, err := patch()
		if err != nil {
			fmt.Print(FormatError(err))
			return err
		}
		fmt.Print(FormatResult(res))
		return nil
	}

	t.sess.SetProgressCallback(func(done, total int) {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.cur, t.total = done, total
	})

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(100 * time.Millisecond):
				t.spinner.tick()
				t.renderProgress()
			}
		}
	}()

	res, err := patch()
	close(done)
	fmt.Print("\r\x1b[K")

	if err != nil {
		fmt.Print(FormatError(err))
		return err
	}
	fmt.Print(FormatResult(res))
	return nil
}

func (t *TUI) renderProgress() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Printf("\r%s Applying... %d/%d\x1b[K", t.spinner.View(), t.cur, t.total)
}

func FormatResult(res *Result) string {
	var b strings.Builder

	if res.UpToDate {
		b.WriteString(headerStyle.Render("Already up to date") + "\n")
		return b.String()
	}

	b.WriteString(headerStyle.Render("Patch applied and verified") + "\n")
	b.WriteString(fmt.Sprintf("  via %s\n", res.Strategy))
	if res.Removed > 0 {
		b.WriteString(removedStyle.Render(fmt.Sprintf("  -%d line(s)", res.Removed)) + "\n")
	}
	if res.Inserted > 0 {
		b.WriteString(insertedStyle.Render(fmt.Sprintf("  +%d line(s)", res.Inserted)) + "\n")
	}
	b.WriteString(successStyle.Render(fmt.Sprintf("  %d group(s)", res.Groups)) + "\n")
	return b.String()
}

func FormatError(err error) string {
	return errorStyle.Render("Failed: "+err.Error()) + "\n"
}
