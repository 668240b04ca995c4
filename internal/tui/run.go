package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/notesprobe/internal/config"
	"github.com/notesprobe/internal/loadtest"
)

// OpenLogFile opens the file that receives logs while the dashboard owns
// the terminal.
func OpenLogFile() (*os.File, error) {
	dir := filepath.Join(os.TempDir(), "notesprobe")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "notesprobe.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

// RunLoad executes runner behind the dashboard and returns its result.
// Pressing q cancels the run; the partial summary is still returned.
func RunLoad(ctx context.Context, runner *loadtest.Runner, target Target, thresholds config.Thresholds, opts ...tea.ProgramOption) (*loadtest.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(runner, target, thresholds, cancel)
	p := tea.NewProgram(model, opts...)

	go func() {
		summary, err := runner.Run(ctx)
		p.Send(DoneMsg{Summary: summary, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	return final.(Model).Result()
}

// Headless returns program options for running without a terminal.
func Headless(out io.Writer) []tea.ProgramOption {
	return []tea.ProgramOption{tea.WithInput(nil), tea.WithOutput(out)}
}
