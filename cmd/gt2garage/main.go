// cmd/gt2garage/main.go
//
// Entry point for the gt2garage TUI. Interactive conversions open their
// console as a tmux window, so the TUI always lives inside a tmux session:
// started outside one, the binary re-runs itself in a session named
// "gt2garage" (attaching if it is already alive).

package main

import (
	"fmt"
	"os"
	"os/exec"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pitlane/gt2garage/internal/config"
	"github.com/pitlane/gt2garage/internal/tui"
)

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		os.Exit(1)
	}

	if os.Getenv("TMUX") == "" {
		if err := bootstrapTmux(cwd); err != nil {
			fmt.Fprintf(os.Stderr, "gt2garage needs tmux for converter consoles: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := config.InitGarageDir(cwd); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing %s directory: %v\n", config.GarageDir, err)
		os.Exit(1)
	}

	app, err := tui.NewApp(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting gt2garage: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

// bootstrapTmux re-runs this binary inside the gt2garage tmux session,
// creating the session when none is alive and attaching otherwise.
func bootstrapTmux(workingDir string) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate own binary: %w", err)
	}

	const session = "gt2garage"
	args := []string{"new-session", "-s", session, "-c", workingDir, self}
	if exec.Command("tmux", "has-session", "-t", session).Run() == nil {
		fmt.Printf("Reusing the running %s session.\n", session)
		args = []string{"attach-session", "-t", session}
	} else {
		fmt.Printf("Opening a %s session.\n", session)
	}

	cmd := exec.Command("tmux", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("tmux %s: %w", args[0], err)
	}
	return nil
}
