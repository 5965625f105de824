// Package tui is the interactive front-end: a car picker, an operation menu,
// and a live console that streams batch progress. It follows the Elm shape
// bubbletea expects: the App model owns all state, Update reacts to
// messages, View renders. The batch itself runs on a tea.Cmd goroutine and
// reports back through a channel, so the loop keeps processing input while a
// converter is running.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pitlane/gt2garage/internal/catalog"
	"github.com/pitlane/gt2garage/internal/config"
	"github.com/pitlane/gt2garage/internal/logbook"
	"github.com/pitlane/gt2garage/internal/logging"
	"github.com/pitlane/gt2garage/internal/orchestrator"
	"github.com/pitlane/gt2garage/internal/pipeline"
)

// appState represents which screen is active.
type appState int

const (
	stateCars    appState = iota // car picker with checkboxes
	stateOps                     // operation menu
	stateRunning                 // batch console
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	confirmStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
)

// carItem implements list.Item for one selectable car.
type carItem struct {
	entity  pipeline.Entity
	checked bool
}

func (i carItem) Title() string {
	mark := "[ ]"
	if i.checked {
		mark = "[x]"
	}
	return fmt.Sprintf("%s %s", mark, i.entity.DisplayName())
}
func (i carItem) Description() string { return i.entity.ID }
func (i carItem) FilterValue() string { return i.entity.DisplayName() + " " + i.entity.ID }

// opItem implements list.Item for one catalog operation.
type opItem struct {
	spec pipeline.OperationSpec
}

func (i opItem) Title() string { return i.spec.Name }
func (i opItem) Description() string {
	direction := "game format -> editable"
	if i.spec.Direction == pipeline.ToGameFormat {
		direction = "editable -> game format"
	}
	return fmt.Sprintf("%s · %s · %s", i.spec.Executable, i.spec.Arg, direction)
}
func (i opItem) FilterValue() string { return i.spec.Name }

// Messages exchanged with the batch goroutine.
type consoleLineMsg struct {
	level logbook.Level
	text  string
}

type confirmRequestMsg string

type batchDoneMsg struct {
	summary orchestrator.Summary
}

// eventsDrainedMsg signals that a batch's event stream was closed; the
// reader that receives it retires instead of re-arming.
type eventsDrainedMsg struct{}

// App is the main application model.
type App struct {
	state   appState
	cfg     *config.Config
	catalog catalog.Catalog
	book    *logbook.Logbook
	debug   *logging.Logger

	carList list.Model
	opList  list.Model
	console viewport.Model

	lines          []string
	events         chan tea.Msg
	answers        chan bool
	pendingConfirm string
	running        bool
	statusMsg      string
	width, height  int
}

// NewApp loads configuration, the car registry, and the logbook, and builds
// the initial picker screen.
func NewApp(projectDir string) (*App, error) {
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	cars, err := catalog.LoadCarNames(cfg.CarNamesPath())
	if err != nil {
		return nil, err
	}
	book, err := logbook.New(cfg.LogbookPath())
	if err != nil {
		return nil, err
	}
	debug, err := logging.New(projectDir)
	if err != nil {
		return nil, err
	}

	cat := catalog.Default().WithTimeouts(cfg.Settings.Timeouts)

	carItems := make([]list.Item, len(cars))
	for i, car := range cars {
		carItems[i] = carItem{entity: car}
	}
	carList := list.New(carItems, list.NewDefaultDelegate(), 0, 0)
	carList.Title = "GT2 Garage · select cars"
	carList.SetShowStatusBar(false)

	var opItems []list.Item
	for _, name := range cat.Names() {
		spec, _ := cat.Lookup(name)
		opItems = append(opItems, opItem{spec: spec})
	}
	opList := list.New(opItems, list.NewDefaultDelegate(), 0, 0)
	opList.Title = "Select operation"
	opList.SetShowStatusBar(false)
	opList.SetFilteringEnabled(false)

	return &App{
		state:   stateCars,
		cfg:     cfg,
		catalog: cat,
		book:    book,
		debug:   debug,
		carList: carList,
		opList:  opList,
		console: viewport.New(0, 0),
		events:  make(chan tea.Msg, 64),
		answers: make(chan bool),
	}, nil
}

// Close releases the logbook and debug log.
func (a *App) Close() {
	_ = a.book.Close()
	_ = a.debug.Close()
}

func (a *App) Init() tea.Cmd {
	return nil
}

// Update reacts to one message.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.carList.SetSize(max(0, msg.Width-4), max(0, msg.Height-6))
		a.opList.SetSize(max(0, msg.Width-4), max(0, msg.Height-6))
		a.console.Width = max(0, msg.Width-4)
		a.console.Height = max(0, msg.Height-8)
		return a, nil

	case consoleLineMsg:
		a.appendLine(msg)
		return a, a.waitForEvent()

	case confirmRequestMsg:
		a.pendingConfirm = string(msg)
		return a, a.waitForEvent()

	case eventsDrainedMsg:
		return a, nil

	case batchDoneMsg:
		a.running = false
		a.statusMsg = fmt.Sprintf("Batch finished: %d succeeded, %d failed, %d skipped",
			msg.summary.Succeeded, msg.summary.Failed, msg.summary.Skipped)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, a.updateActiveList(msg)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Answer a pending interactive gate before anything else.
	if a.pendingConfirm != "" && (key == "y" || key == "n") {
		a.answers <- key == "y"
		a.pendingConfirm = ""
		return a, nil
	}

	switch key {
	case "ctrl+c":
		return a, tea.Quit
	case "q":
		if a.state == stateCars && !a.carList.SettingFilter() {
			return a, tea.Quit
		}
	case " ":
		if a.state == stateCars && !a.carList.SettingFilter() {
			a.toggleSelected()
			return a, nil
		}
	case "enter":
		switch a.state {
		case stateCars:
			if a.carList.SettingFilter() {
				break
			}
			if len(a.selectedCars()) == 0 {
				a.statusMsg = "No cars selected"
				return a, nil
			}
			a.state = stateOps
			return a, nil
		case stateOps:
			return a.startBatch()
		}
	case "esc":
		switch a.state {
		case stateOps:
			a.state = stateCars
			return a, nil
		case stateRunning:
			if !a.running {
				a.state = stateCars
				a.statusMsg = ""
				return a, nil
			}
		}
	}

	return a, a.updateActiveList(msg)
}

func (a *App) updateActiveList(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.state {
	case stateCars:
		a.carList, cmd = a.carList.Update(msg)
	case stateOps:
		a.opList, cmd = a.opList.Update(msg)
	case stateRunning:
		a.console, cmd = a.console.Update(msg)
	}
	return cmd
}

// toggleSelected flips the checkbox on the highlighted car.
func (a *App) toggleSelected() {
	selected, ok := a.carList.SelectedItem().(carItem)
	if !ok {
		return
	}
	for idx, item := range a.carList.Items() {
		car, ok := item.(carItem)
		if !ok || car.entity.ID != selected.entity.ID {
			continue
		}
		car.checked = !car.checked
		a.carList.SetItem(idx, car)
		return
	}
}

// selectedCars returns the checked entities in list order.
func (a *App) selectedCars() []pipeline.Entity {
	var cars []pipeline.Entity
	for _, item := range a.carList.Items() {
		if car, ok := item.(carItem); ok && car.checked {
			cars = append(cars, car.entity)
		}
	}
	return cars
}

// startBatch launches the orchestrator on its own goroutine and switches to
// the console screen. Progress arrives as consoleLineMsg events.
func (a *App) startBatch() (tea.Model, tea.Cmd) {
	op, ok := a.opList.SelectedItem().(opItem)
	if !ok {
		return a, nil
	}

	req := orchestrator.Request{
		Cars:       a.selectedCars(),
		Operation:  op.spec.Name,
		SourceRoot: a.cfg.Settings.SourceRoot,
		OutputRoot: a.cfg.Settings.OutputRoot,
	}

	a.resetEvents()
	sink := &consoleSink{book: a.book, events: a.events}
	orch := orchestrator.New(a.catalog, a.cfg.ToolsDir(), sink, a.confirmGate, a.debug)

	a.state = stateRunning
	a.running = true
	a.lines = nil
	a.console.SetContent("")
	a.statusMsg = fmt.Sprintf("Running %s on %d car(s)...", op.spec.Name, len(req.Cars))

	run := func() tea.Msg {
		return batchDoneMsg{summary: orch.RunBatch(context.Background(), req)}
	}
	return a, tea.Batch(run, a.waitForEvent())
}

// confirmGate implements the interactive-console gate. It is called from the
// batch goroutine and blocks until the user answers on the TUI side.
func (a *App) confirmGate(prompt string) bool {
	a.events <- confirmRequestMsg(prompt)
	return <-a.answers
}

// resetEvents starts a fresh event stream for the next batch. Closing the
// previous channel releases any reader still parked on it; only one batch
// runs at a time, so its writers are already gone.
func (a *App) resetEvents() {
	if a.events != nil {
		close(a.events)
	}
	a.events = make(chan tea.Msg, 64)
}

// waitForEvent delivers the next event of the current batch to the update
// loop. The channel is captured so a reader never crosses into a later
// batch's stream.
func (a *App) waitForEvent() tea.Cmd {
	events := a.events
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return eventsDrainedMsg{}
		}
		return msg
	}
}

func (a *App) appendLine(msg consoleLineMsg) {
	line := msg.text
	switch msg.level {
	case logbook.LevelWarn:
		line = warnStyle.Render(line)
	case logbook.LevelError:
		line = errorStyle.Render(line)
	}
	a.lines = append(a.lines, line)
	a.console.SetContent(strings.Join(a.lines, "\n"))
	a.console.GotoBottom()
}

// View renders the active screen.
func (a *App) View() string {
	switch a.state {
	case stateOps:
		help := helpStyle.Render("enter=run  esc=back  ctrl+c=quit")
		status := fmt.Sprintf("%d car(s) selected", len(a.selectedCars()))
		return fmt.Sprintf("%s\n%s\n%s\n", a.opList.View(), status, help)
	case stateRunning:
		var footer string
		switch {
		case a.pendingConfirm != "":
			footer = confirmStyle.Render(a.pendingConfirm + " [y/n]")
		case a.running:
			footer = helpStyle.Render("converting... (console scrolls with arrow keys)")
		default:
			footer = helpStyle.Render(a.statusMsg + "  ·  esc=back  ctrl+c=quit")
		}
		title := titleStyle.Render("Conversion console")
		return fmt.Sprintf("%s\n%s\n%s\n", title, a.console.View(), footer)
	default:
		roots := helpStyle.Render(fmt.Sprintf("source: %s  ·  output: %s",
			orEmpty(a.cfg.Settings.SourceRoot), orEmpty(a.cfg.Settings.OutputRoot)))
		help := helpStyle.Render("space=toggle  enter=choose operation  /=filter  q=quit")
		status := a.statusMsg
		if status == "" {
			status = fmt.Sprintf("%d car(s) selected", len(a.selectedCars()))
		}
		return fmt.Sprintf("%s\n%s\n%s\n%s\n", a.carList.View(), roots, status, help)
	}
}

func orEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(not set)"
	}
	return filepath.Clean(s)
}

// consoleSink fans progress out to the persistent logbook and the TUI
// console channel.
type consoleSink struct {
	book   *logbook.Logbook
	events chan<- tea.Msg
}

func (s *consoleSink) Info(format string, args ...any)  { s.emit(logbook.LevelInfo, format, args...) }
func (s *consoleSink) Warn(format string, args ...any)  { s.emit(logbook.LevelWarn, format, args...) }
func (s *consoleSink) Error(format string, args ...any) { s.emit(logbook.LevelError, format, args...) }

func (s *consoleSink) emit(level logbook.Level, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	s.book.Append(level, text)
	s.events <- consoleLineMsg{level: level, text: text}
}
