// cmd/gt2batch/main.go
//
// Headless batch runner: converts a set of cars with one catalog operation
// and exits non-zero if any item failed. Useful for scripting full rebuilds
// without the TUI.

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/pitlane/gt2garage/internal/catalog"
	"github.com/pitlane/gt2garage/internal/config"
	"github.com/pitlane/gt2garage/internal/logbook"
	"github.com/pitlane/gt2garage/internal/logging"
	"github.com/pitlane/gt2garage/internal/orchestrator"
	"github.com/pitlane/gt2garage/internal/pipeline"
)

func main() {
	opName := flag.String("op", "", "operation to run (e.g. ConvertToEditable)")
	carIDs := flag.String("cars", "", "comma-separated car ids (empty = all cars in the registry)")
	sourceRoot := flag.String("source", "", "directory holding the input artifacts (defaults to config)")
	outputRoot := flag.String("out", "", "destination root for converted outputs (defaults to config)")
	projectDir := flag.String("project", "", "path to the project directory (defaults to cwd)")
	assumeYes := flag.Bool("yes", false, "answer yes to interactive-conversion prompts")
	flag.Parse()

	if strings.TrimSpace(*opName) == "" {
		die("--op is required (one of: %s)", strings.Join(catalog.Default().Names(), ", "))
	}

	project := *projectDir
	if project == "" {
		var err error
		project, err = os.Getwd()
		if err != nil {
			die("determine working directory: %v", err)
		}
	}
	absoluteProject, err := filepath.Abs(project)
	if err != nil {
		die("resolve project dir: %v", err)
	}
	if err := config.InitGarageDir(absoluteProject); err != nil {
		die("init %s: %v", config.GarageDir, err)
	}
	cfg, err := config.NewConfig(absoluteProject)
	if err != nil {
		die("load config: %v", err)
	}

	cars, err := loadCars(cfg, *carIDs)
	if err != nil {
		die("%v", err)
	}

	book, err := logbook.New(cfg.LogbookPath())
	if err != nil {
		die("open logbook: %v", err)
	}
	defer book.Close()
	debug, err := logging.New(absoluteProject)
	if err != nil {
		die("open debug log: %v", err)
	}
	defer debug.Close()

	source := *sourceRoot
	if source == "" {
		source = cfg.Settings.SourceRoot
	}
	output := *outputRoot
	if output == "" {
		output = cfg.Settings.OutputRoot
	}
	if *sourceRoot != "" || *outputRoot != "" {
		// Remember explicit roots for the next session.
		if err := cfg.SetRoots(source, output); err != nil {
			die("save config: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cat := catalog.Default().WithTimeouts(cfg.Settings.Timeouts)
	sink := &stdoutSink{book: book}
	orch := orchestrator.New(cat, cfg.ToolsDir(), sink, confirmer(*assumeYes), debug)

	summary := orch.RunBatch(ctx, orchestrator.Request{
		Cars:       cars,
		Operation:  *opName,
		SourceRoot: source,
		OutputRoot: output,
	})

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// loadCars reads the car registry and filters it down to the requested ids.
func loadCars(cfg *config.Config, csv string) ([]pipeline.Entity, error) {
	all, err := catalog.LoadCarNames(cfg.CarNamesPath())
	if err != nil {
		return nil, fmt.Errorf("load car registry: %w", err)
	}
	if strings.TrimSpace(csv) == "" {
		return all, nil
	}
	byID := make(map[string]pipeline.Entity, len(all))
	for _, car := range all {
		byID[car.ID] = car
	}
	var cars []pipeline.Entity
	for _, raw := range strings.Split(csv, ",") {
		id := strings.ToLower(strings.TrimSpace(raw))
		if id == "" {
			continue
		}
		car, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown car id %q", id)
		}
		cars = append(cars, car)
	}
	return cars, nil
}

// confirmer builds the interactive-conversion gate: auto-approve with --yes,
// otherwise ask on the terminal.
func confirmer(assumeYes bool) pipeline.Confirmer {
	if assumeYes {
		return func(string) bool { return true }
	}
	reader := bufio.NewReader(os.Stdin)
	return func(prompt string) bool {
		fmt.Printf("%s [y/N] ", prompt)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(answer), "y")
	}
}

// stdoutSink mirrors progress to the terminal and the persistent logbook.
type stdoutSink struct {
	book *logbook.Logbook
}

func (s *stdoutSink) Info(format string, args ...any)  { s.emit(logbook.LevelInfo, format, args...) }
func (s *stdoutSink) Warn(format string, args ...any)  { s.emit(logbook.LevelWarn, format, args...) }
func (s *stdoutSink) Error(format string, args ...any) { s.emit(logbook.LevelError, format, args...) }

func (s *stdoutSink) emit(level logbook.Level, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	s.book.Append(level, text)
	fmt.Printf("%-5s %s\n", string(level), text)
}
