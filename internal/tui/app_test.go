package tui

import "testing"

func TestWaitForEventStaysOnItsBatch(t *testing.T) {
	app := &App{}
	app.resetEvents()
	staleReader := app.waitForEvent()

	// A new batch swaps the stream; the stale reader must retire instead
	// of stealing lines from it.
	app.resetEvents()
	app.events <- consoleLineMsg{text: "fresh line"}

	if _, ok := staleReader().(eventsDrainedMsg); !ok {
		t.Fatal("a reader on a closed stream should report it drained")
	}

	msg := app.waitForEvent()()
	line, ok := msg.(consoleLineMsg)
	if !ok || line.text != "fresh line" {
		t.Fatalf("the new batch's reader should see its own line, got %#v", msg)
	}
}

func TestResetEventsKeepsPendingLinesOfClosedStream(t *testing.T) {
	app := &App{}
	app.resetEvents()
	app.events <- consoleLineMsg{text: "buffered"}
	reader := app.waitForEvent()
	app.resetEvents()

	// Lines already buffered before the swap still reach the console.
	if line, ok := reader().(consoleLineMsg); !ok || line.text != "buffered" {
		t.Fatal("buffered lines must survive the stream swap")
	}
}
