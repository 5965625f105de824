package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Runner launches the external converter for one job. Captured mode pipes
// stdout/stderr into the result; interactive mode hands the user a visible
// console instead. Either way the wait happens on its own goroutine and is
// joined through a single completion channel, so a calling UI keeps
// processing events while the converter runs.
type Runner struct {
	// ToolsDir is the directory holding the pez2k executables.
	ToolsDir string

	sink    Progress
	confirm Confirmer
}

// NewRunner creates a runner for converters in toolsDir. confirm gates
// interactive operations; a nil confirm declines them.
func NewRunner(toolsDir string, sink Progress, confirm Confirmer) *Runner {
	return &Runner{ToolsDir: toolsDir, sink: sink, confirm: confirm}
}

// ExecutablePath returns where the operation's converter must live.
func (r *Runner) ExecutablePath(op OperationSpec) string {
	return filepath.Join(r.ToolsDir, op.Executable)
}

// Run executes the job's converter with the staging directory as working
// directory, bounded by the job timeout. Non-zero exit codes are reported in
// the result, not as errors; errors mean the process never ran to completion
// (launch failure, timeout, cancellation). A declined interactive gate is a
// Skipped result with nil error.
func (r *Runner) Run(ctx context.Context, job *Job) (JobResult, error) {
	exe := r.ExecutablePath(job.Op)
	if job.Op.Interactive {
		return r.runInteractive(ctx, job, exe)
	}
	return r.runCaptured(ctx, job, exe)
}

func (r *Runner) runCaptured(ctx context.Context, job *Job, exe string) (JobResult, error) {
	cmd := exec.Command(exe, job.Op.Arg, job.InputPath)
	cmd.Dir = job.StagingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return JobResult{}, &LaunchError{Executable: exe, Err: err}
	}
	err := r.await(ctx, job, func() error { return cmd.Wait() }, func() {
		_ = cmd.Process.Kill()
	})
	result := JobResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		return result, err
	}
	result.ExitCode = cmd.ProcessState.ExitCode()
	return result, nil
}

// runInteractive asks the collaborator for confirmation, then hands the user
// a live console. Inside tmux the converter gets its own window and the
// runner polls for it to close; without tmux it falls back to inheriting the
// caller's stdio. Output is not captured in either mode.
func (r *Runner) runInteractive(ctx context.Context, job *Job, exe string) (JobResult, error) {
	prompt := fmt.Sprintf(
		"%s requires you to interact with %s in a separate console. Open the tool now?",
		job.Op.Name, job.Op.Executable)
	if r.confirm == nil || !r.confirm(prompt) {
		return JobResult{Skipped: true}, nil
	}

	if os.Getenv("TMUX") != "" {
		return r.runInTmuxWindow(ctx, job, exe)
	}

	cmd := exec.Command(exe, job.Op.Arg, job.InputPath)
	cmd.Dir = job.StagingDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return JobResult{}, &LaunchError{Executable: exe, Err: err}
	}
	err := r.await(ctx, job, func() error { return cmd.Wait() }, func() {
		_ = cmd.Process.Kill()
	})
	if err != nil {
		return JobResult{}, err
	}
	return JobResult{ExitCode: cmd.ProcessState.ExitCode()}, nil
}

// runInTmuxWindow opens the converter in a dedicated tmux window and waits,
// bounded by the job timeout, for the window to disappear. The tool's exit
// code is not observable through tmux; the classifier decides success from
// what the tool left in the staging directory.
func (r *Runner) runInTmuxWindow(ctx context.Context, job *Job, exe string) (JobResult, error) {
	window := "gt2-" + job.ID[:8]
	create := exec.Command("tmux", "new-window", "-d", "-n", window,
		"-c", job.StagingDir, exe, job.Op.Arg, job.InputPath)
	if out, err := create.CombinedOutput(); err != nil {
		return JobResult{}, &LaunchError{
			Executable: exe,
			Err:        fmt.Errorf("tmux new-window: %v: %s", err, strings.TrimSpace(string(out))),
		}
	}
	r.sink.Info("opened tmux window %q for %s", window, job.Op.Executable)

	deadline := time.Now().Add(job.Timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = exec.Command("tmux", "kill-window", "-t", window).Run()
			return JobResult{}, fmt.Errorf("pipeline: interactive run cancelled: %w", ctx.Err())
		case <-ticker.C:
			if !tmuxWindowOpen(window) {
				return JobResult{}, nil
			}
			if time.Now().After(deadline) {
				_ = exec.Command("tmux", "kill-window", "-t", window).Run()
				return JobResult{}, fmt.Errorf("%w after %s", ErrTimeout, job.Timeout)
			}
		}
	}
}

func tmuxWindowOpen(name string) bool {
	out, err := exec.Command("tmux", "list-windows", "-F", "#{window_name}").Output()
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == name {
			return true
		}
	}
	return false
}

// await joins a started process through a completion channel while watching
// the timeout and the caller's context. On expiry the process is killed and
// the wait drained so no live child remains.
func (r *Runner) await(ctx context.Context, job *Job, wait func() error, kill func()) error {
	done := make(chan error, 1)
	go func() { done <- wait() }()

	timer := time.NewTimer(job.Timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		kill()
		<-done
		return fmt.Errorf("pipeline: run cancelled: %w", ctx.Err())
	case <-timer.C:
		kill()
		<-done
		return fmt.Errorf("%w after %s", ErrTimeout, job.Timeout)
	case err := <-done:
		if err != nil {
			if _, ok := err.(*exec.ExitError); ok {
				// Non-zero exit; the caller reads the code from
				// ProcessState and decides what it means.
				return nil
			}
			return fmt.Errorf("pipeline: waiting for %s: %w", job.Op.Executable, err)
		}
		return nil
	}
}
