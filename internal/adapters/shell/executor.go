// Package shell provides the shell executor adapter used to invoke a Roblox
// sync-config generator and manifest-declared scripts.
package shell

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/pesde-pkg/pesde/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ScriptExecutor = (*Executor)(nil)

// Executor implements ports.ScriptExecutor using os/exec.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{logger: logger}
}

// Run executes command in dir, with env appended on top of the process's
// own environment (last write wins), streaming stdout/stderr to the logger.
func (e *Executor) Run(ctx context.Context, command []string, dir string, env []string) error {
	if len(command) == 0 {
		return nil
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...) //nolint:gosec // command comes from a manifest script or internal call site
	cmd.Dir = dir
	cmd.Env = append(append([]string{}, os.Environ()...), env...)
	cmd.Stdout = &logWriter{logger: e.logger, level: "info"}
	cmd.Stderr = &logWriter{logger: e.logger, level: "error"}

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return zerr.With(zerr.With(zerr.Wrap(err, "command failed"), "exit_code", exitCode), "command", strings.Join(command, " "))
	}
	return nil
}

type logWriter struct {
	logger ports.Logger
	level  string
}

func (w *logWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimSuffix(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		if w.level == "info" {
			w.logger.Info(line)
		} else {
			w.logger.Error(zerr.New(line))
		}
	}
	return len(p), nil
}
