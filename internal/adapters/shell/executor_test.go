package shell_test

import (
	"context"
	"testing"

	"github.com/pesde-pkg/pesde/internal/adapters/logger"
	"github.com/pesde-pkg/pesde/internal/adapters/shell"
	"github.com/stretchr/testify/require"
)

func TestExecutorRunSucceeds(t *testing.T) {
	exec := shell.NewExecutor(logger.New())
	err := exec.Run(context.Background(), []string{"true"}, t.TempDir(), nil)
	require.NoError(t, err)
}

func TestExecutorRunPropagatesExitCode(t *testing.T) {
	exec := shell.NewExecutor(logger.New())
	err := exec.Run(context.Background(), []string{"false"}, t.TempDir(), nil)
	require.Error(t, err)
}

func TestExecutorRunEmptyCommandIsNoop(t *testing.T) {
	exec := shell.NewExecutor(logger.New())
	err := exec.Run(context.Background(), nil, t.TempDir(), nil)
	require.NoError(t, err)
}
