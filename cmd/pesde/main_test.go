package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalManifest = `name = "acme/widget"
version = "1.0.0"

[target]
environment = "luau"
`

func TestRun(t *testing.T) {
	originalArgs := os.Args
	defer func() { os.Args = originalArgs }()

	originalWd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(originalWd) }()

	tests := []struct {
		name         string
		setup        func(tmpDir string)
		args         []string
		expectedExit int
	}{
		{
			name: "version succeeds with a valid manifest present",
			setup: func(tmpDir string) {
				require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "pesde.toml"), []byte(minimalManifest), 0o644))
			},
			args:         []string{"pesde", "version"},
			expectedExit: 0,
		},
		{
			name:         "no manifest fails wiring during the workspace discovery node",
			setup:        func(tmpDir string) {},
			args:         []string{"pesde", "version"},
			expectedExit: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			tt.setup(tmpDir)
			require.NoError(t, os.Chdir(tmpDir))

			os.Args = tt.args
			exitCode := run()
			assert.Equal(t, tt.expectedExit, exitCode)
		})
	}
}
