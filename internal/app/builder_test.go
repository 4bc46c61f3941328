package app_test

import (
	"testing"

	"github.com/pesde-pkg/pesde/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewComponents_WiresAllThree(t *testing.T) {
	a := app.New(&fakeManifests{}, &fakeLockfiles{}, nil, nil, nil, nil, nil, noopLogger{})
	logger := noopLogger{}
	scripts := &fakeScripts{}

	components := app.NewComponents(a, logger, scripts)

	require.NotNil(t, components)
	assert.Same(t, a, components.App)
	assert.Equal(t, logger, components.Logger)
	assert.Same(t, scripts, components.Scripts)
}
