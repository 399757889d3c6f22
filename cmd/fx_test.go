package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/event-broker/config"
	"go.uber.org/fx"
)

func TestNewApp_GraphResolves(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)

	assert.NoError(t, fx.ValidateApp(appOptions(cfg)...))
}
