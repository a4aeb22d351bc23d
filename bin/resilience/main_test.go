package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistentPostRun_InvokesTelemetryShutdown(t *testing.T) {
	invoked := 0
	telemetryShutdown = func(ctx context.Context) error {
		invoked++
		return nil
	}
	t.Cleanup(func() { telemetryShutdown = nil })

	require.NoError(t, rootCmd.PersistentPostRunE(rootCmd, nil))
	assert.Equal(t, 1, invoked)
	assert.Nil(t, telemetryShutdown, "shutdown must run at most once")

	require.NoError(t, rootCmd.PersistentPostRunE(rootCmd, nil))
	assert.Equal(t, 1, invoked)
}

func TestPersistentPostRun_NoTelemetryConfigured(t *testing.T) {
	telemetryShutdown = nil
	assert.NoError(t, rootCmd.PersistentPostRunE(rootCmd, nil))
}
