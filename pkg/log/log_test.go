package log

import (
	"testing"

	logrus "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureHook(t *testing.T) *test.Hook {
	t.Helper()
	hook := test.NewGlobal()
	t.Cleanup(func() { hook.Reset() })
	return hook
}

func TestInfo_KeepsPercentSignsVerbatim(t *testing.T) {
	hook := captureHook(t)

	Info("recovery success rate 100% against a 90% criterion")

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "recovery success rate 100% against a 90% criterion", hook.LastEntry().Message)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}

func TestInfof_FormatsArguments(t *testing.T) {
	hook := captureHook(t)

	Infof("[Inject]: Injecting %v at intensity %.1f", "network-latency", 0.5)

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "[Inject]: Injecting network-latency at intensity 0.5", hook.LastEntry().Message)
}

func TestInfoWithValues_CarriesFields(t *testing.T) {
	hook := captureHook(t)

	InfoWithValues("scenario finished", map[string]interface{}{
		"scenarioID": "s-1",
		"verdict":    "passed",
	})

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "s-1", hook.LastEntry().Data["scenarioID"])
	assert.Equal(t, "passed", hook.LastEntry().Data["verdict"])
}
