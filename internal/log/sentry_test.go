package log

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitSentryWithoutDSN(t *testing.T) {
	logger := logrus.New()

	hub, flush, err := InitSentry(logger, SentrySettings{})
	require.NoError(t, err)
	assert.Nil(t, hub)
	require.NotNil(t, flush)
	flush()

	for _, hooks := range logger.Hooks {
		assert.Empty(t, hooks)
	}
}

func TestInitSentryRejectsInvalidDSN(t *testing.T) {
	_, _, err := InitSentry(logrus.New(), SentrySettings{DSN: "not a dsn"})
	assert.Error(t, err)
}

func TestInitSentryInstallsHook(t *testing.T) {
	logger := logrus.New()

	hub, flush, err := InitSentry(logger, SentrySettings{DSN: "https://public@example.com/1", Environment: "test"})
	require.NoError(t, err)
	require.NotNil(t, hub)
	defer flush()

	assert.NotEmpty(t, logger.Hooks[logrus.ErrorLevel])
	assert.Empty(t, logger.Hooks[logrus.InfoLevel])
}
