package logger_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/inkmark/inkmark/pkg/logger"
)

func TestLogToBuffer(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	out, err := logger.New().FromBuffer(buff).Make()
	require.NoError(t, err)
	require.NotNil(t, out)

	require.Equal(t, 0, buff.Len())
	out.Logger.Info().Msg("highlight created")
	require.Contains(t, buff.String(), "highlight created")
}

func TestLogLevelFilters(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	out, err := logger.New().FromBuffer(buff).WithLevel(zerolog.WarnLevel).Make()
	require.NoError(t, err)

	out.Logger.Debug().Msg("suppressed")
	require.Equal(t, 0, buff.Len())

	out.Logger.Warn().Msg("cache pressure")
	require.Contains(t, buff.String(), "cache pressure")
}
