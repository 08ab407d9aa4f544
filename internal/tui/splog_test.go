package tui_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"cascade.dev/cascade/internal/tui"
)

func TestSplog(t *testing.T) {
	t.Setenv("DEBUG", "")

	t.Run("console output has no prefixes", func(t *testing.T) {
		var buf bytes.Buffer
		splog := tui.NewSplog(&buf, false)
		splog.Info("restacked %s", "b")
		splog.Debug("hidden")
		splog.Warn("careful")
		require.Equal(t, "restacked b\n⚠️  careful\n", buf.String())
	})

	t.Run("debug shows structured attributes", func(t *testing.T) {
		var buf bytes.Buffer
		splog := tui.NewSplog(&buf, true)
		splog.Logger().Debug("cascade step", "branch", "b", "commits", 2)
		require.Equal(t, "cascade step branch=b commits=2\n", buf.String())
	})

	t.Run("file log records every level", func(t *testing.T) {
		var buf bytes.Buffer
		path := filepath.Join(t.TempDir(), "logs", "cascade.log")
		splog, err := tui.NewSplogWithConfig(&buf, false, path)
		require.NoError(t, err)
		splog.Debug("only in file")
		splog.Info("everywhere")
		require.NoError(t, splog.Close())

		require.Equal(t, "everywhere\n", buf.String())
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Contains(t, string(data), "only in file")
		require.Contains(t, string(data), "level=DEBUG")
		require.Contains(t, string(data), "everywhere")
	})
}

func TestLogFilePath(t *testing.T) {
	t.Setenv("CASCADE_LOG_FILE", "")
	require.Equal(t, filepath.Join("/repo/.git", tui.LogFileName), tui.LogFilePath("/repo/.git"))
	require.Equal(t, "", tui.LogFilePath(""))

	t.Setenv("CASCADE_LOG_FILE", "/tmp/custom.log")
	require.Equal(t, "/tmp/custom.log", tui.LogFilePath("/repo/.git"))
}
