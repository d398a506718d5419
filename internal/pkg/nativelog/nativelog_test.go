package nativelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTodayFilename(t *testing.T) {
	day := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "stdout_3-4-25.log", TodayFilename(day))
}

func TestResolveDir(t *testing.T) {
	t.Setenv(EnvLogDir, "")
	require.Equal(t, "/var/log/swot", ResolveDir("/var/log/swot"))
	require.Equal(t, filepath.Join(".", "logs"), ResolveDir(""))

	t.Setenv(EnvLogDir, "/tmp/override")
	require.Equal(t, "/tmp/override", ResolveDir("/var/log/swot"))
}

func TestWriter_AppendsToDailyFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	w, err := NewWriter(dir)
	require.NoError(t, err)

	day := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return day }

	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, TodayFilename(day)))
	require.NoError(t, err)
	require.Equal(t, "first\nsecond\n", string(data))
}
