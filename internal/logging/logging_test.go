package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

func TestLogFilePath(t *testing.T) {
	tests := []struct {
		name    string
		logsDir string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "tplogs",
			want:    filepath.Join("tplogs", "thirdperson.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./tplogs",
			want:    filepath.Join(".", "tplogs", "thirdperson.20260212_213836.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "cs2"),
			want:    filepath.Join("/var", "log", "cs2", "thirdperson.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFilePath(tt.logsDir, "thirdperson", testTime)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenLogFile_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	f, err := OpenLogFile(dir, "thirdperson", testTime)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	_, err = f.WriteString("line\n")
	require.NoError(t, err)

	data, err := os.ReadFile(LogFilePath(dir, "thirdperson", testTime))
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}
