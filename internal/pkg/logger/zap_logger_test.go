package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolatedLoggerWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "socket.log")
	l := NewIsolatedLogger(path)

	l.Info("Hub", "member joined", map[string]interface{}{"room": "chat_1_abc"})
	l.Error("Hub", "publish failed", map[string]interface{}{"error": errors.New("redis down")})
	l.Debug("Hub", "below file level", nil)
	require.NoError(t, l.Sync())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		lines = append(lines, entry)
	}

	require.Len(t, lines, 2)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "member joined", lines[0]["message"])
	assert.Equal(t, "Hub", lines[0]["module"])
	assert.Contains(t, lines[0], "timestamp")
	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, "redis down", lines[1]["error"])
}

func TestNopLoggerAcceptsNilDetails(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Info("Test", "nothing", nil)
		l.Warn("Test", "nothing", nil)
		l.Error("Test", "nothing", nil)
	})
}
