package auditlog

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSink_Write(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf)

	require.NoError(t, s.Write("alice", "Logout"))
	require.NoError(t, s.Write("", "Server started"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "- INFO - alice - Logout"), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "- INFO - Server started"), lines[1])
}

func TestSink_WriteFailure(t *testing.T) {
	s := New(failingWriter{})
	assert.Error(t, s.Write("alice", "Logout"))
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	s, err := Open(Config{Path: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	require.NoError(t, err)

	require.NoError(t, s.Write("root", "Accessed admin_panel"))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "root - Accessed admin_panel")
}
