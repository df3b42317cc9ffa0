package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestNewDevelopmentLogger confirms the development logger builds and logs.
func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true, "debug")
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Debug("development logger ready")
}

// TestNewProductionLogger ensures the production configuration succeeds with
// the default level.
func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false, "")
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New(false, "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func TestSessionWritesJSONLines(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "logs")
	sess, err := NewSessionIn(zap.NewNop(), dir, "abc-123")
	require.NoError(t, err)

	sess.Info("login succeeded", zap.String("client_id", "alice"))
	require.NoError(t, sess.Close())

	assert.Equal(t, filepath.Join(dir, "abc-123.log"), sess.Path())
	assert.Equal(t, dir, sess.Dir())
	assert.Equal(t, "abc-123", sess.ID())

	data, err := os.ReadFile(sess.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "login succeeded", entry["msg"])
	assert.Equal(t, "alice", entry["client_id"])
	assert.Equal(t, "abc-123", entry["session_id"])
}
