package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")

	log, closer, err := New("debug", path)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("stage", "targets").Info("stage complete")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stage complete")
	assert.Contains(t, string(data), "stage=targets")
}

func TestNew_UnknownLevel(t *testing.T) {
	log, closer, err := New("chatty", "")
	require.NoError(t, err)
	defer closer.Close()
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}
