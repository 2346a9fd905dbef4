package fecore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogStreamRawPrint(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogStream(&buf)

	s.Print("banner line\n")
	s.Printf("version %s\n", "1.0")

	assert.Equal(t, "banner line\nversion 1.0\n", buf.String(), "raw prints bypass the formatter")
}

func TestLogStreamLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogStream(&buf)
	s.SetLevel(log.WarnLevel)

	s.Infof("quiet")
	s.Warnf("loud")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
}

func TestLogStreamFileDuplication(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogStream(&buf)

	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, s.AttachFile(path))
	require.Error(t, s.AttachFile(path), "only one file may be attached")

	s.Infof("to both")
	require.NoError(t, s.Close())

	s.Infof("screen only")

	fileContent, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(fileContent), "to both")
	assert.NotContains(t, string(fileContent), "screen only")
	assert.Contains(t, buf.String(), "screen only")
}
