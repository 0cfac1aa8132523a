package mlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesToFile(t *testing.T) {
	location := filepath.Join(t.TempDir(), "vinumd.log")
	require.NoError(t, Init(location))
	defer Init("stderr")

	logger := GetPackageLogger("app/vinumd/usecase/state")
	GetMethodLogger(logger, "Machine.SetDriveState").Info("drive d0 is up")

	b, err := os.ReadFile(location)
	require.NoError(t, err)

	line := string(b)
	assert.True(t, strings.Contains(line, "drive d0 is up"), line)
	assert.True(t, strings.Contains(line, "package=app/vinumd/usecase/state"), line)
	assert.True(t, strings.Contains(line, "method=Machine.SetDriveState"), line)
}

func TestNilEntry(t *testing.T) {
	assert.NotNil(t, GetMethodLogger(nil, "Machine.Load"))
	assert.NotNil(t, GetFunctionLogger(nil, "lock"))
}

func TestInitBadLocation(t *testing.T) {
	assert.Error(t, Init(filepath.Join(t.TempDir(), "missing", "vinumd.log")))
}
