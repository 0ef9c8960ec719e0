package record

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReadJSONLines(t *testing.T) {
	c, err := ReadJSONLines(strings.NewReader(`
{"_name":"ros2:callback_start","_timestamp":5,"callback":7,"is_intra_process":0}
# comment
{"_name":"ros2:callback_end","_timestamp":9,"callback":7}
`))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	start := c.Get(CallbackStart)[0]
	intra, ok := start.Bool("is_intra_process")
	require.True(t, ok)
	assert.False(t, intra)
}

func TestReadJSONLinesReportsLine(t *testing.T) {
	_, err := ReadJSONLines(strings.NewReader("{\"_name\":\"x\",\"_timestamp\":1}\n{oops}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadYAMLSequence(t *testing.T) {
	c, err := ReadYAML(strings.NewReader(`
- _name: ros2:rcl_timer_init
  _timestamp: 10
  timer_handle: 0xff
  period: 200000000
`))
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	h, _ := c.Get(RCLTimerInit)[0].Handle("timer_handle")
	assert.Equal(t, uint64(0xff), h)
}

func TestReadYAMLEmpty(t *testing.T) {
	c, err := ReadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestReadYAMLRejectsScalar(t *testing.T) {
	_, err := ReadYAML(strings.NewReader("hello"))
	assert.Error(t, err)
}

func TestLoadFilesMergesAndIgnores(t *testing.T) {
	paths := []string{
		filepath.Join("testdata", "talker.jsonl"),
		filepath.Join("testdata", "listener.yaml"),
	}

	c, err := LoadFiles(context.Background(), paths, LoadOptions{Logger: quietLogger()})
	require.NoError(t, err)

	assert.Equal(t, uint64(3), c.Discarded)
	assert.Len(t, c.Get(RCLNodeInit), 3)
	assert.Nil(t, c.Get("lttng_ust_statedump:start"))
}

func TestLoadFilesValidates(t *testing.T) {
	paths := []string{
		filepath.Join("testdata", "talker.jsonl"),
		filepath.Join("testdata", "listener.yaml"),
	}

	c, err := LoadFiles(context.Background(), paths, LoadOptions{
		Validate:    true,
		Concurrency: 1,
		Logger:      quietLogger(),
	})
	require.Error(t, err, "the second listener node record lacks required fields")
	assert.Len(t, multierr.Errors(err), 1)
	require.NotNil(t, c)
	assert.Len(t, c.Get(RCLNodeInit), 2)
}

func TestLoadFilesKeepsEverythingWithEmptyIgnore(t *testing.T) {
	c, err := LoadFiles(context.Background(),
		[]string{filepath.Join("testdata", "talker.jsonl")},
		LoadOptions{Ignore: []string{}, Logger: quietLogger()})
	require.NoError(t, err)
	assert.Len(t, c.Get("lttng_ust_statedump:start"), 1)
}

func TestLoadFilesMissingFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "ok.jsonl")
	require.NoError(t, os.WriteFile(good, []byte("\n"), 0o644))

	_, err := LoadFiles(context.Background(),
		[]string{good, filepath.Join(dir, "missing.jsonl")},
		LoadOptions{Logger: quietLogger()})
	assert.Error(t, err)
}
