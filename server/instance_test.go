package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wereliang/raftlog/log"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raftlog.yaml")
	err := os.WriteFile(path, []byte(`
log:
  level: debug
  json: true
server:
  addr: 127.0.0.1:0
memlog:
  floor: 4
  metrics: false
`), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "127.0.0.1:0", cfg.Server.Addr)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeoutMs)
	assert.EqualValues(t, 4, cfg.MemLog.Floor)
	assert.False(t, cfg.MemLog.Metrics)

	cfg, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [unclosed"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config "+path)
	assert.NotEqual(t, err, errors.Cause(err), "the yaml error is kept as cause")

	_, err = LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config "+dir)
}

func TestConfigCheck(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "loud"}}
	assert.Error(t, cfg.Check())

	cfg = &Config{MemLog: MemLogConfig{Floor: -1}}
	assert.Error(t, cfg.Check())

	cfg = &Config{}
	require.NoError(t, cfg.Check())
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
}

func TestInstance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.MemLog.Floor = 2

	ins, err := NewInstance(cfg)
	require.NoError(t, err)
	require.NoError(t, ins.Start())
	defer ins.Stop()

	floor, err := ins.Log().Floor().Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, floor)

	_, err = ins.Log().Append(log.NewNoOpEntry(1)).Result()
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("http://%s/state", ins.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Value State `json:"value"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.EqualValues(t, 0, body.Value.LastIndex)
	assert.EqualValues(t, 2, body.Value.Floor)

	metrics, err := http.Get(fmt.Sprintf("http://%s/metrics", ins.Addr()))
	require.NoError(t, err)
	metrics.Body.Close()
	assert.Equal(t, http.StatusOK, metrics.StatusCode)
}
