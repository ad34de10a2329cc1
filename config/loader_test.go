/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testServerConfig struct {
	Addr    string
	Timeout time.Duration
	Tags    []string
}

func (c *testServerConfig) KeyPrefix() string {
	return "server"
}

func (c *testServerConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("addr", ":8080")
	dp.SetDefault("timeout", "30s")
}

func (c *testServerConfig) Set(dp DataProvider) error {
	var err error
	if c.Addr, err = dp.GetString("addr"); err != nil {
		return err
	}
	if c.Timeout, err = dp.GetDuration("timeout"); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return dp.WrapKeyErr("timeout", errors.New("must be non-negative"))
	}
	if c.Tags, err = dp.GetStringSlice("tags"); err != nil {
		return err
	}
	return nil
}

type testStorageConfig struct {
	Mode    string
	MaxSize ByteSize
}

func (c *testStorageConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("storage.mode", "memory")
	dp.SetDefault("storage.maxSize", "64M")
}

func (c *testStorageConfig) Set(dp DataProvider) error {
	var err error
	if c.Mode, err = dp.GetStringFromSet("storage.mode", []string{"memory", "disk"}, true); err != nil {
		return err
	}
	if c.MaxSize, err = dp.GetByteSize("storage.maxSize"); err != nil {
		return err
	}
	return nil
}

func TestLoader_LoadFromReader(t *testing.T) {
	t.Run("defaults are used when nothing is set", func(t *testing.T) {
		serverCfg, storageCfg := &testServerConfig{}, &testStorageConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, serverCfg, storageCfg)
		require.NoError(t, err)
		require.Equal(t, ":8080", serverCfg.Addr)
		require.Equal(t, 30*time.Second, serverCfg.Timeout)
		require.Empty(t, serverCfg.Tags)
		require.Equal(t, "memory", storageCfg.Mode)
		require.Equal(t, ByteSize(64*1024*1024), storageCfg.MaxSize)
	})

	t.Run("values from json", func(t *testing.T) {
		cfgData := `{
			"server": {"addr": ":9090", "timeout": "1m", "tags": ["a", "b"]},
			"storage": {"mode": "DISK", "maxSize": 1024}
		}`
		serverCfg, storageCfg := &testServerConfig{}, &testStorageConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(cfgData), DataTypeJSON, serverCfg, storageCfg)
		require.NoError(t, err)
		require.Equal(t, ":9090", serverCfg.Addr)
		require.Equal(t, time.Minute, serverCfg.Timeout)
		require.Equal(t, []string{"a", "b"}, serverCfg.Tags)
		require.Equal(t, "DISK", storageCfg.Mode)
		require.Equal(t, ByteSize(1024), storageCfg.MaxSize)
	})

	t.Run("values from yaml", func(t *testing.T) {
		cfgData := `
server:
  addr: 127.0.0.1:80
storage:
  maxSize: 2Mi
`
		serverCfg, storageCfg := &testServerConfig{}, &testStorageConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(cfgData), DataTypeYAML, serverCfg, storageCfg)
		require.NoError(t, err)
		require.Equal(t, "127.0.0.1:80", serverCfg.Addr)
		require.Equal(t, ByteSize(2*1024*1024), storageCfg.MaxSize)
	})

	t.Run("errors contain the full key", func(t *testing.T) {
		tests := []struct {
			name   string
			data   string
			errMsg string
		}{
			{"invalid duration", `{"server": {"timeout": "soon"}}`, "server.timeout: "},
			{"negative duration", `{"server": {"timeout": "-1s"}}`, "server.timeout: must be non-negative"},
			{"unknown mode", `{"storage": {"mode": "tape"}}`, `storage.mode: unknown value "tape"`},
			{"invalid size", `{"storage": {"maxSize": "a lot"}}`, "storage.maxSize: invalid byte size format"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := NewLoader(NewViperAdapter()).LoadFromReader(
					bytes.NewBufferString(tt.data), DataTypeJSON, &testServerConfig{}, &testStorageConfig{})
				require.ErrorContains(t, err, tt.errMsg)
			})
		}
	})

	t.Run("malformed document", func(t *testing.T) {
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{`), DataTypeJSON, &testServerConfig{})
		require.Error(t, err)
	})
}

func TestLoader_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":7070\"\n"), 0o600))

	serverCfg := &testServerConfig{}
	require.NoError(t, NewLoader(NewViperAdapter()).LoadFromFile(path, DataTypeYAML, serverCfg))
	require.Equal(t, ":7070", serverCfg.Addr)

	err := NewLoader(NewViperAdapter()).LoadFromFile(filepath.Join(t.TempDir(), "missing.yml"), DataTypeYAML, serverCfg)
	require.Error(t, err)
}

func TestNewDefaultLoader_EnvVars(t *testing.T) {
	t.Setenv("CACHEKIT_SERVER_ADDR", ":6060")
	t.Setenv("CACHEKIT_STORAGE_MODE", "disk")

	serverCfg, storageCfg := &testServerConfig{}, &testStorageConfig{}
	err := NewDefaultLoader("cachekit").LoadFromReader(
		bytes.NewBufferString(`{"server": {"addr": ":9090"}}`), DataTypeJSON, serverCfg, storageCfg)
	require.NoError(t, err)
	require.Equal(t, ":6060", serverCfg.Addr)
	require.Equal(t, "disk", storageCfg.Mode)
}
