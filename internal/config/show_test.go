package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEffective_Defaults(t *testing.T) {
	t.Parallel()

	r, err := resolve(DefaultConfig())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderEffective(r, &buf))

	out := buf.String()
	assert.Contains(t, out, "built-in defaults")
	assert.Contains(t, out, `destination        = "."`)
	assert.Contains(t, out, `dir_permissions    = "0755"`)
	assert.Contains(t, out, `chunk_size         = "15MiB"`)
	assert.Contains(t, out, `usb_timeout        = "0"`)
	assert.Contains(t, out, `watch_settle       = "3s"`)
}

func TestRenderEffective_RoundTrips(t *testing.T) {
	t.Parallel()

	r, err := resolve(DefaultConfig())
	require.NoError(t, err)

	r.ZeroPadDates = true
	r.ConfigPath = "/etc/ptp-ingest.toml"

	var buf bytes.Buffer
	require.NoError(t, RenderEffective(r, &buf))
	assert.True(t, strings.HasPrefix(buf.String(), "# Effective configuration (file: /etc/ptp-ingest.toml)"))

	path := filepath.Join(t.TempDir(), "rendered.toml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err, "rendered output must load as a config file")
	assert.True(t, cfg.ZeroPadDates)
	assert.Equal(t, "15MiB", cfg.ChunkSize)
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	var anything map[string]any
	_, err = toml.DecodeFile(path, &anything)
	require.NoError(t, err)
	assert.Empty(t, anything, "template keys are all commented out")

	err = WriteDefault(path)
	require.ErrorIs(t, err, ErrConfigExists)
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	for _, n := range []int64{0, 1, 1000, 1024, 15 << 20, 3 << 30, 1<<20 + 1} {
		got, err := ParseSize(FormatSize(n))
		require.NoError(t, err)
		assert.Equal(t, n, got, FormatSize(n))
	}

	assert.Equal(t, "15MiB", FormatSize(15<<20))
	assert.Equal(t, "1000", FormatSize(1000))
}
