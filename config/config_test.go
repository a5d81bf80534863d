package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/manifest_submit/config"
)

func writeTemp(
	tb testing.TB,
	name string,
	content string,
) string {
	tb.Helper()

	pa := filepath.Join(tb.TempDir(), name)
	require.NoError(tb, os.WriteFile(pa, []byte(content), 0o600))

	return pa
}

const yamlConfig = `owner: microsoft
name: winget-pkgs
fork_owner: alice
manifest_root: /manifests/
retry:
  max_attempts: 7
  base_delay: 500ms
  max_delay: 30s
labels:
  - automated
templates:
  title: "{{identifier}} {{version}}"
  variables:
    - ticket=42
`

const tomlConfig = `owner = "microsoft"
name = "winget-pkgs"
create_fork = true
requests_per_second = 2.5
commit_attempts = 4

[retry]
base_delay = "2s"
max_delay = "1m"

[templates]
body = "@body.md"
`

const jsonConfig = `{
  "owner": "microsoft",
  "name": "winget-pkgs",
  "amend": true,
  "draft": true,
  "depth": 3
}`

func TestLoad_formats(t *testing.T) {
	t.Parallel()

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()

		cfg, err := config.Load(writeTemp(t, "c.yaml", yamlConfig))

		require.NoError(t, err)
		assert.Equal(t, "microsoft", cfg.Owner)
		assert.Equal(t, "alice", cfg.ForkOwner)
		assert.Equal(t, "manifests", cfg.ManifestRoot)
		assert.Equal(t, 7, cfg.Retry.MaxAttempts)
		assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay.Std())
		assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay.Std())
		assert.Equal(t, []string{"automated"}, cfg.Labels)
		assert.Equal(t, "{{identifier}} {{version}}", cfg.Templates.Title)
		assert.Equal(t, []string{"ticket=42"}, cfg.Templates.Variables)
		assert.Equal(t, 3, cfg.CommitAttempts)
	})

	t.Run("toml", func(t *testing.T) {
		t.Parallel()

		cfg, err := config.Load(writeTemp(t, "c.toml", tomlConfig))

		require.NoError(t, err)
		assert.True(t, cfg.CreateFork)
		assert.InDelta(t, 2.5, cfg.RequestsPerSecond, 0)
		assert.Equal(t, 4, cfg.CommitAttempts)
		assert.Equal(t, 5, cfg.Retry.MaxAttempts)
		assert.Equal(t, 2*time.Second, cfg.Retry.BaseDelay.Std())
		assert.Equal(t, "@body.md", cfg.Templates.Body)
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		cfg, err := config.Load(writeTemp(t, "c.json", jsonConfig))

		require.NoError(t, err)
		assert.True(t, cfg.Amend)
		assert.True(t, cfg.Draft)
		assert.Equal(t, 3, cfg.Depth)
		assert.Equal(t, 1<<20, cfg.MaxTextSize)
	})
}

func TestLoad_depth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
		want    int
	}{
		{
			name:    "absent keeps default",
			file:    "c.yaml",
			content: "owner: microsoft\nname: winget-pkgs\n",
			want:    2,
		},
		{
			name:    "zero means no limit",
			file:    "c.yaml",
			content: "owner: microsoft\nname: winget-pkgs\ndepth: 0\n",
			want:    0,
		},
		{
			name:    "zero in toml",
			file:    "c.toml",
			content: "owner = \"microsoft\"\nname = \"winget-pkgs\"\ndepth = 0\n",
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := config.Load(writeTemp(t, tt.file, tt.content))

			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Depth)
		})
	}
}

func TestLoad_errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{
			name:    "unsupported extension",
			file:    "c.ini",
			content: "owner=x",
			want:    `unsupported config format ".ini"`,
		},
		{
			name:    "bad duration",
			file:    "c.yaml",
			content: "owner: a\nname: b\nretry:\n  base_delay: soon\n",
			want:    "parsing duration",
		},
		{
			name:    "missing repository",
			file:    "c.json",
			content: "{}",
			want:    "owner and name must be set",
		},
		{
			name:    "negative",
			file:    "c.toml",
			content: "owner = \"a\"\nname = \"b\"\nconcurrency = -1\n",
			want:    "must not be negative",
		},
		{
			name: "inverted delays",
			file: "c.yaml",
			content: "owner: a\nname: b\nretry:\n" +
				"  base_delay: 2m\n  max_delay: 1m\n",
			want: "base_delay exceeds max_delay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Load(writeTemp(t, tt.file, tt.content))

			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_missing_file(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))

	assert.ErrorContains(t, err, "loading config")
}

func TestDuration_MarshalText(t *testing.T) {
	t.Parallel()

	got, err := config.Duration(90 * time.Second).MarshalText()

	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(got))
}
