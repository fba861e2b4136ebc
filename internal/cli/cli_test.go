package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/sparkify-etl/internal/config"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		defEnv   string
		want     Options
		wantDone bool
		wantErr  bool
	}{
		{name: "defaults", want: Options{Config: "./config.json"}},
		{name: "config and env", args: []string{"--config", "/etc/sparkify.yaml", "--env", "DB"}, want: Options{Config: "/etc/sparkify.yaml", Env: "DB"}},
		{name: "help", args: []string{"--help"}, wantDone: true, want: Options{Config: "./config.json"}},
		{name: "unknown flag", args: []string{"--nope"}, wantErr: true, want: Options{Config: "./config.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts Options
			done, err := Parse(&opts, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDone, done)
			if !done {
				assert.Equal(t, tt.want, opts)
			}
		})
	}
}

func TestParse_EmbeddedOptions(t *testing.T) {
	var opts struct {
		Options
		Summary bool `long:"summary"`
	}
	_, err := Parse(&opts, []string{"--summary", "--env", "INFO"})
	require.NoError(t, err)
	assert.True(t, opts.Summary)
	assert.Equal(t, "INFO", opts.Env)
}

func TestAnnounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"DEFAULT": {"LOG_FILE": "etl.log"}, "DB": {}}`), 0o600))

	cfg, err := config.Load(path, "DEFAULT")
	require.NoError(t, err)
	var buf bytes.Buffer
	Announce(&buf, "pipeline", cfg, "etl.log")
	assert.Equal(t, "Running pipeline - check etl.log\n", buf.String())

	cfg, err = config.Load(path, "DB")
	require.NoError(t, err)
	buf.Reset()
	Announce(&buf, "create_tables", cfg, "db.log")
	assert.Equal(t, "Running create_tables - check stderr\n", buf.String())
}

func TestAnnounce_UnreadableConfig(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.json"), "DB")
	require.Error(t, err)
	require.Nil(t, cfg)

	var buf bytes.Buffer
	Announce(&buf, "create_tables", cfg, "db.log")
	assert.Equal(t, "Running create_tables - check db.log\n", buf.String())
}
