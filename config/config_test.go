package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/vidterm/config"
	"go.jacobcolvin.com/vidterm/frames"
	"go.jacobcolvin.com/vidterm/log"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func newFlags(t *testing.T, args ...string) (*config.Config, *pflag.FlagSet) {
	t.Helper()

	cfg := config.NewConfig()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.RegisterFlags(flags)

	require.NoError(t, flags.Parse(args))

	return cfg, flags
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg, _ := newFlags(t)

	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8, cfg.FPS)
	assert.Equal(t, 3, cfg.Padding)
	assert.Equal(t, "bmp", cfg.Ext)
	assert.Equal(t, "mono", cfg.Format)
	assert.Equal(t, "auto", cfg.Decoder)
	assert.Equal(t, ".env", cfg.EnvFile)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.MaxFailures)

	pc := cfg.PlayerConfig()
	assert.Equal(t, 8, pc.FPS)
	assert.Zero(t, pc.Limit)
}

func TestShorthands(t *testing.T) {
	t.Parallel()

	cfg, _ := newFlags(t, "-f", "12", "-c", "-v", "-r")

	assert.Equal(t, 12, cfg.FPS)
	assert.True(t, cfg.Convert)
	assert.True(t, cfg.Log.Verbose)
	assert.True(t, cfg.Headers)
	assert.Equal(t, string(log.LevelDebug), cfg.Log.EffectiveLevel())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tcs := map[string][]string{
		"zero fps":            {"--fps", "0"},
		"negative fps":        {"--fps", "-3"},
		"padding too small":   {"--padding", "0"},
		"padding too large":   {"--padding", "10"},
		"max frames too high": {"--max-frames", "1000"},
		"max frames padding":  {"--padding", "2", "--max-frames", "100"},
		"negative max frames": {"--max-frames", "-1"},
		"negative retries":    {"--retries", "-1"},
		"negative rate":       {"--rate", "-0.5"},
		"negative failures":   {"--max-failures", "-2"},
		"negative timeout":    {"--timeout", "-1s"},
		"empty ext":           {"--ext", ""},
		"unknown decoder":     {"--decoder", "vlc"},
		"verbose and silent":  {"-v", "-s"},
		"unknown log level":   {"--log-level", "loud"},
	}

	for name, args := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg, _ := newFlags(t, args...)

			require.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
		})
	}
}

func TestValidateAcceptsBounds(t *testing.T) {
	t.Parallel()

	cfg, _ := newFlags(t, "--max-frames", "999", "--max-failures", "0", "--rate", "2.5", "-s")

	require.NoError(t, cfg.Validate())
}

func TestValidateReportsCause(t *testing.T) {
	t.Parallel()

	cfg, _ := newFlags(t, "-v", "-s")

	err := cfg.Validate()
	require.ErrorIs(t, err, config.ErrInvalidConfig)
	require.ErrorIs(t, err, log.ErrConflictingVerbosity)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "vidterm.yaml", `
fps: 12
maxFrames: 240
timeout: 5s
rate: 1.5
audioPlayer: mpv
logFormat: logfmt
silent: true
mute: true
`)

	cfg, flags := newFlags(t, "--fps", "24")

	require.NoError(t, cfg.LoadFile(path, flags))

	assert.Equal(t, 24, cfg.FPS, "flags set on the command line win")
	assert.Equal(t, 240, cfg.MaxFrames)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.InDelta(t, 1.5, cfg.Rate, 0)
	assert.Equal(t, "mpv", cfg.AudioPlayer)
	assert.Equal(t, "logfmt", cfg.Log.Format)
	assert.True(t, cfg.Log.Silent)
	assert.True(t, cfg.Mute)
	assert.Equal(t, "bmp", cfg.Ext, "unset keys keep their defaults")

	require.NoError(t, cfg.Validate())
}

func TestLoadFileFlagsWin(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "vidterm.yaml", `
rate: 1.5
mute: true
endpoint: http://file.example
padding: 4
`)

	cfg, flags := newFlags(t, "--rate", "3", "--mute=false", "--endpoint", "http://flag.example", "--padding", "2")

	require.NoError(t, cfg.LoadFile(path, flags))

	assert.InDelta(t, 3, cfg.Rate, 0)
	assert.False(t, cfg.Mute)
	assert.Equal(t, "http://flag.example", cfg.Endpoint)
	assert.Equal(t, 2, cfg.Padding)
}

func TestLoadFileErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]string{
		"unknown key":  "frames_per_second: 3\n",
		"wrong type":   "fps: fast\n",
		"bad duration": "timeout: soon\n",
	}

	for name, content := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()

			err := cfg.LoadFile(writeFile(t, "vidterm.yaml", content), nil)
			require.ErrorIs(t, err, config.ErrReadConfig)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()

		err := cfg.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), nil)
		require.ErrorIs(t, err, config.ErrReadConfig)
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestSequence(t *testing.T) {
	t.Parallel()

	cfg, _ := newFlags(t, "--padding", "4", "--ext", "png")

	seq, err := cfg.Sequence(filepath.Join("videos", "clip.mp4"))
	require.NoError(t, err)

	path, err := seq.Path(7)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("clip", "0007.png"), path)

	_, err = cfg.Sequence(filepath.Join("videos", ".mp4"))
	require.ErrorIs(t, err, config.ErrInvalidConfig)
	require.ErrorIs(t, err, frames.ErrNoName)
}

// LoadSecret reads the process environment, so these tests do not run in
// parallel.
func TestLoadSecret(t *testing.T) {
	t.Run("from env file", func(t *testing.T) {
		t.Setenv(config.SecretKey, "")

		path := writeFile(t, ".env", config.SecretKey+"=from-file\n")

		secret, err := config.LoadSecret(path)
		require.NoError(t, err)
		assert.Equal(t, "from-file", secret)
	})

	t.Run("environment wins", func(t *testing.T) {
		t.Setenv(config.SecretKey, "from-env")

		path := writeFile(t, ".env", config.SecretKey+"=from-file\n")

		secret, err := config.LoadSecret(path)
		require.NoError(t, err)
		assert.Equal(t, "from-env", secret)
	})

	t.Run("missing env file", func(t *testing.T) {
		t.Setenv(config.SecretKey, "from-env")

		secret, err := config.LoadSecret(filepath.Join(t.TempDir(), ".env"))
		require.NoError(t, err)
		assert.Equal(t, "from-env", secret)
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv(config.SecretKey, "")

		path := writeFile(t, ".env", "OTHER=1\n")

		_, err := config.LoadSecret(path)
		require.ErrorIs(t, err, config.ErrMissingSecret)
	})
}
