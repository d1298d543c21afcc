package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/vidterm/log"
)

func TestParse(t *testing.T) {
	t.Parallel()

	levels := map[string]struct {
		want log.Level
		err  bool
	}{
		"warning": {want: log.LevelWarn},
		"DEBUG":   {want: log.LevelDebug},
		"loud":    {err: true},
	}

	for input, tc := range levels {
		t.Run("level "+input, func(t *testing.T) {
			t.Parallel()

			got, err := log.ParseLevel(input)
			if tc.err {
				require.ErrorIs(t, err, log.ErrUnknownLogLevel)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	formats := map[string]struct {
		want log.Format
		err  bool
	}{
		"Text":   {want: log.FormatText},
		"logfmt": {want: log.FormatLogfmt},
		"xml":    {err: true},
	}

	for input, tc := range formats {
		t.Run("format "+input, func(t *testing.T) {
			t.Parallel()

			got, err := log.ParseFormat(input)
			if tc.err {
				require.ErrorIs(t, err, log.ErrUnknownLogFormat)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewHandler(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		check  func(t *testing.T, out string)
		format log.Format
	}{
		"text": {
			format: log.FormatText,
			check: func(t *testing.T, out string) {
				t.Helper()

				assert.Regexp(t, `\d{2}:\d{2}:\d{2}`, out)
				assert.Contains(t, out, "INFO")
				assert.Contains(t, out, "set terminal to 100x56")
				assert.Contains(t, out, "frame")
				assert.NotContains(t, out, "{")
				assert.NotContains(t, out, "source=")
			},
		},
		"json": {
			format: log.FormatJSON,
			check: func(t *testing.T, out string) {
				t.Helper()

				var rec map[string]any

				require.NoError(t, json.Unmarshal([]byte(out), &rec))
				assert.Equal(t, "set terminal to 100x56", rec["msg"])
				assert.InDelta(t, 7, rec["frame"], 0)
				assert.Contains(t, rec, slog.SourceKey)
			},
		},
		"logfmt": {
			format: log.FormatLogfmt,
			check: func(t *testing.T, out string) {
				t.Helper()

				assert.Contains(t, out, `msg="set terminal to 100x56"`)
				assert.Contains(t, out, "frame=7")
				assert.Contains(t, out, "source=")
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			logger := slog.New(log.NewHandler(&buf, log.LevelInfo, tc.format))
			logger.Debug("trying to scale")
			logger.Info("set terminal to 100x56", slog.Int("frame", 7))

			assert.NotContains(t, buf.String(), "trying to scale")
			tc.check(t, buf.String())
		})
	}
}

func TestNewHandlerFromStrings(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	_, err := log.NewHandlerFromStrings(&buf, "loud", "text")
	require.ErrorIs(t, err, log.ErrInvalidArgument)
	require.ErrorIs(t, err, log.ErrUnknownLogLevel)

	_, err = log.NewHandlerFromStrings(&buf, "info", "xml")
	require.ErrorIs(t, err, log.ErrInvalidArgument)
	require.ErrorIs(t, err, log.ErrUnknownLogFormat)

	h, err := log.NewHandlerFromStrings(&buf, "WARNING", "json")
	require.NoError(t, err)
	assert.False(t, h.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, h.Enabled(t.Context(), slog.LevelWarn))
}

// TestConfig parses command-line flags the way cmd/vidterm registers them and
// checks which records the resulting handler lets through.
func TestConfig(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err   error
		args  []string
		level string
		// enabled lists debug, info, warn, error.
		enabled [4]bool
	}{
		"defaults": {
			level:   "info",
			enabled: [4]bool{false, true, true, true},
		},
		"verbose": {
			args:    []string{"-v"},
			level:   "debug",
			enabled: [4]bool{true, true, true, true},
		},
		"silent": {
			args:    []string{"--silent"},
			level:   "error",
			enabled: [4]bool{false, false, false, true},
		},
		"silent overrides level": {
			args:    []string{"-s", "--log-level", "debug"},
			level:   "error",
			enabled: [4]bool{false, false, false, true},
		},
		"explicit level": {
			args:    []string{"--log-level", "warn", "--log-format", "json"},
			level:   "warn",
			enabled: [4]bool{false, false, true, true},
		},
		"verbose and silent": {
			args: []string{"-v", "-s"},
			err:  log.ErrConflictingVerbosity,
		},
		"unknown level": {
			args: []string{"--log-level", "loud"},
			err:  log.ErrUnknownLogLevel,
		},
		"unknown format": {
			args: []string{"--log-format", "xml"},
			err:  log.ErrUnknownLogFormat,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := log.NewConfig()

			cmd := &cobra.Command{Use: "vidterm"}
			cfg.RegisterFlags(cmd.Flags())
			require.NoError(t, cmd.Flags().Parse(tc.args))

			h, err := cfg.NewHandler(&bytes.Buffer{})
			if tc.err != nil {
				require.ErrorIs(t, cfg.Validate(), tc.err)
				require.ErrorIs(t, err, tc.err)

				return
			}

			require.NoError(t, cfg.Validate())
			require.NoError(t, err)
			assert.Equal(t, tc.level, cfg.EffectiveLevel())

			ctx := t.Context()
			got := [4]bool{
				h.Enabled(ctx, slog.LevelDebug),
				h.Enabled(ctx, slog.LevelInfo),
				h.Enabled(ctx, slog.LevelWarn),
				h.Enabled(ctx, slog.LevelError),
			}
			assert.Equal(t, tc.enabled, got)
		})
	}
}

func TestConfigCustomFlags(t *testing.T) {
	t.Parallel()

	cfg := log.Flags{Level: "level", Format: "format"}.NewConfig()

	cmd := &cobra.Command{Use: "vidterm"}
	cfg.RegisterFlags(cmd.Flags())

	assert.NotNil(t, cmd.Flags().Lookup("level"))
	assert.Nil(t, cmd.Flags().Lookup("verbose"))
	assert.Nil(t, cmd.Flags().ShorthandLookup("s"))
}

func TestRegisterCompletions(t *testing.T) {
	t.Parallel()

	cfg := log.NewConfig()

	cmd := &cobra.Command{Use: "vidterm"}
	cfg.RegisterFlags(cmd.Flags())
	require.NoError(t, cfg.RegisterCompletions(cmd))

	tcs := map[string][]string{
		"log-level":  {"error", "warn", "info", "debug"},
		"log-format": {"json", "logfmt", "text"},
	}

	for flag, want := range tcs {
		t.Run(flag, func(t *testing.T) {
			t.Parallel()

			fn, ok := cmd.GetFlagCompletionFunc(flag)
			require.True(t, ok)

			values, directive := fn(cmd, nil, "")
			assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
			assert.Equal(t, want, values)
		})
	}
}
