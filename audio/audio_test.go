package audio_test

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/vidterm/audio"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		available map[string]bool
		want      string
		err       error
	}{
		"prefers afplay": {
			available: map[string]bool{"afplay": true, "ffplay": true},
			want:      "afplay",
		},
		"falls back to ffplay": {
			available: map[string]bool{"ffplay": true, "paplay": true},
			want:      "ffplay",
		},
		"last resort": {
			available: map[string]bool{"paplay": true},
			want:      "paplay",
		},
		"none": {
			available: map[string]bool{},
			err:       audio.ErrNoPlayer,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			lookPath := func(name string) (string, error) {
				if tc.available[name] {
					return "/usr/bin/" + name, nil
				}

				return "", exec.ErrNotFound
			}

			p, err := audio.Detect(lookPath)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, p.Name)
		})
	}
}

func TestCommandStart(t *testing.T) {
	t.Parallel()

	bin, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}

	cmd := audio.NewCommand(audio.Player{Name: bin}, "clip.mp4", nil)

	require.NoError(t, cmd.Start())
	require.ErrorIs(t, cmd.Start(), audio.ErrAlreadyStarted)
}

func TestCommandStartMissingBinary(t *testing.T) {
	t.Parallel()

	cmd := audio.NewCommand(audio.Player{Name: "vidterm-no-such-player"}, "clip.mp4", nil)

	require.ErrorIs(t, cmd.Start(), exec.ErrNotFound)
	require.ErrorIs(t, cmd.Start(), audio.ErrAlreadyStarted, "a failed start is not retried")
}

func TestSilent(t *testing.T) {
	t.Parallel()

	require.NoError(t, audio.Silent{}.Start())
}

func TestNamed(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}, audio.Named("ffplay").Args)
	assert.Equal(t, audio.Player{Name: "cvlc"}, audio.Named("cvlc"))
	assert.Equal(t, []string{"afplay", "ffplay", "mpv", "paplay"}, audio.Names())
}
