package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"go.jacobcolvin.com/vidterm/audio"
	"go.jacobcolvin.com/vidterm/config"
	"go.jacobcolvin.com/vidterm/decode"
	"go.jacobcolvin.com/vidterm/frames"
	"go.jacobcolvin.com/vidterm/glyph"
	"go.jacobcolvin.com/vidterm/metrics"
	"go.jacobcolvin.com/vidterm/player"
	"go.jacobcolvin.com/vidterm/scale"
	"go.jacobcolvin.com/vidterm/textart"
	"go.jacobcolvin.com/vidterm/version"
)

// terminal is where a run writes frames and diagnostics, and how it inspects
// the controlling terminal.
type terminal struct {
	out io.Writer
	err io.Writer
	// size returns the columns and rows of the output terminal.
	size func() (int, int, error)
	// interactive reports whether the user can answer a prompt.
	interactive func() bool
	// prompt blocks until the user confirms or declines.
	prompt func(ctx context.Context, msg string) (bool, error)
}

func newTerminal(out, errOut io.Writer) terminal {
	return terminal{
		out: out,
		err: errOut,
		size: func() (int, int, error) {
			return term.GetSize(int(os.Stdout.Fd())) //nolint:gosec // Fd fits in an int.
		},
		interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) && //nolint:gosec // Fd fits in an int.
				term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec // Fd fits in an int.
		},
		prompt: waitForEnter,
	}
}

func run(ctx context.Context, cfg *config.Config, video string, t terminal) error {
	handler, err := cfg.Log.NewHandler(t.err)
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped.
	}

	logger := slog.New(handler)

	_, err = os.Stat(video)
	if err != nil {
		return fmt.Errorf("opening video: %w", err)
	}

	seq, err := cfg.Sequence(video)
	if err != nil {
		return err
	}

	err = frames.EnsureDir(seq.Dir)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := metrics.New(reg)

	if cfg.MetricsAddr != "" {
		go func() {
			err := metrics.Serve(ctx, cfg.MetricsAddr, reg, logger)
			if err != nil {
				logger.Error("metrics server stopped", slog.Any("err", err))
			}
		}()
	}

	dec, err := decode.Select(cfg.Decoder, video, logger)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	logger.Info("extracting frames", slog.String("video", video), slog.String("dir", seq.Dir))

	err = dec.Decode(ctx, video, seq, cfg.FPS)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	if cfg.Convert {
		logger.Info("frames extracted", slog.String("dir", seq.Dir))

		return nil
	}

	return play(ctx, cfg, video, seq, t, logger, m)
}

// play scales the extracted frames of video and plays them.
func play(
	ctx context.Context,
	cfg *config.Config,
	video string,
	seq frames.Sequence,
	t terminal,
	logger *slog.Logger,
	m *metrics.Metrics,
) error {
	pc := cfg.PlayerConfig()
	if pc.Limit == 0 {
		pc.Limit = seq.Capacity()
	}

	sum, err := scale.New(scale.WithLogger(logger)).
		ScaleSequence(ctx, seq, pc.Limit, newProgress(cfg, t.err))
	if err != nil {
		return fmt.Errorf("scaling frames: %w", err)
	}

	m.Scaled(sum.Scaled)

	if sum.Scaled == 0 {
		logger.Warn("no frames to play", slog.String("dir", seq.Dir))
	} else {
		checkTerminalSize(logger, t, sum.Geometry)
	}

	if !cfg.NoPrompt && !cfg.Log.Silent && t.interactive() {
		ok, err := t.prompt(ctx, fmt.Sprintf("set your terminal to %s and press enter to play", sum.Geometry))
		if err != nil {
			return err
		}

		if !ok {
			return nil
		}
	}

	secret, err := config.LoadSecret(cfg.EnvFile)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	client := textart.NewClient(secret,
		textart.WithEndpoint(cfg.Endpoint),
		textart.WithFormat(cfg.Format),
		textart.WithTimeout(cfg.Timeout),
		textart.WithMaxTries(uint(max(cfg.Retries, 1))), //nolint:gosec // Clamped to at least 1.
		textart.WithRate(cfg.Rate),
		textart.WithUserAgent(version.UserAgent()),
		textart.WithHeaders(cfg.Headers),
		textart.WithLogger(logger),
	)

	var convOpts []textart.ConverterOption
	if cfg.Dump != "" {
		convOpts = append(convOpts, textart.WithDump(cfg.Dump))
	}

	conv := textart.NewConverter(client, glyph.NewEncoder(glyph.WithLogger(logger)), convOpts...)

	p, err := player.New(pc, seq, conv, newAudio(cfg, video, logger), t.out,
		player.WithLogger(logger),
		player.WithMetrics(m),
		player.WithAvailable(sum.Scaled),
		player.WithStateHook(func(s player.State, frame int) {
			logger.Debug("playback state", slog.String("state", s.String()), slog.Int("frame", frame))
		}),
	)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	res, err := p.Run(ctx)

	logger.Info("playback finished",
		slog.String("reason", res.Reason.String()),
		slog.Int("rendered", res.Rendered),
		slog.Int("skipped", res.Skipped),
		slog.Int("last", res.Last),
	)

	if err != nil {
		return fmt.Errorf("playback aborted: %w", err)
	}

	return nil
}

// newAudio returns the soundtrack player for video. Missing players are
// reported and play nothing.
func newAudio(cfg *config.Config, video string, logger *slog.Logger) player.Audio {
	if cfg.Mute {
		return audio.Silent{}
	}

	if cfg.AudioPlayer != "" {
		return audio.NewCommand(audio.Named(cfg.AudioPlayer), video, logger)
	}

	p, err := audio.Detect(exec.LookPath)
	if err != nil {
		logger.Warn("playing without audio", slog.Any("err", err))

		return audio.Silent{}
	}

	return audio.NewCommand(p, video, logger)
}

// newProgress returns a progress indicator for scaling, or nil when output
// is silenced.
func newProgress(cfg *config.Config, w io.Writer) scale.Progress {
	if cfg.Log.Silent {
		return nil
	}

	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("scaling frames"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

func checkTerminalSize(logger *slog.Logger, t terminal, g scale.Geometry) {
	cols, rows, err := t.size()
	if err != nil {
		logger.Debug("terminal size unknown", slog.Any("err", err))

		return
	}

	if cols < g.Columns || rows < g.Rows {
		logger.Warn("terminal is smaller than the frames",
			slog.String("terminal", fmt.Sprintf("%dx%d", cols, rows)),
			slog.String("frames", g.String()),
		)
	}
}
