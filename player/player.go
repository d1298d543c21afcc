package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.jacobcolvin.com/vidterm/frames"
	"go.jacobcolvin.com/vidterm/metrics"
	"go.jacobcolvin.com/vidterm/palette"
	"go.jacobcolvin.com/vidterm/textart"
)

// DefaultMaxConsecutiveFailures is the number of skipped frames in a row that
// aborts playback.
const DefaultMaxConsecutiveFailures = 5

var (
	// ErrInvalidConfig indicates a configuration rejected before playback.
	ErrInvalidConfig = errors.New("invalid player configuration")
	// ErrTooManyFailures indicates too many consecutive frames were skipped.
	ErrTooManyFailures = errors.New("too many consecutive frame failures")
)

// Converter produces the cell string of the frame image at path.
//
// A missing frame must be reported with an error matching [os.ErrNotExist] or
// [textart.ErrReadFrame]; failures worth skipping with [textart.ErrTransient].
// Any other error aborts playback.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// ConverterFunc adapts a function to [Converter].
type ConverterFunc func(ctx context.Context, path string) (string, error)

// Convert implements [Converter].
func (f ConverterFunc) Convert(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Audio starts the soundtrack without blocking.
type Audio interface {
	Start() error
}

// Config controls playback.
type Config struct {
	// FPS is the number of frames per second; each frame is followed by a
	// 1/FPS pause.
	FPS int
	// Limit is the last frame position to play. Zero means the capacity of
	// the sequence.
	Limit int
	// MaxConsecutiveFailures aborts playback after this many skipped frames
	// in a row. Zero disables the check.
	MaxConsecutiveFailures int
}

// Result describes a finished playback.
type Result struct {
	Rendered int
	Skipped  int
	// Last is the last frame position processed.
	Last   int
	Reason Reason
}

// Player paces converted frames onto a terminal.
//
// Create instances with [New].
type Player struct {
	conv    Converter
	audio   Audio
	out     io.Writer
	logger  *slog.Logger
	metrics *metrics.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
	onState func(State, int)
	seq     frames.Sequence
	cfg     Config
	// available is the number of playable frames, or -1 when only the
	// converter can tell.
	available int
	state     state
}

// state is the mutable playback state.
type state struct {
	current      State
	index        int
	failures     int
	audioStarted bool
}

// Option configures a [Player].
type Option func(*Player)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Player) {
		p.logger = l
	}
}

// WithMetrics records playback metrics to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Player) {
		p.metrics = m
	}
}

// WithSleep replaces the pause between frames. sleep must return ctx.Err()
// when ctx is done before d elapses.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Player) {
		p.sleep = sleep
	}
}

// WithAvailable ends the stream after frame n without converting the frames
// past it. Use it when the frames were checked beforehand, for example by
// scaling them, and a later frame is known to be unreadable.
func WithAvailable(n int) Option {
	return func(p *Player) {
		p.available = max(n, 0)
	}
}

// WithStateHook calls fn on every state transition with the current frame
// position.
func WithStateHook(fn func(s State, frame int)) Option {
	return func(p *Player) {
		p.onState = fn
	}
}

// New validates cfg against seq and creates a [Player] writing frames to out.
// audio may be nil.
func New(cfg Config, seq frames.Sequence, conv Converter, audio Audio, out io.Writer, opts ...Option) (*Player, error) {
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("%w: fps must be positive, got %d", ErrInvalidConfig, cfg.FPS)
	}

	if cfg.MaxConsecutiveFailures < 0 {
		return nil, fmt.Errorf("%w: max consecutive failures must not be negative", ErrInvalidConfig)
	}

	if cfg.Limit == 0 {
		cfg.Limit = seq.Capacity()
	}

	err := seq.CheckLimit(cfg.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	p := &Player{
		conv:      conv,
		audio:     audio,
		out:       out,
		logger:    slog.New(slog.DiscardHandler),
		sleep:     sleepContext,
		seq:       seq,
		cfg:       cfg,
		available: -1,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.transition(StateInit)

	return p, nil
}

// Interval returns the pause after each frame.
func (p *Player) Interval() time.Duration {
	return time.Second / time.Duration(p.cfg.FPS)
}

// State returns the current state.
func (p *Player) State() State {
	return p.state.current
}

// Run plays frames 1..Limit until the frames run out, the limit is reached,
// ctx is done, or a frame fails in a way that cannot be skipped.
//
// Frames are paced with a fixed delay: every processed frame is followed by a
// full interval regardless of how long it took. The audio starts once the
// first frame has been written and is never waited for.
//
// Interruption is not an error. The returned error is non-nil only when
// playback is aborted.
func (p *Player) Run(ctx context.Context) (Result, error) {
	var res Result

	for i := 1; i <= p.cfg.Limit; i++ {
		p.state.index = i
		res.Last = i

		reason, err := p.step(ctx, i, &res)
		if err != nil {
			p.transition(StateAborted)

			return res, err
		}

		if reason != ReasonNone {
			res.Reason = reason
			p.transition(StateEnd)

			return res, nil
		}
	}

	p.logger.Info("frame limit reached", slog.Int("limit", p.cfg.Limit))

	res.Reason = ReasonFrameLimit
	p.transition(StateEnd)

	return res, nil
}

// step processes frame i. It returns a non-zero [Reason] when playback should
// end normally.
func (p *Player) step(ctx context.Context, i int, res *Result) (Reason, error) {
	path, err := p.seq.Path(i)
	if err != nil {
		return ReasonNone, err
	}

	if p.available >= 0 && i > p.available {
		p.logger.Debug("out of frames", slog.Int("available", p.available))

		res.Last = i - 1

		return ReasonEndOfStream, nil
	}

	p.transition(StateConverting)

	start := time.Now()

	cells, err := p.conv.Convert(ctx, path)

	switch {
	case err == nil:
		p.state.failures = 0

	case ctx.Err() != nil:
		return ReasonInterrupted, nil

	case endOfStream(err):
		p.logger.Debug("out of frames", slog.String("path", path), slog.Any("err", err))

		res.Last = i - 1

		return ReasonEndOfStream, nil

	case errors.Is(err, textart.ErrTransient):
		res.Skipped++
		p.state.failures++
		p.metrics.Skipped()

		p.logger.Debug("skipping frame", slog.Int("frame", i), slog.Any("err", err))

		if p.cfg.MaxConsecutiveFailures > 0 && p.state.failures >= p.cfg.MaxConsecutiveFailures {
			return ReasonNone, fmt.Errorf("%w: %d in a row, last at frame %d: %w",
				ErrTooManyFailures, p.state.failures, i, err)
		}

		return p.pause(ctx)

	default:
		return ReasonNone, fmt.Errorf("frame %d: %w", i, err)
	}

	p.transition(StateRendering)

	_, err = io.WriteString(p.out, cells+palette.Reset+"\n")
	if err != nil {
		return ReasonNone, fmt.Errorf("writing frame %d: %w", i, err)
	}

	if !p.state.audioStarted {
		p.startAudio()
	}

	res.Rendered++
	p.metrics.Rendered(time.Since(start))

	return p.pause(ctx)
}

func (p *Player) pause(ctx context.Context) (Reason, error) {
	p.transition(StateSleeping)

	err := p.sleep(ctx, p.Interval())
	if err != nil {
		return ReasonInterrupted, nil //nolint:nilerr // Interruption ends playback normally.
	}

	return ReasonNone, nil
}

// startAudio launches the audio once. Failures are logged and not retried.
func (p *Player) startAudio() {
	p.state.audioStarted = true

	if p.audio == nil {
		return
	}

	err := p.audio.Start()
	if err != nil {
		p.logger.Warn("audio did not start", slog.Any("err", err))

		return
	}

	p.metrics.AudioStarted()
}

func (p *Player) transition(s State) {
	p.state.current = s

	if p.onState != nil {
		p.onState(s, p.state.index)
	}
}

func endOfStream(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, textart.ErrReadFrame)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
