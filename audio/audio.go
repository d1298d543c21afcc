// Package audio plays a media file's soundtrack through an external player
// process.
//
// Playback is detached: [Command.Start] returns as soon as the process runs,
// nothing waits for it, and it is not stopped when playback of the frames ends
// or is interrupted. It exits on its own or with the process group.
package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync/atomic"
)

var (
	// ErrNoPlayer indicates no known audio player was found.
	ErrNoPlayer = errors.New("no audio player found")
	// ErrAlreadyStarted indicates [Command.Start] was called more than once.
	ErrAlreadyStarted = errors.New("audio already started")
)

// Player is an audio player invocation: a binary and the arguments placed
// before the media path.
type Player struct {
	Name string
	Args []string
}

// Players lists the players [Detect] looks for, in order of preference.
var Players = []Player{
	{Name: "afplay"},
	{Name: "ffplay", Args: []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	{Name: "mpv", Args: []string{"--no-video", "--really-quiet"}},
	{Name: "paplay"},
}

// Detect returns the first of [Players] that lookPath can find.
// Pass [exec.LookPath] outside of tests.
func Detect(lookPath func(string) (string, error)) (Player, error) {
	for _, p := range Players {
		_, err := lookPath(p.Name)
		if err == nil {
			return p, nil
		}
	}

	return Player{}, ErrNoPlayer
}

// Named returns the entry of [Players] called name, or a player running name
// with no extra arguments.
func Named(name string) Player {
	for _, p := range Players {
		if p.Name == name {
			return p
		}
	}

	return Player{Name: name}
}

// Names returns the names of [Players].
func Names() []string {
	names := make([]string, 0, len(Players))
	for _, p := range Players {
		names = append(names, p.Name)
	}

	return names
}

// Command plays one file with one [Player].
//
// Create instances with [NewCommand].
type Command struct {
	logger  *slog.Logger
	player  Player
	path    string
	started atomic.Bool
}

// NewCommand creates a [Command] that plays path.
func NewCommand(player Player, path string, logger *slog.Logger) *Command {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Command{
		logger: logger,
		player: player,
		path:   path,
	}
}

// Start launches the player and returns without waiting for it.
// A goroutine reaps the process and logs how it exited.
func (c *Command) Start() error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	args := append(append([]string{}, c.player.Args...), c.path)

	//nolint:gosec,noctx // Player and path are operator-provided; the process outlives any context.
	cmd := exec.Command(c.player.Name, args...)

	err := cmd.Start()
	if err != nil {
		return fmt.Errorf("starting %s: %w", c.player.Name, err)
	}

	c.logger.Debug("audio started",
		slog.String("player", c.player.Name),
		slog.Int("pid", cmd.Process.Pid),
	)

	go func() {
		err := cmd.Wait()
		if err != nil {
			c.logger.Debug("audio player exited", slog.String("player", c.player.Name), slog.Any("err", err))

			return
		}

		c.logger.Debug("audio player finished", slog.String("player", c.player.Name))
	}()

	return nil
}

// Silent is a player that plays nothing.
type Silent struct{}

// Start implements the player interface and does nothing.
func (Silent) Start() error {
	return nil
}
