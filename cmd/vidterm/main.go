// Command vidterm plays a video in the terminal as rows of ANSI-colored cells.
//
// Frames are extracted from the video into a directory named after it, scaled
// to a fixed width, converted to colored text by the textart.io service, and
// printed one after another at the configured frame rate while the soundtrack
// plays through an external audio player.
//
// # Usage
//
//	vidterm [flags] <video>
//	vidterm version
//
// The API secret is read from X_TEXTART_API_SECRET, in the environment or in
// a .env file in the working directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go.jacobcolvin.com/vidterm/config"
	"go.jacobcolvin.com/vidterm/profile"
	"go.jacobcolvin.com/vidterm/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.NewConfig()
	prof := profile.NewConfig()

	rootCmd := &cobra.Command{
		Use:   "vidterm [flags] <video>",
		Short: "Play a video in the terminal",
		Long: `vidterm extracts the frames of a video, converts each one to colored
terminal cells through the textart.io image-to-text service, and plays them
back at a fixed rate together with the video's soundtrack.

Use --convert to only extract the frames.`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.File != "" {
				err := cfg.LoadFile(cfg.File, cmd.Flags())
				if err != nil {
					return err
				}
			}

			err := cfg.Validate()
			if err != nil {
				return err
			}

			return prof.Run(func() error {
				return run(cmd.Context(), cfg, args[0], newTerminal(cmd.OutOrStdout(), cmd.ErrOrStderr()))
			})
		},
	}

	cfg.RegisterFlags(rootCmd.Flags())
	prof.RegisterFlags(rootCmd.Flags())

	completionErr := errors.Join(cfg.RegisterCompletions(rootCmd), prof.RegisterCompletions(rootCmd))
	if completionErr != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", completionErr)
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return version.Print(cmd.OutOrStdout())
		},
	})

	return rootCmd
}
