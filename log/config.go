package log

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ErrConflictingVerbosity indicates verbose and silent output were both
// requested.
var ErrConflictingVerbosity = errors.New("verbose and silent are mutually exclusive")

// Flags holds CLI flag names for log configuration, allowing callers to
// customize flag names while keeping sensible defaults via [NewConfig].
// An empty Verbose or Silent name skips registering that flag.
type Flags struct {
	Level   string
	Format  string
	Verbose string
	Silent  string
}

// NewConfig creates a new [Config] embedding these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{
		Level:  string(LevelInfo),
		Format: string(FormatText),
		Flags:  f,
	}
}

// Config holds CLI flag values for log configuration.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags]. Use [Config.NewHandler] to create a [Handler]
// for logging.
type Config struct {
	Level   string
	Format  string
	Flags   Flags
	Verbose bool
	Silent  bool
}

// NewConfig returns a new [Config] with the default level and format.
// Use [Config.RegisterFlags] to add CLI flags, or set values directly.
func NewConfig() *Config {
	f := Flags{
		Level:   "log-level",
		Format:  "log-format",
		Verbose: "verbose",
		Silent:  "silent",
	}

	return f.NewConfig()
}

// RegisterFlags adds logging flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Level, c.Flags.Level, string(LevelInfo),
		fmt.Sprintf("log level, one of: %s", GetAllLevelStrings()))
	flags.StringVar(&c.Format, c.Flags.Format, string(FormatText),
		fmt.Sprintf("log format, one of: %s", GetAllFormatStrings()))

	if c.Flags.Verbose != "" {
		flags.BoolVarP(&c.Verbose, c.Flags.Verbose, "v", false,
			"log debug output, including raw service responses")
	}

	if c.Flags.Silent != "" {
		flags.BoolVarP(&c.Silent, c.Flags.Silent, "s", false,
			"log errors only and hide progress output")
	}
}

// RegisterCompletions registers shell completions for log flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc(c.Flags.Level,
		cobra.FixedCompletions(GetAllLevelStrings(), cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering log-level completion: %w", err)
	}

	err = cmd.RegisterFlagCompletionFunc(c.Flags.Format,
		cobra.FixedCompletions(GetAllFormatStrings(), cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering log-format completion: %w", err)
	}

	return nil
}

// Validate reports conflicting or unknown settings.
func (c *Config) Validate() error {
	if c.Verbose && c.Silent {
		return ErrConflictingVerbosity
	}

	_, err := ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	_, err = ParseFormat(c.Format)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return nil
}

// EffectiveLevel returns the configured level after applying Verbose
// ([LevelDebug]) or Silent ([LevelError]).
func (c *Config) EffectiveLevel() string {
	switch {
	case c.Verbose:
		return string(LevelDebug)
	case c.Silent:
		return string(LevelError)
	}

	return c.Level
}

// NewHandler creates a new [Handler] that writes to w, using the level and
// format strings stored in c. It delegates to [NewHandlerFromStrings].
func (c *Config) NewHandler(w io.Writer) (Handler, error) {
	if c.Verbose && c.Silent {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, ErrConflictingVerbosity)
	}

	return NewHandlerFromStrings(w, c.EffectiveLevel(), c.Format)
}
