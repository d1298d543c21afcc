package profile

import (
	"errors"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ErrProfile indicates a profile could not be started or written.
var ErrProfile = errors.New("profile")

// Flags holds CLI flag names for profiling configuration, allowing callers to
// customize flag names while keeping sensible defaults via [NewConfig].
type Flags struct {
	CPU       string
	Heap      string
	Goroutine string
}

// NewConfig creates a new [Config] embedding these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{
		Flags: f,
	}
}

// Config holds profile output paths. Empty paths are disabled, so a zero
// Config profiles nothing.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags].
type Config struct {
	Flags     Flags
	CPU       string
	Heap      string
	Goroutine string
}

// NewConfig creates a new [Config] with default flag names and all profiles
// disabled.
func NewConfig() *Config {
	f := Flags{
		CPU:       "cpu-profile",
		Heap:      "heap-profile",
		Goroutine: "goroutine-profile",
	}

	return f.NewConfig()
}

// RegisterFlags adds profiling flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.CPU, c.Flags.CPU, "", "write a CPU profile of the run to file")
	flags.StringVar(&c.Heap, c.Flags.Heap, "", "write a heap profile to file when the run ends")
	flags.StringVar(&c.Goroutine, c.Flags.Goroutine, "",
		"write a goroutine profile to file when the run ends")
}

// RegisterCompletions registers file completions for the profile flags.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	for _, name := range []string{c.Flags.CPU, c.Flags.Heap, c.Flags.Goroutine} {
		err := cmd.MarkFlagFilename(name, "prof", "pprof")
		if err != nil {
			return fmt.Errorf("registering %s completion: %w", name, err)
		}
	}

	return nil
}

// Enabled reports whether any profile is requested.
func (c *Config) Enabled() bool {
	return c.CPU != "" || c.Heap != "" || c.Goroutine != ""
}

// Run calls fn between starting the CPU profile and writing the snapshot
// profiles. Errors of fn and of the profiles are joined.
func (c *Config) Run(fn func() error) error {
	p := c.NewProfiler()

	err := p.Start()
	if err != nil {
		return err
	}

	return errors.Join(fn(), p.Stop())
}

// Profiler controls one profiling session.
//
// Create instances with [Config.NewProfiler].
type Profiler struct {
	cpuFile *os.File
	config  Config
}

// NewProfiler creates a [Profiler] for c.
func (c *Config) NewProfiler() *Profiler {
	return &Profiler{config: *c}
}

// Start starts the CPU profile, if enabled.
func (p *Profiler) Start() error {
	if p.config.CPU == "" {
		return nil
	}

	f, err := os.Create(p.config.CPU) //nolint:gosec // Profile path from CLI flag is expected.
	if err != nil {
		return fmt.Errorf("%w: cpu: %w", ErrProfile, err)
	}

	err = pprof.StartCPUProfile(f)
	if err != nil {
		//nolint:errcheck // Already failing.
		f.Close()

		return fmt.Errorf("%w: cpu: %w", ErrProfile, err)
	}

	p.cpuFile = f

	return nil
}

// Stop stops the CPU profile and writes the enabled snapshot profiles.
func (p *Profiler) Stop() error {
	var errs []error

	if p.cpuFile != nil {
		pprof.StopCPUProfile()

		err := p.cpuFile.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: cpu: %w", ErrProfile, err))
		}

		p.cpuFile = nil
	}

	for name, path := range map[string]string{
		"heap":      p.config.Heap,
		"goroutine": p.config.Goroutine,
	} {
		if path == "" {
			continue
		}

		err := writeProfile(name, path)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func writeProfile(name, path string) error {
	f, err := os.Create(path) //nolint:gosec // Profile path from CLI flag is expected.
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrProfile, name, err)
	}

	err = pprof.Lookup(name).WriteTo(f, 0)
	if err != nil {
		//nolint:errcheck // Already failing.
		f.Close()

		return fmt.Errorf("%w: %s: %w", ErrProfile, name, err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrProfile, name, err)
	}

	return nil
}
