package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go.jacobcolvin.com/vidterm/audio"
	"go.jacobcolvin.com/vidterm/decode"
	"go.jacobcolvin.com/vidterm/frames"
	"go.jacobcolvin.com/vidterm/log"
	"go.jacobcolvin.com/vidterm/player"
	"go.jacobcolvin.com/vidterm/textart"
)

const (
	// DefaultFPS is the frame rate used for extraction and playback.
	DefaultFPS = 8
	// DefaultEnvFile is the dotenv file consulted for the API secret.
	DefaultEnvFile = ".env"
	// SecretKey is the environment variable holding the API secret.
	SecretKey = "X_TEXTART_API_SECRET"
)

var (
	// ErrInvalidConfig indicates a setting that cannot be used.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrMissingSecret indicates the API secret is not configured.
	ErrMissingSecret = errors.New("missing " + SecretKey)
	// ErrReadConfig indicates the configuration file could not be loaded.
	ErrReadConfig = errors.New("read configuration file")
)

// Flags holds CLI flag names, allowing callers to customize them while
// keeping sensible defaults via [NewConfig].
type Flags struct {
	FPS         string
	Convert     string
	Headers     string
	Padding     string
	Ext         string
	MaxFrames   string
	Endpoint    string
	Format      string
	Timeout     string
	Retries     string
	Rate        string
	MaxFailures string
	AudioPlayer string
	Mute        string
	Decoder     string
	EnvFile     string
	NoPrompt    string
	Dump        string
	MetricsAddr string
	File        string
}

// NewConfig creates a new [Config] with defaults, embedding these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{
		Log:         log.NewConfig(),
		FPS:         DefaultFPS,
		Padding:     frames.DefaultPadding,
		Ext:         frames.DefaultExt,
		Endpoint:    textart.DefaultEndpoint,
		Format:      textart.DefaultFormat,
		Timeout:     textart.DefaultTimeout,
		Retries:     textart.DefaultMaxTries,
		MaxFailures: player.DefaultMaxConsecutiveFailures,
		Decoder:     decode.NameAuto,
		EnvFile:     DefaultEnvFile,
		Flags:       f,
	}
}

// Config holds every setting of a run. It is built once from flags and an
// optional file, then passed explicitly to the components.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags].
type Config struct {
	Log         *log.Config
	Endpoint    string
	Format      string
	Ext         string
	AudioPlayer string
	Decoder     string
	EnvFile     string
	Dump        string
	MetricsAddr string
	File        string
	Flags       Flags
	Timeout     time.Duration
	Rate        float64
	FPS         int
	Padding     int
	MaxFrames   int
	Retries     int
	MaxFailures int
	Convert     bool
	Headers     bool
	Mute        bool
	NoPrompt    bool
}

// NewConfig returns a new [Config] with default values and flag names.
func NewConfig() *Config {
	f := Flags{
		FPS:         "fps",
		Convert:     "convert",
		Headers:     "headers",
		Padding:     "padding",
		Ext:         "ext",
		MaxFrames:   "max-frames",
		Endpoint:    "endpoint",
		Format:      "format",
		Timeout:     "timeout",
		Retries:     "retries",
		Rate:        "rate",
		MaxFailures: "max-failures",
		AudioPlayer: "audio-player",
		Mute:        "mute",
		Decoder:     "decoder",
		EnvFile:     "env-file",
		NoPrompt:    "no-prompt",
		Dump:        "dump",
		MetricsAddr: "metrics-addr",
		File:        "config",
	}

	return f.NewConfig()
}

// RegisterFlags adds all flags, including the log flags, to flags.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	c.Log.RegisterFlags(flags)

	flags.IntVarP(&c.FPS, c.Flags.FPS, "f", c.FPS,
		"frames per second for extraction and playback")
	flags.BoolVarP(&c.Convert, c.Flags.Convert, "c", c.Convert,
		"only extract frames, do not render")
	flags.BoolVarP(&c.Headers, c.Flags.Headers, "r", c.Headers,
		"log response headers of the conversion service")
	flags.IntVar(&c.Padding, c.Flags.Padding, c.Padding,
		"digits in frame file names")
	flags.StringVar(&c.Ext, c.Flags.Ext, c.Ext,
		"frame image extension")
	flags.IntVar(&c.MaxFrames, c.Flags.MaxFrames, c.MaxFrames,
		"last frame to play, 0 for as many as the padding allows")
	flags.StringVar(&c.Endpoint, c.Flags.Endpoint, c.Endpoint,
		"image to text conversion endpoint")
	flags.StringVar(&c.Format, c.Flags.Format, c.Format,
		"conversion output format requested from the service")
	flags.DurationVar(&c.Timeout, c.Flags.Timeout, c.Timeout,
		"timeout of a single conversion request")
	flags.IntVar(&c.Retries, c.Flags.Retries, c.Retries,
		"attempts per frame on transient service failures")
	flags.Float64Var(&c.Rate, c.Flags.Rate, c.Rate,
		"maximum conversion requests per second, 0 for unlimited")
	flags.IntVar(&c.MaxFailures, c.Flags.MaxFailures, c.MaxFailures,
		"consecutive skipped frames before giving up, 0 for unlimited")
	flags.StringVar(&c.AudioPlayer, c.Flags.AudioPlayer, c.AudioPlayer,
		"audio player binary, detected when empty")
	flags.BoolVar(&c.Mute, c.Flags.Mute, c.Mute,
		"do not play audio")
	flags.StringVar(&c.Decoder, c.Flags.Decoder, c.Decoder,
		fmt.Sprintf("frame decoder, one of: %s", decode.Names()))
	flags.StringVar(&c.EnvFile, c.Flags.EnvFile, c.EnvFile,
		"dotenv file holding "+SecretKey)
	flags.BoolVar(&c.NoPrompt, c.Flags.NoPrompt, c.NoPrompt,
		"start playback without waiting for enter")
	flags.StringVar(&c.Dump, c.Flags.Dump, c.Dump,
		"write the last converted markup to this file")
	flags.StringVar(&c.MetricsAddr, c.Flags.MetricsAddr, c.MetricsAddr,
		"serve Prometheus metrics on this address")
	flags.StringVar(&c.File, c.Flags.File, c.File,
		"YAML configuration file")
}

// RegisterCompletions registers shell completions for enumerated flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := c.Log.RegisterCompletions(cmd)
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped.
	}

	fixed := map[string][]string{
		c.Flags.Decoder:     decode.Names(),
		c.Flags.AudioPlayer: audio.Names(),
		c.Flags.Ext:         {"bmp", "png", "jpg"},
	}

	for name, values := range fixed {
		err := cmd.RegisterFlagCompletionFunc(name,
			cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
		if err != nil {
			return fmt.Errorf("registering %s completion: %w", name, err)
		}
	}

	err = cmd.MarkFlagFilename(c.Flags.File, "yaml", "yml")
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.File, err)
	}

	err = cmd.MarkFlagFilename(c.Flags.EnvFile)
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.EnvFile, err)
	}

	return nil
}

// Validate checks every setting. Errors wrap [ErrInvalidConfig].
func (c *Config) Validate() error {
	var errs []error

	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.FPS))
	}

	if c.Padding < 1 || c.Padding > 9 {
		errs = append(errs, fmt.Errorf("padding must be in [1, 9], got %d", c.Padding))
	} else if c.MaxFrames < 0 || c.MaxFrames > frames.Capacity(c.Padding) {
		errs = append(errs, fmt.Errorf("max-frames must be in [0, %d], got %d",
			frames.Capacity(c.Padding), c.MaxFrames))
	}

	if c.Ext == "" {
		errs = append(errs, errors.New("ext must not be empty"))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}

	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries must not be negative, got %d", c.Retries))
	}

	if c.Rate < 0 {
		errs = append(errs, fmt.Errorf("rate must not be negative, got %g", c.Rate))
	}

	if c.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("max-failures must not be negative, got %d", c.MaxFailures))
	}

	if !slices.Contains(decode.Names(), c.Decoder) {
		errs = append(errs, fmt.Errorf("%w: %q", decode.ErrUnknownDecoder, c.Decoder))
	}

	err := c.Log.Validate()
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}

// Sequence returns the frame sequence of videoPath: a directory named after
// the video in the working directory.
func (c *Config) Sequence(videoPath string) (frames.Sequence, error) {
	name, err := frames.NameFor(videoPath)
	if err != nil {
		return frames.Sequence{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	seq, err := frames.NewSequence(name, c.Padding, c.Ext)
	if err != nil {
		return frames.Sequence{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return seq, nil
}

// PlayerConfig returns the playback settings.
func (c *Config) PlayerConfig() player.Config {
	return player.Config{
		FPS:                    c.FPS,
		Limit:                  c.MaxFrames,
		MaxConsecutiveFailures: c.MaxFailures,
	}
}

// file mirrors the settings accepted in a configuration file. Nil fields are
// left unchanged.
type file struct {
	FPS         *int     `yaml:"fps"`
	Convert     *bool    `yaml:"convert"`
	Verbose     *bool    `yaml:"verbose"`
	Silent      *bool    `yaml:"silent"`
	Headers     *bool    `yaml:"headers"`
	LogLevel    *string  `yaml:"logLevel"`
	LogFormat   *string  `yaml:"logFormat"`
	Padding     *int     `yaml:"padding"`
	Ext         *string  `yaml:"ext"`
	MaxFrames   *int     `yaml:"maxFrames"`
	Endpoint    *string  `yaml:"endpoint"`
	Format      *string  `yaml:"format"`
	Timeout     *string  `yaml:"timeout"`
	Retries     *int     `yaml:"retries"`
	Rate        *float64 `yaml:"rate"`
	MaxFailures *int     `yaml:"maxFailures"`
	AudioPlayer *string  `yaml:"audioPlayer"`
	Mute        *bool    `yaml:"mute"`
	Decoder     *string  `yaml:"decoder"`
	EnvFile     *string  `yaml:"envFile"`
	NoPrompt    *bool    `yaml:"noPrompt"`
	Dump        *string  `yaml:"dump"`
	MetricsAddr *string  `yaml:"metricsAddr"`
}

// LoadFile reads the YAML file at path into c. Settings whose flag was set on
// the command line keep their flag value. flags may be nil.
func (c *Config) LoadFile(path string, flags *pflag.FlagSet) error {
	data, err := os.ReadFile(path) //nolint:gosec // Operator-provided path.
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadConfig, err)
	}

	var f file

	err = yaml.UnmarshalWithOptions(data, &f, yaml.DisallowUnknownField())
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrReadConfig, path, err)
	}

	changed := func(name string) bool {
		return flags != nil && name != "" && flags.Changed(name)
	}

	set(&c.FPS, f.FPS, changed(c.Flags.FPS))
	set(&c.Padding, f.Padding, changed(c.Flags.Padding))
	set(&c.MaxFrames, f.MaxFrames, changed(c.Flags.MaxFrames))
	set(&c.Retries, f.Retries, changed(c.Flags.Retries))
	set(&c.MaxFailures, f.MaxFailures, changed(c.Flags.MaxFailures))

	set(&c.Convert, f.Convert, changed(c.Flags.Convert))
	set(&c.Headers, f.Headers, changed(c.Flags.Headers))
	set(&c.Mute, f.Mute, changed(c.Flags.Mute))
	set(&c.NoPrompt, f.NoPrompt, changed(c.Flags.NoPrompt))
	set(&c.Log.Verbose, f.Verbose, changed(c.Log.Flags.Verbose))
	set(&c.Log.Silent, f.Silent, changed(c.Log.Flags.Silent))

	set(&c.Log.Level, f.LogLevel, changed(c.Log.Flags.Level))
	set(&c.Log.Format, f.LogFormat, changed(c.Log.Flags.Format))
	set(&c.Ext, f.Ext, changed(c.Flags.Ext))
	set(&c.Endpoint, f.Endpoint, changed(c.Flags.Endpoint))
	set(&c.Format, f.Format, changed(c.Flags.Format))
	set(&c.AudioPlayer, f.AudioPlayer, changed(c.Flags.AudioPlayer))
	set(&c.Decoder, f.Decoder, changed(c.Flags.Decoder))
	set(&c.EnvFile, f.EnvFile, changed(c.Flags.EnvFile))
	set(&c.Dump, f.Dump, changed(c.Flags.Dump))
	set(&c.MetricsAddr, f.MetricsAddr, changed(c.Flags.MetricsAddr))

	if f.Timeout != nil && !changed(c.Flags.Timeout) {
		d, err := time.ParseDuration(*f.Timeout)
		if err != nil {
			return fmt.Errorf("%w: %s: timeout: %w", ErrReadConfig, path, err)
		}

		c.Timeout = d
	}

	set(&c.Rate, f.Rate, changed(c.Flags.Rate))

	return nil
}

// set copies a value read from the config file unless the flag was given.
func set[T any](dst, src *T, changed bool) {
	if src != nil && !changed {
		*dst = *src
	}
}

// LoadSecret returns the API secret from the environment or, failing that,
// from the dotenv file at envFile. A missing envFile is not an error.
func LoadSecret(envFile string) (string, error) {
	v := viper.New()
	v.AutomaticEnv()

	if envFile != "" {
		_, err := os.Stat(envFile)
		if err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")

			err = v.ReadInConfig()
			if err != nil {
				return "", fmt.Errorf("%w: %s: %w", ErrReadConfig, envFile, err)
			}
		}
	}

	secret := v.GetString(SecretKey)
	if secret == "" {
		return "", fmt.Errorf("%w: set it in the environment or in %s", ErrMissingSecret, envFile)
	}

	return secret, nil
}
