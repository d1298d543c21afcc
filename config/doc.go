// Package config holds the settings of a vidterm run.
//
// Settings come from command-line flags, optionally completed by a YAML file
// given with --config; flags set explicitly always win over the file. The
// text-art API secret is read separately with [LoadSecret], from the
// environment or a dotenv file, and only when frames are rendered.
//
// Example file:
//
//	fps: 12
//	maxFrames: 240
//	timeout: 5s
//	retries: 2
//	audioPlayer: mpv
//	logFormat: logfmt
package config
