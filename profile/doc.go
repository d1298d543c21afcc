// Package profile writes pprof profiles of a vidterm run.
//
// A CPU profile covers the whole run, from frame extraction to the end of
// playback. Heap and goroutine profiles are snapshots taken when the run
// ends; the goroutine profile shows audio players still being waited on.
//
//	cfg := profile.NewConfig()
//	cfg.RegisterFlags(rootCmd.Flags())
//
//	err := cfg.Run(func() error {
//	    return run(ctx)
//	})
package profile
