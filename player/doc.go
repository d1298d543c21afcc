// Package player plays a frame sequence on a terminal at a fixed rate.
//
// A [Player] walks frames 1, 2, ... of a [frames.Sequence], converts each one
// to a string of colored cells, writes it followed by a color reset and a
// newline, and sleeps 1/FPS seconds. The delay is fixed rather than
// compensated, so playback runs slower than real time by the conversion
// latency of every frame.
//
// Playback ends when a frame is missing (the end of the stream), the frame
// limit is reached, or the context is canceled. Frames whose conversion fails
// transiently are skipped; any other failure aborts.
//
// The audio is started once, right after the first frame is written, and is
// never synchronized with the frames afterward. When the frames were checked
// ahead of time, [WithAvailable] ends the stream at the last good one.
package player
