// Package frames names the numbered frame images a video is split into.
//
// Frames are identified by their 1-based position, zero-padded to a fixed
// width ("001" .. "999" for a width of 3). A [Sequence] maps positions to
// paths and produces the output pattern for external decoders:
//
//	name, err := frames.NameFor("clip.mp4") // clip
//	seq, err := frames.NewSequence(name, 3, "bmp")
//	path, err := seq.Path(7) // clip/007.bmp
//
// Identifier generation performs no I/O. Sequences are contiguous: consumers
// treat the first missing frame as the end of the stream.
package frames
