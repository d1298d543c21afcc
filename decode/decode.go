// Package decode splits a video into the numbered frame images of a
// [frames.Sequence].
//
// [FFmpeg] shells out to ffmpeg and handles any container it can read. [MPEG]
// decodes MPEG-1 program streams in process. Both are best effort: a short or
// empty sequence is not an error here, consumers detect the end of the frames
// when they run out.
package decode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gen2brain/mpeg"
	"golang.org/x/image/bmp"

	"go.jacobcolvin.com/vidterm/frames"
)

const (
	// NameAuto picks a decoder from the video's extension.
	NameAuto = "auto"
	// NameFFmpeg selects [FFmpeg].
	NameFFmpeg = "ffmpeg"
	// NameMPEG selects [MPEG].
	NameMPEG = "mpeg"
)

var (
	// ErrDecoderNotFound indicates the decoder binary is not installed.
	ErrDecoderNotFound = errors.New("decoder not found")
	// ErrDecode indicates the video could not be decoded.
	ErrDecode = errors.New("decode video")
	// ErrUnknownDecoder indicates an unrecognized decoder name.
	ErrUnknownDecoder = errors.New("unknown decoder")
)

// Decoder writes the frames of a video, sampled at fps, to seq.
type Decoder interface {
	Decode(ctx context.Context, videoPath string, seq frames.Sequence, fps int) error
}

// Names returns the accepted decoder names.
func Names() []string {
	return []string{NameAuto, NameFFmpeg, NameMPEG}
}

// Select returns the decoder called name. [NameAuto] chooses [MPEG] for
// .mpg and .mpeg files and [FFmpeg] otherwise.
func Select(name, videoPath string, logger *slog.Logger) (Decoder, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch name {
	case NameAuto:
		switch strings.ToLower(filepath.Ext(videoPath)) {
		case ".mpg", ".mpeg":
			return &MPEG{Logger: logger}, nil
		}

		return &FFmpeg{Logger: logger}, nil

	case NameFFmpeg:
		return &FFmpeg{Logger: logger}, nil

	case NameMPEG:
		return &MPEG{Logger: logger}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownDecoder, name)
}

// FFmpeg extracts frames with the ffmpeg command.
type FFmpeg struct {
	Logger *slog.Logger
	// Binary defaults to "ffmpeg".
	Binary string
}

// Args returns the ffmpeg arguments used to extract frames.
func (f *FFmpeg) Args(videoPath string, seq frames.Sequence, fps int) []string {
	return []string{
		"-y",
		"-i", videoPath,
		"-r", strconv.Itoa(fps),
		seq.Pattern(),
	}
}

// Decode runs ffmpeg. A non-zero exit status is logged, not returned.
func (f *FFmpeg) Decode(ctx context.Context, videoPath string, seq frames.Sequence, fps int) error {
	bin := f.Binary
	if bin == "" {
		bin = "ffmpeg"
	}

	_, err := exec.LookPath(bin)
	if err != nil {
		return fmt.Errorf("%w: %s: install ffmpeg or use an MPEG-1 input", ErrDecoderNotFound, bin)
	}

	//nolint:gosec // videoPath and fps are operator-provided CLI arguments.
	cmd := exec.CommandContext(ctx, bin, f.Args(videoPath, seq, fps)...)

	out, err := cmd.CombinedOutput()

	f.logger().Debug("ffmpeg output", slog.String("output", string(out)))

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err != nil {
		f.logger().Warn("ffmpeg did not exit cleanly", slog.Any("err", err))
	}

	return nil
}

func (f *FFmpeg) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return f.Logger
}

// MPEG decodes MPEG-1 video in process and writes frames as BMP images,
// whatever the extension of the sequence.
type MPEG struct {
	Logger *slog.Logger
}

// Decode writes one frame per 1/fps seconds of presentation time, chosen by a
// [Sampler], up to the capacity of seq.
func (m *MPEG) Decode(ctx context.Context, videoPath string, seq frames.Sequence, fps int) error {
	if fps <= 0 {
		return fmt.Errorf("%w: fps must be positive", ErrDecode)
	}

	f, err := os.Open(videoPath) //nolint:gosec // Operator-provided input.
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}

	defer func() {
		closeErr := f.Close()
		if closeErr != nil {
			m.logger().Warn("closing video", slog.Any("err", closeErr))
		}
	}()

	mpg, err := mpeg.New(f)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if !mpg.HasHeaders() || mpg.NumVideoStreams() == 0 {
		return fmt.Errorf("%w: no video stream in %s", ErrDecode, videoPath)
	}

	mpg.SetAudioEnabled(false)

	sampler := NewSampler(fps, mpg.Framerate())
	n := 0

	for !mpg.HasEnded() {
		err := ctx.Err()
		if err != nil {
			return err
		}

		frame := mpg.DecodeVideo()
		if frame == nil {
			continue
		}

		copies := sampler.Take(frame.Time)
		if copies == 0 {
			continue
		}

		img := frame.RGBA()

		for range copies {
			if n == seq.Capacity() {
				m.logger().Warn("video has more frames than the sequence can hold",
					slog.Int("capacity", seq.Capacity()))

				return nil
			}

			n++

			path, err := seq.Path(n)
			if err != nil {
				return err
			}

			err = writeBMP(path, img)
			if err != nil {
				return err
			}
		}
	}

	m.logger().Debug("decoded frames", slog.Int("count", n))

	return nil
}

// Sampler maps decoded source frames onto a fixed output rate. Each output
// position k, at k/fps seconds, is filled with the source frame whose
// presentation time is nearest to it. Source frames between output positions
// are dropped and, when the output rate is higher than the source rate,
// source frames are repeated.
type Sampler struct {
	step float64
	half float64
	next int
}

// NewSampler creates a [Sampler] for output rate fps and a source of
// sourceRate frames per second. An unknown source rate (zero) falls back to
// picking the first frame within half an output interval of each position.
func NewSampler(fps int, sourceRate float64) *Sampler {
	step := 1 / float64(fps)

	half := step / 2
	if sourceRate > 0 {
		half = 1 / (2 * sourceRate)
	}

	return &Sampler{step: step, half: half}
}

// Take returns how many consecutive output frames the source frame presented
// at t seconds fills. Frames must be given in presentation order.
func (s *Sampler) Take(t float64) int {
	n := 0

	for float64(s.next)*s.step < t+s.half {
		s.next++
		n++
	}

	return n
}

func (m *MPEG) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return m.Logger
}

func writeBMP(path string, img image.Image) error {
	f, err := os.Create(path) //nolint:gosec // Frame paths come from the sequence.
	if err != nil {
		return fmt.Errorf("creating frame: %w", err)
	}

	err = bmp.Encode(f, img)
	if err != nil {
		//nolint:errcheck // Already failing.
		f.Close()

		return fmt.Errorf("encoding frame: %w", err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}

	return nil
}
