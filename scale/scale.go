// Package scale resizes frame images to the width expected by the text-art
// service while preserving their aspect ratio.
//
// Frames are rewritten in place, in the format they were read in. A frame that
// is missing or cannot be decoded is not an error: it marks the end of the
// frame sequence.
package scale

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"go.jacobcolvin.com/vidterm/frames"
)

const (
	// TargetWidth is the pixel width frames are scaled to.
	TargetWidth = 640
	// TerminalColumns is the terminal width, in cells, the service output is
	// laid out for.
	TerminalColumns = 100
)

var (
	// ErrEmptyImage indicates a decoded image with no pixels.
	ErrEmptyImage = errors.New("empty image")
	// ErrUnsupportedFormat indicates an image format that cannot be written
	// back.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Geometry is the scaled size of a frame, in pixels and in terminal cells.
// The cell size is advisory: it is what the terminal should be set to for the
// rendered output to line up.
type Geometry struct {
	Width   int
	Height  int
	Columns int
	Rows    int
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d", g.Columns, g.Rows)
}

// Target returns the [Geometry] for an image of w by h pixels scaled to
// [TargetWidth]. Heights are floored; they are computed exactly so scaling an
// already scaled image leaves it unchanged.
func Target(w, h int) Geometry {
	return target(TargetWidth, TerminalColumns, w, h)
}

func target(width, columns, w, h int) Geometry {
	return Geometry{
		Width:   width,
		Height:  width * h / w,
		Columns: columns,
		Rows:    columns * h / w,
	}
}

// Progress receives one tick per scaled frame.
// [*github.com/schollz/progressbar/v3.ProgressBar] satisfies it.
type Progress interface {
	Add(n int) error
	Finish() error
}

// Summary reports the outcome of [Scaler.ScaleSequence].
type Summary struct {
	Geometry Geometry
	Scaled   int
}

// Scaler resizes frame images.
//
// Create instances with [New].
type Scaler struct {
	logger  *slog.Logger
	width   int
	columns int
}

// Option configures a [Scaler].
type Option func(*Scaler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scaler) {
		s.logger = l
	}
}

// WithWidth overrides [TargetWidth].
func WithWidth(width int) Option {
	return func(s *Scaler) {
		s.width = width
	}
}

// New creates a [Scaler].
func New(opts ...Option) *Scaler {
	s := &Scaler{
		logger:  slog.New(slog.DiscardHandler),
		width:   TargetWidth,
		columns: TerminalColumns,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Scale resizes the image at path and overwrites it.
//
// It returns ok == false, with a nil error, when there is no decodable image
// at path.
func (s *Scaler) Scale(path string) (Geometry, bool, error) {
	img, format, ok := s.read(path)
	if !ok {
		return Geometry{}, false, nil
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return Geometry{}, false, fmt.Errorf("%w: %s", ErrEmptyImage, path)
	}

	g := target(s.width, s.columns, b.Dx(), b.Dy())
	if g.Height == 0 {
		return Geometry{}, false, fmt.Errorf("%w: %s scales to zero height", ErrEmptyImage, path)
	}

	dst := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	err := write(path, format, dst)
	if err != nil {
		return Geometry{}, false, err
	}

	return g, true, nil
}

// ScaleSequence scales frames 1..limit of seq, stopping at the first frame
// that is missing or cannot be decoded. The advisory terminal geometry of the
// first frame is logged once. progress may be nil.
func (s *Scaler) ScaleSequence(ctx context.Context, seq frames.Sequence, limit int, progress Progress) (Summary, error) {
	var sum Summary

	err := seq.CheckLimit(limit)
	if err != nil {
		return sum, err
	}

	if progress != nil {
		defer func() {
			//nolint:errcheck // Progress output is best effort.
			progress.Finish()
		}()
	}

	for i := 1; i <= limit; i++ {
		err := ctx.Err()
		if err != nil {
			return sum, err
		}

		path, err := seq.Path(i)
		if err != nil {
			return sum, err
		}

		s.logger.Debug("trying to scale", slog.String("path", path))

		g, ok, err := s.Scale(path)
		if err != nil {
			return sum, err
		}

		if !ok {
			s.logger.Debug("no more frames to scale", slog.Int("frame", i))

			break
		}

		if sum.Scaled == 0 {
			sum.Geometry = g
			s.logger.Info("set terminal to "+g.String(),
				slog.Int("columns", g.Columns),
				slog.Int("rows", g.Rows),
			)
		}

		sum.Scaled++

		if progress != nil {
			//nolint:errcheck // Progress output is best effort.
			progress.Add(1)
		}
	}

	return sum, nil
}

func (s *Scaler) read(path string) (image.Image, string, bool) {
	f, err := os.Open(path) //nolint:gosec // Frame paths come from the sequence.
	if err != nil {
		s.logger.Debug("cannot open frame", slog.String("path", path), slog.Any("err", err))

		return nil, "", false
	}

	defer func() {
		closeErr := f.Close()
		if closeErr != nil {
			s.logger.Warn("closing frame", slog.String("path", path), slog.Any("err", closeErr))
		}
	}()

	img, format, err := image.Decode(f)
	if err != nil {
		s.logger.Debug("cannot decode frame", slog.String("path", path), slog.Any("err", err))

		return nil, "", false
	}

	return img, format, true
}

// write replaces path with img, encoded as format, through a temporary file
// in the same directory.
func write(path, format string, img image.Image) error {
	var encode func(io.Writer, image.Image) error

	switch format {
	case "bmp":
		encode = bmp.Encode
	case "png":
		encode = png.Encode
	case "jpeg":
		encode = func(w io.Writer, m image.Image) error {
			return jpeg.Encode(w, m, &jpeg.Options{Quality: 95})
		}

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".scale-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	err = encode(tmp, img)
	if err != nil {
		//nolint:errcheck // Already failing.
		tmp.Close()
		//nolint:errcheck // Already failing.
		os.Remove(tmp.Name())

		return fmt.Errorf("encoding %s: %w", path, err)
	}

	err = tmp.Close()
	if err != nil {
		//nolint:errcheck // Already failing.
		os.Remove(tmp.Name())

		return fmt.Errorf("writing %s: %w", path, err)
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	return nil
}
