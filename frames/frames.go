package frames

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// DefaultPadding is the identifier width used when none is configured.
	DefaultPadding = 3
	// DefaultExt is the image extension the decoder writes frames with.
	DefaultExt = "bmp"

	maxPadding = 9
)

var (
	// ErrOutOfRange indicates a frame position outside the capacity of the
	// padding width.
	ErrOutOfRange = errors.New("frame position out of range")
	// ErrInvalidPadding indicates an unusable zero-padding width.
	ErrInvalidPadding = errors.New("invalid padding width")
	// ErrNotDirectory indicates the frame directory path is taken by a
	// non-directory.
	ErrNotDirectory = errors.New("path exists but is not a directory")
	// ErrNoName indicates a video path that leaves nothing to name the frame
	// directory after.
	ErrNoName = errors.New("cannot name frame directory")
)

// Capacity returns the largest position representable with the given padding
// width, e.g. 999 for a width of 3.
func Capacity(padding int) int {
	n := 1
	for range padding {
		n *= 10
	}

	return n - 1
}

// Format returns the identifier for position i (1-based): the decimal form of
// i, zero-padded to padding digits.
//
// Positions that do not fit are rejected with [ErrOutOfRange] rather than
// truncated.
func Format(padding, i int) (string, error) {
	if padding < 1 || padding > maxPadding {
		return "", fmt.Errorf("%w: %d", ErrInvalidPadding, padding)
	}

	if i < 1 || i > Capacity(padding) {
		return "", fmt.Errorf("%w: %d not in [1, %d]", ErrOutOfRange, i, Capacity(padding))
	}

	id := strconv.Itoa(i)

	return strings.Repeat("0", padding-len(id)) + id, nil
}

// Sequence describes a contiguous, 1-indexed series of frame images stored as
// <Dir>/<id>.<Ext>.
//
// Create instances with [NewSequence].
type Sequence struct {
	Dir     string
	Ext     string
	Padding int
}

// NewSequence validates padding and returns a [Sequence].
// An empty ext defaults to [DefaultExt].
func NewSequence(dir string, padding int, ext string) (Sequence, error) {
	if padding < 1 || padding > maxPadding {
		return Sequence{}, fmt.Errorf("%w: %d", ErrInvalidPadding, padding)
	}

	if ext == "" {
		ext = DefaultExt
	}

	return Sequence{
		Dir:     dir,
		Ext:     strings.TrimPrefix(ext, "."),
		Padding: padding,
	}, nil
}

// Capacity returns the number of frames the sequence can address.
func (s Sequence) Capacity() int {
	return Capacity(s.Padding)
}

// ID returns the identifier of frame i.
func (s Sequence) ID(i int) (string, error) {
	return Format(s.Padding, i)
}

// Path returns the file path of frame i.
func (s Sequence) Path(i int) (string, error) {
	id, err := s.ID(i)
	if err != nil {
		return "", err
	}

	return filepath.Join(s.Dir, id+"."+s.Ext), nil
}

// Pattern returns the printf-style output pattern handed to external
// decoders, e.g. "clip/%03d.bmp".
func (s Sequence) Pattern() string {
	return filepath.Join(s.Dir, fmt.Sprintf("%%0%dd.%s", s.Padding, s.Ext))
}

// CheckLimit reports whether limit frames can be addressed by the sequence.
// Call it before iterating so an oversized bound surfaces as a configuration
// error.
func (s Sequence) CheckLimit(limit int) error {
	if limit < 1 || limit > s.Capacity() {
		return fmt.Errorf("%w: limit %d not in [1, %d]", ErrOutOfRange, limit, s.Capacity())
	}

	return nil
}

// NameFor returns the frame directory name for a video: its base name without
// the last extension. Names that would point at the working directory or its
// parent, such as the one of ".mp4", are rejected with [ErrNoName].
func NameFor(videoPath string) (string, error) {
	base := filepath.Base(videoPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	switch name {
	case "", ".", "..":
		return "", fmt.Errorf("%w: %q", ErrNoName, videoPath)
	}

	return name, nil
}

// EnsureDir makes sure path is a directory, creating it if needed.
func EnsureDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrNotDirectory, path)
		}

		return nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	err = os.Mkdir(path, 0o750)
	if err != nil {
		return fmt.Errorf("creating frame directory: %w", err)
	}

	return nil
}
