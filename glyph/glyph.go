// Package glyph turns styled span markup into a stream of ANSI-colored cells.
//
// The markup is produced by a remote text-art service: every rendered
// character is a span carrying a single color declaration, e.g.
//
//	<span style="color:#ff0000;">#</span>
//
// Each span becomes one [palette.Cell], in document order. Extracting the
// color from the style attribute is a narrow contract of the upstream markup,
// isolated behind [StyleParser]; it is not CSS parsing.
package glyph

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"go.jacobcolvin.com/vidterm/palette"
)

var (
	// ErrDecodePayload indicates the base64 payload could not be decoded.
	ErrDecodePayload = errors.New("decode payload")
	// ErrMalformedMarkup indicates markup that does not follow the span
	// contract.
	ErrMalformedMarkup = errors.New("malformed markup")
)

// StyleParser extracts a color value from a span's style attribute.
type StyleParser interface {
	Color(style string) (string, error)
}

// TailParser reads the value after the final ':' of a style declaration,
// without a trailing ';'. Styles must hold exactly one declaration, and it must
// be the color.
type TailParser struct{}

// Color implements [StyleParser].
func (TailParser) Color(style string) (string, error) {
	i := strings.LastIndexByte(style, ':')
	if i < 0 {
		return "", fmt.Errorf("%w: no declaration in style %q", ErrMalformedMarkup, style)
	}

	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(style[i+1:]), ";")), nil
}

// Encoder converts span markup to ANSI cells.
//
// Create instances with [NewEncoder].
type Encoder struct {
	parser StyleParser
	logger *slog.Logger
}

// Option configures an [Encoder].
type Option func(*Encoder)

// WithStyleParser replaces the default [TailParser].
func WithStyleParser(p StyleParser) Option {
	return func(e *Encoder) {
		e.parser = p
	}
}

// WithLogger sets the logger used for per-span diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Encoder) {
		e.logger = l
	}
}

// NewEncoder creates an [Encoder].
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{
		parser: TailParser{},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// DecodePayload returns the markup in a base64 payload. Line breaks in the
// payload are ignored.
func DecodePayload(payload string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(payload), ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodePayload, err)
	}

	return raw, nil
}

// EncodePayload decodes a base64 markup payload with [DecodePayload] and
// encodes it with [Encoder.Encode].
func (e *Encoder) EncodePayload(payload string) (string, error) {
	raw, err := DecodePayload(payload)
	if err != nil {
		return "", err
	}

	return e.Encode(bytes.NewReader(raw))
}

// Encode returns the concatenation of one cell per span in r, in document
// order.
func (e *Encoder) Encode(r io.Reader) (string, error) {
	var sb strings.Builder

	spans := 0
	z := html.NewTokenizer(r)

	for {
		tt := z.Next()

		switch tt {
		case html.ErrorToken:
			err := z.Err()
			if !errors.Is(err, io.EOF) {
				return "", fmt.Errorf("%w: %w", ErrMalformedMarkup, err)
			}

			if spans == 0 {
				return "", fmt.Errorf("%w: no spans", ErrMalformedMarkup)
			}

			return sb.String(), nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "span" {
				continue
			}

			cell, err := e.cell(tok)
			if err != nil {
				return "", err
			}

			sb.WriteString(cell.String())

			spans++

		default:
		}
	}
}

func (e *Encoder) cell(tok html.Token) (palette.Cell, error) {
	for _, attr := range tok.Attr {
		if attr.Key != "style" {
			continue
		}

		hex, err := e.parser.Color(attr.Val)
		if err != nil {
			return palette.Cell{}, err
		}

		e.logger.Debug("span color", slog.String("color", hex))

		c, err := palette.Quantize(hex)
		if err != nil {
			return palette.Cell{}, fmt.Errorf("%w: %w", ErrMalformedMarkup, err)
		}

		return palette.Cell{Color: c}, nil
	}

	return palette.Cell{}, fmt.Errorf("%w: span without style", ErrMalformedMarkup)
}
