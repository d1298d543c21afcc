package textart

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"go.jacobcolvin.com/vidterm/glyph"
)

// Converter turns frame images into ANSI cell strings by way of the service.
//
// Create instances with [NewConverter].
type Converter struct {
	client   *Client
	encoder  *glyph.Encoder
	dumpPath string
}

// ConverterOption configures a [Converter].
type ConverterOption func(*Converter)

// WithDump writes the decoded markup of every converted frame to path,
// replacing the previous one.
func WithDump(path string) ConverterOption {
	return func(c *Converter) {
		c.dumpPath = path
	}
}

// NewConverter creates a [Converter].
func NewConverter(client *Client, encoder *glyph.Encoder, opts ...ConverterOption) *Converter {
	c := &Converter{
		client:  client,
		encoder: encoder,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Convert uploads the frame at path and encodes the returned markup.
// Payloads that cannot be decoded or encoded are [ErrMalformedResponse].
func (c *Converter) Convert(ctx context.Context, path string) (string, error) {
	env, err := c.client.Fetch(ctx, path)
	if err != nil {
		return "", err
	}

	raw, err := glyph.DecodePayload(env.Contents.TextArt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if c.dumpPath != "" {
		err := os.WriteFile(c.dumpPath, raw, 0o600)
		if err != nil {
			return "", fmt.Errorf("writing markup dump: %w", err)
		}
	}

	cells, err := c.encoder.Encode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return cells, nil
}
