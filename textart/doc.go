// Package textart is a client for a remote image-to-text-art service.
//
// A frame is uploaded as a multipart form together with an output format and
// an API credential. The service answers with a JSON envelope whose payload is
// base64-encoded span markup, which a [Converter] hands to a
// [go.jacobcolvin.com/vidterm/glyph.Encoder]:
//
//	client := textart.NewClient(secret, textart.WithTimeout(5*time.Second))
//	conv := textart.NewConverter(client, glyph.NewEncoder())
//	cells, err := conv.Convert(ctx, "clip/001.bmp")
//
// Errors are classified so callers can tell a missing frame ([ErrReadFrame])
// from a failure worth skipping ([ErrTransient]) and from one that should stop
// playback ([ErrRejected], [ErrMalformedResponse]).
package textart
