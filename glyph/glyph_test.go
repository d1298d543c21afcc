package glyph_test

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/vidterm/glyph"
	"go.jacobcolvin.com/vidterm/palette"
)

const (
	blackBg = "\x1b[40;1m"
	whiteBg = "\x1b[47;1m"
	redBg   = "\x1b[41;1m"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err    error
		markup string
		want   string
	}{
		"black then white": {
			markup: `<span style="color:#000000;">#</span><span style="color:#ffffff;">#</span>`,
			want:   blackBg + " " + whiteBg + " ",
		},
		"ignores other elements": {
			markup: `<pre><b>x</b><span style="color:#ff0000;">@</span><br/>` +
				`<span style="color:#000000">.</span></pre>`,
			want: redBg + " " + blackBg + " ",
		},
		"whitespace around value": {
			markup: `<span style="color: #ffffff ;">#</span>`,
			want:   whiteBg + " ",
		},
		"last declaration wins": {
			markup: `<span style="background:#000000;color:#ffffff;">#</span>`,
			want:   whiteBg + " ",
		},
		"no spans": {
			markup: `<pre></pre>`,
			err:    glyph.ErrMalformedMarkup,
		},
		"span without style": {
			markup: `<span>#</span>`,
			err:    glyph.ErrMalformedMarkup,
		},
		"named color": {
			markup: `<span style="color:red;">#</span>`,
			err:    glyph.ErrMalformedMarkup,
		},
		"style without declaration": {
			markup: `<span style="red">#</span>`,
			err:    glyph.ErrMalformedMarkup,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := glyph.NewEncoder().Encode(strings.NewReader(tc.markup))
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				assert.Empty(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEncodePayload(t *testing.T) {
	t.Parallel()

	markup := `<span style="color:#000000;">#</span><span style="color:#ffffff;">#</span>`
	encoded := base64.StdEncoding.EncodeToString([]byte(markup))

	t.Run("decodes", func(t *testing.T) {
		t.Parallel()

		got, err := glyph.NewEncoder().EncodePayload(encoded)
		require.NoError(t, err)
		assert.Equal(t, blackBg+" "+whiteBg+" ", got)
	})

	t.Run("tolerates line breaks", func(t *testing.T) {
		t.Parallel()

		wrapped := encoded[:10] + "\n" + encoded[10:20] + "\r\n" + encoded[20:]

		got, err := glyph.NewEncoder().EncodePayload(wrapped)
		require.NoError(t, err)
		assert.Equal(t, blackBg+" "+whiteBg+" ", got)
	})

	t.Run("invalid base64 fails", func(t *testing.T) {
		t.Parallel()

		got, err := glyph.NewEncoder().EncodePayload("not*base64!")
		require.ErrorIs(t, err, glyph.ErrDecodePayload)
		assert.Empty(t, got)
	})

	t.Run("empty payload fails", func(t *testing.T) {
		t.Parallel()

		_, err := glyph.NewEncoder().EncodePayload("")
		require.ErrorIs(t, err, glyph.ErrMalformedMarkup)
	})
}

func TestTailParser(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		style   string
		want    string
		wantErr bool
	}{
		"plain":         {style: "color:#123456;", want: "#123456"},
		"no semicolon":  {style: "color:#123456", want: "#123456"},
		"spaced":        {style: "color : #123456 ; ", want: "#123456"},
		"multiple":      {style: "font-weight:bold;color:#abcdef;", want: "#abcdef"},
		"no colon":      {style: "#123456", wantErr: true},
		"empty value":   {style: "color:;", want: ""},
		"uppercase hex": {style: "color:#ABCDEF;", want: "#ABCDEF"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := glyph.TailParser{}.Color(tc.style)
			if tc.wantErr {
				require.ErrorIs(t, err, glyph.ErrMalformedMarkup)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

type fixedParser struct {
	color string
	err   error
}

func (p fixedParser) Color(string) (string, error) {
	return p.color, p.err
}

func TestWithStyleParser(t *testing.T) {
	t.Parallel()

	markup := `<span style="anything">#</span><span style="else">#</span>`

	got, err := glyph.NewEncoder(glyph.WithStyleParser(fixedParser{color: "#ff0000"})).
		Encode(strings.NewReader(markup))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat(palette.Cell{Color: palette.Red}.String(), 2), got)

	errParse := errors.New("parse")

	_, err = glyph.NewEncoder(glyph.WithStyleParser(fixedParser{err: errParse})).
		Encode(strings.NewReader(markup))
	require.ErrorIs(t, err, errParse)
}
