package version_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/vidterm/version"
)

func TestPrint(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, version.Print(&buf))

	out := buf.String()
	assert.Contains(t, out, "vidterm "+version.Short())
	assert.Contains(t, out, version.GoVersion)
	assert.Contains(t, out, version.Revision)
}

func TestUserAgent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "vidterm/"+version.Short(), version.UserAgent())
	assert.NotEmpty(t, version.Short())
}
