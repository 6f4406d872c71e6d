package fs

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavel-fokin/rdf-cubes/internal/artifacts"
)

func TestStorage(t *testing.T) {
	storage := NewStorage(t.TempDir())

	size, err := storage.Save("abc", strings.NewReader("<s> <p> <o> ."))
	require.NoError(t, err)
	assert.Equal(t, int64(13), size)
	assert.True(t, storage.Exists("abc"))

	content, err := storage.GetContent("abc")
	require.NoError(t, err)
	data, err := io.ReadAll(content)
	require.NoError(t, err)
	require.NoError(t, content.Close())
	assert.Equal(t, "<s> <p> <o> .", string(data))

	require.NoError(t, storage.Delete("abc"))
	assert.False(t, storage.Exists("abc"))
	assert.NoError(t, storage.Delete("abc"))

	_, err = storage.GetContent("abc")
	assert.ErrorIs(t, err, artifacts.ErrNotFound)
}
