package artifacts_test

import (
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavel-fokin/rdf-cubes/internal/artifacts"
	"github.com/pavel-fokin/rdf-cubes/internal/fs"
	"github.com/pavel-fokin/rdf-cubes/internal/sqlite"
)

const graph = "<http://example.org/obs/1> <http://purl.org/linked-data/cube#dataSet> <http://example.org/ds> .\n"

func newService(t *testing.T, ttl time.Duration) (*artifacts.Service, *fs.Storage) {
	t.Helper()
	dir := t.TempDir()
	repo, err := sqlite.NewRepository(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	storage := fs.NewStorage(filepath.Join(dir, "data"))
	return artifacts.NewService(storage, repo, "test-key", ttl), storage
}

func signature(t *testing.T, rawURL string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Query().Get("signature")
}

func save(t *testing.T, svc *artifacts.Service) *artifacts.SaveResult {
	t.Helper()
	result, err := svc.Save(&artifacts.SaveRequest{
		Name:     "knowledge-graph.nt",
		MimeType: "text/turtle",
		Source:   "report.csv",
		Measure:  "value",
		Content:  strings.NewReader(graph),
	})
	require.NoError(t, err)
	return result
}

func TestSaveAndDownload(t *testing.T) {
	svc, _ := newService(t, time.Hour)

	result := save(t, svc)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, int64(len(graph)), result.Size)
	assert.Len(t, result.Checksum, 64)
	assert.True(t, strings.HasPrefix(result.URL, "/v1/artifacts/"+result.ID+"?signature="))

	artifact, content, err := svc.Download(result.ID, signature(t, result.URL))
	require.NoError(t, err)
	defer content.Close()

	data, err := io.ReadAll(content)
	require.NoError(t, err)
	assert.Equal(t, graph, string(data))
	assert.Equal(t, "text/turtle", artifact.MimeType)
	assert.Equal(t, "report.csv", artifact.Source)
	assert.Equal(t, "value", artifact.Measure)
	assert.Equal(t, result.Checksum, artifact.Checksum)
}

func TestDownloadRejectsBadSignature(t *testing.T) {
	svc, _ := newService(t, time.Hour)
	result := save(t, svc)

	_, _, err := svc.Download(result.ID, "deadbeef")
	assert.ErrorIs(t, err, artifacts.ErrInvalidSignature)

	// A signature is bound to its id
	other := save(t, svc)
	_, _, err = svc.Download(result.ID, signature(t, other.URL))
	assert.ErrorIs(t, err, artifacts.ErrInvalidSignature)
}

func TestDownloadExpired(t *testing.T) {
	svc, storage := newService(t, -time.Minute)
	result := save(t, svc)

	_, _, err := svc.Download(result.ID, signature(t, result.URL))
	assert.ErrorIs(t, err, artifacts.ErrExpired)
	assert.False(t, storage.Exists(result.ID))

	_, _, err = svc.Download(result.ID, signature(t, result.URL))
	assert.ErrorIs(t, err, artifacts.ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc, storage := newService(t, time.Hour)
	result := save(t, svc)

	require.NoError(t, svc.Delete(result.ID))
	assert.False(t, storage.Exists(result.ID))

	err := svc.Delete(result.ID)
	assert.ErrorIs(t, err, artifacts.ErrNotFound)
}

func TestCleanupExpired(t *testing.T) {
	svc, storage := newService(t, -time.Hour)
	first := save(t, svc)
	second := save(t, svc)

	removed, err := svc.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.False(t, storage.Exists(first.ID))
	assert.False(t, storage.Exists(second.ID))

	list, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestList(t *testing.T) {
	svc, _ := newService(t, time.Hour)
	save(t, svc)
	save(t, svc)

	list, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, list, 2)

	removed, err := svc.CleanupExpired()
	require.NoError(t, err)
	assert.Zero(t, removed)
}
