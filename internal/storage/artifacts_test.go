package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalArtifactsRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "blast_results")
	store := &LocalArtifacts{Dir: dir}

	require.NoError(t, store.SaveResult(ctx, "job1", "P01308", []byte("<BlastOutput/>")))

	_, err := os.Stat(filepath.Join(dir, "job1_P01308.xml"))
	require.NoError(t, err)

	data, err := store.LoadResult(ctx, "job1", "P01308")
	require.NoError(t, err)
	assert.Equal(t, "<BlastOutput/>", string(data))

	_, err = store.LoadResult(ctx, "job1", "missing")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestLocalArtifactsRemoveJob(t *testing.T) {
	ctx := context.Background()
	store := &LocalArtifacts{Dir: t.TempDir()}

	require.NoError(t, store.SaveResult(ctx, "job1", "A1", []byte("a")))
	require.NoError(t, store.SaveResult(ctx, "job1", "A2", []byte("b")))
	require.NoError(t, store.SaveResult(ctx, "job2", "A1", []byte("c")))

	require.NoError(t, store.RemoveJob(ctx, "job1"))

	_, err := store.LoadResult(ctx, "job1", "A1")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	data, err := store.LoadResult(ctx, "job2", "A1")
	require.NoError(t, err)
	assert.Equal(t, "c", string(data))
}

func TestObjectArtifactKey(t *testing.T) {
	a := NewObjectArtifacts(nil)
	assert.Equal(t, "results/job1/NP_000198.1.xml", a.key("job1", "NP_000198.1"))
	assert.Equal(t, "results/job1/.._.._etc_passwd.xml", a.key("job1", "../../etc/passwd"))
}

func TestSanitizePathToken(t *testing.T) {
	assert.Equal(t, "P01308", sanitizePathToken(" P01308 "))
	assert.Equal(t, "a_b", sanitizePathToken("a/b"))
	assert.Equal(t, "_", sanitizePathToken(".."))
	assert.Equal(t, "_", sanitizePathToken(""))
}
