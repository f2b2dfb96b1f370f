package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsS3URI(t *testing.T) {
	require.True(t, IsS3URI("s3://bucket/key"))
	require.False(t, IsS3URI("/tmp/out"))
	require.False(t, IsS3URI("data/out"))
}

func TestJoin(t *testing.T) {
	require.Equal(t, "s3://bucket/prefix/batch_0.parquet", Join("s3://bucket/prefix/", "batch_0.parquet"))
	require.Equal(t, filepath.Join("out", "batch_0.parquet"), Join("out", "batch_0.parquet"))
}

func TestLocalWriterAtomic(t *testing.T) {
	st := NewStore("")
	dest := filepath.Join(t.TempDir(), "nested", "out.parquet")

	w, err := st.NewWriter(dest)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)

	// Not visible before Close.
	_, err = os.Stat(dest)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, w.Close())
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestLocalWriterDiscard(t *testing.T) {
	st := NewStore("")
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.parquet")

	w, err := st.NewWriter(dest)
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, w.Discard())

	// Neither the destination nor any temp file remains.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasSuffix(e.Name(), "out.parquet"), "leftover file %s", e.Name())
	}
}

func TestLocalExists(t *testing.T) {
	st := NewStore("")
	dir := t.TempDir()
	path := filepath.Join(dir, "present")

	ok, err := st.Exists(path)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	ok, err = st.Exists(path)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestReadFile(t *testing.T) {
	st := NewStore("")
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("contents"), 0o644))

	data, err := st.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("contents"), data)
}

func TestSplitS3URI(t *testing.T) {
	bucket, key, err := splitS3URI("s3://my-bucket/some/prefix/batch_1.parquet")
	require.NoError(t, err)
	require.Equal(t, "my-bucket", bucket)
	require.Equal(t, "some/prefix/batch_1.parquet", key)

	_, _, err = splitS3URI("http://not-s3/key")
	require.Error(t, err)
	_, _, err = splitS3URI("s3://")
	require.Error(t, err)
}
