package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDisk(t *testing.T) {
	ctx := context.Background()
	disk, err := Open(ctx, Config{Driver: "local", Root: t.TempDir(), BaseURL: "http://cdn.test/files/"})
	require.NoError(t, err)

	ok, err := disk.Exists(ctx, "invoices/o-1.html")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = disk.Get(ctx, "invoices/o-1.html")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, disk.Put(ctx, "invoices/o-1.html", []byte("<h1>hi</h1>"), "text/html"))
	ok, err = disk.Exists(ctx, "invoices/o-1.html")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := disk.Get(ctx, "invoices/o-1.html")
	require.NoError(t, err)
	assert.Equal(t, "<h1>hi</h1>", string(data))
	assert.Equal(t, "http://cdn.test/files/invoices/o-1.html", disk.URL("invoices/o-1.html"))

	require.NoError(t, disk.Put(ctx, "invoices/o-1.html", []byte("v2"), ""))
	data, _ = disk.Get(ctx, "invoices/o-1.html")
	assert.Equal(t, "v2", string(data))

	entries, err := os.ReadDir(filepath.Join(disk.(*LocalDisk).Root(), "invoices"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	require.NoError(t, disk.Delete(ctx, "invoices/o-1.html"))
	require.NoError(t, disk.Delete(ctx, "invoices/o-1.html"))
}

func TestLocalDiskRejectsEscape(t *testing.T) {
	disk, err := NewLocalDisk(t.TempDir(), "")
	require.NoError(t, err)
	assert.Error(t, disk.Put(context.Background(), "../outside.txt", []byte("x"), ""))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "ftp"})
	assert.Error(t, err)

	_, err = Open(context.Background(), Config{Driver: "s3"})
	assert.ErrorContains(t, err, "S3_BUCKET")
}
