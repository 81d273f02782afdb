package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndOpen(t *testing.T) {
	dir := t.TempDir()
	files, err := NewLocalStorage(dir)
	require.NoError(t, err)

	rel, err := files.Save("risks/2020SP.csv", []byte("student_id\n"))
	require.NoError(t, err)
	assert.Equal(t, "risks/2020SP.csv", rel)

	f, err := files.Open(rel)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "student_id\n", string(body))
}

func TestLocalStorageStaysInsideBase(t *testing.T) {
	dir := t.TempDir()
	files, err := NewLocalStorage(filepath.Join(dir, "exports"))
	require.NoError(t, err)

	rel, err := files.Save("../../escape.csv", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "escape.csv", rel)
	assert.Equal(t, filepath.Join(dir, "exports", "escape.csv"), files.Path("../escape.csv"))

	_, err = os.Stat(filepath.Join(dir, "escape.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	files, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = files.Save("risks/old.csv", []byte("old"))
	require.NoError(t, err)
	_, err = files.Save("risks/new.csv", []byte("new"))
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(files.Path("risks/old.csv"), past, past))

	deleted, err := files.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"risks/old.csv"}, deleted)
	_, err = os.Stat(files.Path("risks/new.csv"))
	assert.NoError(t, err)
}
