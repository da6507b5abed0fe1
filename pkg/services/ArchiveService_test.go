package services

import (
	"archive/zip"
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	buf := bytes.Buffer{}
	w := zip.NewWriter(&buf)

	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestArchiveInspect(t *testing.T) {
	service := NewArchiveService(ArchiveServiceConfig{})
	data := buildZip(t, map[string]string{
		"sunset.jpg":   "12345",
		"mountain.png": "123",
	})

	summary, err := service.Inspect(data)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sunset.jpg", "mountain.png"}, summary.Files)
	assert.Equal(t, uint64(8), summary.UncompressedSize)
}

func TestArchiveInspectRejectsNonZip(t *testing.T) {
	service := NewArchiveService(ArchiveServiceConfig{})
	_, err := service.Inspect([]byte("not a zip"))
	assert.Error(t, err)
}

func TestArchiveFileName(t *testing.T) {
	service := NewArchiveService(ArchiveServiceConfig{})
	now := time.Date(2024, 7, 9, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "photos_2024-07-09.zip", service.FileName(now))
}
