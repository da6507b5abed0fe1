package services

import (
	"archive/zip"
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

type ArchiveServicer interface {
	Inspect(data []byte) (ArchiveSummary, error)
	FileName(now time.Time) string
}

type ArchiveServiceConfig struct {
	FilePrefix string
}

type ArchiveService struct {
	config ArchiveServiceConfig
}

type ArchiveSummary struct {
	Files            []string
	UncompressedSize uint64
}

func NewArchiveService(config ArchiveServiceConfig) ArchiveService {
	if config.FilePrefix == "" {
		config.FilePrefix = "photos"
	}

	return ArchiveService{
		config: config,
	}
}

/*
FileName is the name the browser saves a bulk download under, e.g. photos_2024-05-01.zip.
*/
func (s ArchiveService) FileName(now time.Time) string {
	return fmt.Sprintf("%s_%s.zip", s.config.FilePrefix, now.UTC().Format("2006-01-02"))
}

func (s ArchiveService) Inspect(data []byte) (ArchiveSummary, error) {
	var (
		err    error
		reader *zip.Reader
	)

	result := ArchiveSummary{
		Files: []string{},
	}

	if reader, err = zip.NewReader(bytes.NewReader(data), int64(len(data))); err != nil {
		return result, fmt.Errorf("error reading zip archive: %w", err)
	}

	for _, f := range reader.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}

		result.Files = append(result.Files, filepath.Base(f.Name))
		result.UncompressedSize += f.UncompressedSize64
	}

	slog.Debug("inspected zip archive", "files", len(result.Files), "uncompressedSize", result.UncompressedSize)
	return result, nil
}
