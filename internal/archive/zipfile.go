package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

type zipSource struct {
	reader *zip.ReadCloser
	files  map[int64]*zip.File
}

// FromZipBytes indexes an in-memory zip bundle. Unlike OpenZip there is no
// handle to close, so the source can outlive the request that carried it.
func FromZipBytes(data []byte) (Source, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read archive bundle: %w", err)
	}
	files := indexZipFiles(reader.File)
	return &memZipSource{files: files}, nil
}

type memZipSource struct {
	files map[int64]*zip.File
}

func (s *memZipSource) Find(ctx context.Context, linkPK int64) (*Blob, error) {
	_ = ctx
	return readZipBlob(s.files, linkPK)
}

// OpenZip serves archive blobs from a zip bundle whose entries are named
// "<pk>.<ext>" (directories inside the bundle are ignored for matching).
// The caller owns Close.
func OpenZip(zipPath string) (*zipSource, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open archive bundle: %w", err)
	}
	return &zipSource{reader: reader, files: indexZipFiles(reader.File)}, nil
}

func (s *zipSource) Find(ctx context.Context, linkPK int64) (*Blob, error) {
	_ = ctx
	return readZipBlob(s.files, linkPK)
}

func indexZipFiles(entries []*zip.File) map[int64]*zip.File {
	files := make(map[int64]*zip.File)
	for _, file := range entries {
		if file.FileInfo().IsDir() {
			continue
		}
		base := path.Base(file.Name)
		stem := strings.TrimSuffix(base, path.Ext(base))
		pk, err := strconv.ParseInt(stem, 10, 64)
		if err != nil {
			continue
		}
		if _, ok := files[pk]; !ok {
			files[pk] = file
		}
	}
	return files
}

func readZipBlob(files map[int64]*zip.File, linkPK int64) (*Blob, error) {
	file, ok := files[linkPK]
	if !ok {
		return nil, nil
	}
	opened, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer opened.Close()
	data, err := io.ReadAll(opened)
	if err != nil {
		return nil, err
	}
	return &Blob{Name: path.Base(file.Name), Data: data}, nil
}

func (s *zipSource) Close() error {
	return s.reader.Close()
}
