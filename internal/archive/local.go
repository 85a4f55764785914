package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

type dirSource struct {
	dir string
}

// Dir serves archive blobs from a directory of files named "<pk>.<ext>",
// the layout produced by exports that ship blobs next to the JSON payload.
func Dir(dir string) (Source, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open archive dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("archive path is not a directory: %s", dir)
	}
	return &dirSource{dir: dir}, nil
}

func (s *dirSource) Find(ctx context.Context, linkPK int64) (*Blob, error) {
	_ = ctx
	matches, err := filepath.Glob(filepath.Join(s.dir, fmt.Sprintf("%d.*", linkPK)))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Strings(matches)
	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, err
	}
	return &Blob{Name: filepath.Base(matches[0]), Data: data}, nil
}
