package archive

import (
	"context"

	"github.com/avelkin/linkvault/internal/model"
)

// Blob is one page-archive payload attached to a link during import.
type Blob struct {
	Name string
	Data []byte
}

// Source looks up the archive blob for a legacy link pk. A missing blob is
// not an error: the link is simply created without an attachment.
type Source interface {
	Find(ctx context.Context, linkPK int64) (*Blob, error)
}

type inlineSource struct {
	blobs map[int64]*Blob
}

// FromExport builds a Source from the archive blobs bundled inside the
// export payload itself. When a link has several entries the last one wins.
func FromExport(archives []model.LegacyArchive) Source {
	blobs := make(map[int64]*Blob, len(archives))
	for _, entry := range archives {
		if len(entry.Data) == 0 {
			continue
		}
		name := entry.Name
		if name == "" {
			name = "archive.html"
		}
		blobs[entry.Link] = &Blob{Name: name, Data: entry.Data}
	}
	return &inlineSource{blobs: blobs}
}

func (s *inlineSource) Find(ctx context.Context, linkPK int64) (*Blob, error) {
	_ = ctx
	return s.blobs[linkPK], nil
}
