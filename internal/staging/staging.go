package staging

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	commons3 "github.com/xxxsen/common/s3"

	"github.com/avelkin/linkvault/internal/config"
)

// Store keeps a copy of the raw export payload that started an import run,
// keyed by run id. Staged payloads are audit material only; the pipeline
// never reads them back.
type Store interface {
	Save(ctx context.Context, key string, data []byte) error
}

func New(cfg config.StagingConfig) (Store, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "local":
		return newLocalStore(cfg.Dir)
	case "s3":
		return newS3Store(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown staging type: %s", cfg.Type)
	}
}

type localStore struct {
	dir string
}

func newLocalStore(dir string) (*localStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("staging dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &localStore{dir: dir}, nil
}

func (s *localStore) Save(ctx context.Context, key string, data []byte) error {
	_ = ctx
	if key == "" {
		return fmt.Errorf("staging key is required")
	}
	target := filepath.Join(s.dir, filepath.Clean("/"+key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

type s3Store struct {
	client *commons3.S3Client
	prefix string
}

func newS3Store(cfg config.S3Config) (*s3Store, error) {
	client, err := commons3.New(
		commons3.WithEndpoint(cfg.Endpoint),
		commons3.WithSecret(cfg.SecretID, cfg.SecretKey),
		commons3.WithBucket(cfg.Bucket),
		commons3.WithRegion(cfg.Region),
		commons3.WithSSL(cfg.UseSSL),
	)
	if err != nil {
		return nil, err
	}
	return &s3Store{
		client: client,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (s *s3Store) Save(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("staging key is required")
	}
	objectKey := key
	if s.prefix != "" {
		objectKey = path.Join(s.prefix, key)
	}
	if _, err := s.client.Upload(ctx, objectKey, bytes.NewReader(data), int64(len(data))); err != nil {
		return err
	}
	return nil
}
