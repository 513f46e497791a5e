package pagemem

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds object storage settings for MinIO or any S3-compatible store.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"accessKey" json:"accessKey"`
	SecretKey string `yaml:"secretKey" json:"secretKey"`
	UseSSL    bool   `yaml:"useSSL" json:"useSSL"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	Prefix    string `yaml:"prefix" json:"prefix"`
}

// Validate checks the required fields.
func (c MinIOConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("minio endpoint is required")
	}
	if c.AccessKey == "" {
		return fmt.Errorf("minio accessKey is required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("minio secretKey is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("minio bucket is required")
	}
	return nil
}

// ObjectPersister uploads the data path to <bucket>/<prefix>/<run>/DataOnDisk/...
type ObjectPersister struct {
	Source string
	client *minio.Client
	bucket string
	prefix string
}

// NewObjectPersister connects to the configured store.
func NewObjectPersister(res Resource, cfg MinIOConfig) (*ObjectPersister, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client failed: %w", err)
	}
	return &ObjectPersister{
		Source: res.WithDefaults().DataPath,
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// ObjectKey returns the key for a file at rel inside the snapshot of runDir.
func (p *ObjectPersister) ObjectKey(runDir, rel string) string {
	return path.Join(p.prefix, filepath.Base(runDir), SnapshotName, rel)
}

// Persist uploads every regular file. The bucket must already exist.
func (p *ObjectPersister) Persist(ctx context.Context, runDir string) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("minio bucket check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("minio bucket %q does not exist", p.bucket)
	}

	return walkFiles(ctx, p.Source, func(file, rel string, d fs.DirEntry) error {
		if !d.Type().IsRegular() {
			return nil
		}
		_, err := p.client.FPutObject(ctx, p.bucket, p.ObjectKey(runDir, rel), file, minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		})
		if err != nil {
			return fmt.Errorf("minio put object failed: %w", err)
		}
		return nil
	})
}
