package service

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/SachinGupta0206/saas-contracts-dashboard/config"
	"github.com/SachinGupta0206/saas-contracts-dashboard/model"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"
)

// MinioFixtures serves the fixture documents from a MinIO bucket.
type MinioFixtures struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinioFixtures(cfg *config.MinioConfig) (*MinioFixtures, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioFixtures{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *MinioFixtures) objectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *MinioFixtures) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (s *MinioFixtures) Contracts(ctx context.Context) ([]model.ContractSummary, error) {
	return getMinioFixture[[]model.ContractSummary](ctx, s, ContractsFixture)
}

func (s *MinioFixtures) ContractDetails(ctx context.Context) (map[string]model.ContractDetail, error) {
	return getMinioFixture[map[string]model.ContractDetail](ctx, s, ContractDetailsFixture)
}

func getMinioFixture[T any](ctx context.Context, s *MinioFixtures, name string) (T, error) {
	var zero T
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(name), minio.GetObjectOptions{})
	if err != nil {
		return zero, fmt.Errorf("failed to get %s: %w", name, err)
	}
	defer obj.Close()
	return decodeFixture[T](obj, name)
}

// Seed uploads both fixture files from dir into the bucket.
func (s *MinioFixtures) Seed(ctx context.Context, dir string) error {
	g, gCtx := errgroup.WithContext(ctx)
	for _, name := range []string{ContractsFixture, ContractDetailsFixture} {
		g.Go(func() error {
			src := filepath.Join(dir, name)
			info, err := s.client.FPutObject(gCtx, s.bucket, s.objectName(name), src, minio.PutObjectOptions{
				ContentType: "application/json",
			})
			if err != nil {
				return fmt.Errorf("failed to upload %s: %w", src, err)
			}
			slog.Info("fixture seeded", "object", info.Key, "bytes", info.Size)
			return nil
		})
	}
	return g.Wait()
}
