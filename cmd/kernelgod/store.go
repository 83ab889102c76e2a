package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/kernelgo/blobstore"
	"github.com/hupe1980/kernelgo/blobstore/bolt"
	miniostore "github.com/hupe1980/kernelgo/blobstore/minio"
	s3store "github.com/hupe1980/kernelgo/blobstore/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore builds the configured snapshot backend. The returned closer
// releases backend resources and is never nil. A nil store disables
// snapshots.
func openStore(ctx context.Context, sc StoreConfig) (blobstore.BlobStore, io.Closer, error) {
	switch strings.ToLower(sc.Backend) {
	case "":
		return nil, nopCloser{}, nil
	case "memory":
		return blobstore.NewMemoryStore(), nopCloser{}, nil
	case "local":
		return blobstore.NewLocalStore(sc.Path), nopCloser{}, nil
	case "bolt":
		s, err := bolt.Open(sc.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open bolt store %s: %w", sc.Path, err)
		}
		return s, s, nil
	case "s3", "s3+ddb":
		var opts []func(*config.LoadOptions) error
		if sc.Region != "" {
			opts = append(opts, config.WithRegion(sc.Region))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		store := s3store.NewStore(s3.NewFromConfig(awsCfg), sc.Bucket, sc.Prefix)
		if sc.Backend == "s3" {
			return store, nopCloser{}, nil
		}
		baseURI := "s3://" + sc.Bucket + "/" + strings.Trim(sc.Prefix, "/")
		return s3store.NewDDBCommitStore(store, dynamodb.NewFromConfig(awsCfg), sc.Table, baseURI), nopCloser{}, nil
	case "minio":
		client, err := minio.New(sc.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(sc.AccessKey, sc.SecretKey, ""),
			Secure: sc.Secure,
			Region: sc.Region,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("minio client: %w", err)
		}
		store := miniostore.NewStore(client, sc.Bucket, sc.Prefix, miniostore.WithRegion(sc.Region))
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, nil, fmt.Errorf("ensure bucket %s: %w", sc.Bucket, err)
		}
		return store, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}
