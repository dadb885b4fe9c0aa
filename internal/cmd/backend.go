package cmd

import (
	"context"
	"fmt"

	"github.com/3leaps/bucketwalk/internal/config"
	"github.com/3leaps/bucketwalk/pkg/jobfile"
	"github.com/3leaps/bucketwalk/pkg/listing"
	"github.com/3leaps/bucketwalk/pkg/provider"
	"github.com/3leaps/bucketwalk/pkg/provider/file"
	"github.com/3leaps/bucketwalk/pkg/provider/minio"
	"github.com/3leaps/bucketwalk/pkg/provider/s3"
)

// openStore creates a provider for bucket from store settings.
func openStore(ctx context.Context, store config.StoreConfig, bucket string) (provider.Provider, error) {
	pt, ok := provider.ParseProviderType(store.Provider)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (want s3, minio or file)", store.Provider)
	}

	switch pt {
	case provider.ProviderMinio:
		p, err := minio.New(minio.Config{
			Bucket:          bucket,
			Endpoint:        store.Endpoint,
			Region:          store.Region,
			AccessKeyID:     store.AccessKeyID,
			SecretAccessKey: store.SecretAccessKey,
			MaxKeys:         store.MaxKeys,
		})
		if err != nil {
			return nil, err
		}
		return p, nil

	case provider.ProviderFile:
		p, err := file.New(file.Config{
			RootDir: store.RootDir,
			Bucket:  bucket,
			MaxKeys: store.MaxKeys,
		})
		if err != nil {
			return nil, err
		}
		return p, nil

	default:
		p, err := s3.New(ctx, s3.Config{
			Bucket:          bucket,
			Region:          store.Region,
			Endpoint:        store.Endpoint,
			Profile:         store.Profile,
			AccessKeyID:     store.AccessKeyID,
			SecretAccessKey: store.SecretAccessKey,
			// S3-compatible services (MinIO etc.) need path-style URLs.
			ForcePathStyle: store.PathStyle || store.Endpoint != "",
			MaxKeys:        store.MaxKeys,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// storeOpener adapts openStore to listing.Opener.
func storeOpener(store config.StoreConfig) listing.Opener {
	return func(ctx context.Context, bucket string) (provider.DelimiterLister, error) {
		return openStore(ctx, store, bucket)
	}
}

// applyJobConnection copies connection settings from a job file onto store.
// Settings whose flag was given on the command line are kept.
func applyJobConnection(store *config.StoreConfig, conn jobfile.ConnectionConfig, changed func(string) bool) {
	set := func(flag string, dst *string, val string) {
		if val != "" && !changed(flag) {
			*dst = val
		}
	}
	set("provider", &store.Provider, conn.Provider)
	set("endpoint", &store.Endpoint, conn.Endpoint)
	set("region", &store.Region, conn.Region)
	set("profile", &store.Profile, conn.Profile)
	set("root-dir", &store.RootDir, conn.RootDir)
	if conn.PathStyle && !changed("path-style") {
		store.PathStyle = true
	}
}
