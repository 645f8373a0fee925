// Package storage assembles the document sources available to the worker
// from the service configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/selmo/Tagdstiller-sub001/internal/config"
	"github.com/selmo/Tagdstiller-sub001/pkg/logger"
	"github.com/selmo/Tagdstiller-sub001/pkg/source"
)

// BuildSources constructs the document sources jobs may reference, keyed
// by source kind. The filesystem source is always available; S3 joins when
// a bucket is configured.
func BuildSources(ctx context.Context, cfg *config.Store) (map[string]source.TextSource, error) {
	sources := map[string]source.TextSource{}

	file := source.NewFileSource(source.NewFileSourceParams{Base: cfg.SourceRoot})
	sources[file.Name()] = file

	if cfg.S3.Bucket != "" {
		s3src, err := source.NewS3Source(ctx, source.NewS3SourceParams{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("configure s3 source: %w", err)
		}
		sources[s3src.Name()] = s3src
	}

	logger.Debug("[Storage] document sources ready", "kinds", len(sources))
	return sources, nil
}
