package storage

import (
	"context"
	"testing"

	"github.com/selmo/Tagdstiller-sub001/internal/config"
)

func TestBuildSources_FileOnly(t *testing.T) {
	cfg := &config.Store{SourceRoot: t.TempDir()}

	sources, err := BuildSources(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildSources: %v", err)
	}
	if _, ok := sources["file"]; !ok {
		t.Error("file source missing")
	}
	if _, ok := sources["s3"]; ok {
		t.Error("s3 source built without a bucket")
	}
}

func TestBuildSources_WithBucket(t *testing.T) {
	cfg := &config.Store{
		SourceRoot: t.TempDir(),
		S3: config.S3{
			Bucket:    "documents",
			Endpoint:  "http://localhost:9000",
			Region:    "us-east-1",
			AccessKey: "minio",
			SecretKey: "minio123",
			PathStyle: true,
		},
	}

	sources, err := BuildSources(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildSources: %v", err)
	}
	for _, kind := range []string{"file", "s3"} {
		if _, ok := sources[kind]; !ok {
			t.Errorf("%s source missing", kind)
		}
	}
}
