package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/singleflight"
)

// S3Source reads documents from an S3-compatible bucket.
type S3Source struct {
	bucket string
	client *s3.Client
	parser Parser

	cache   map[string]string
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewS3SourceParams configures an S3Source. Endpoint overrides the AWS
// default for S3-compatible stores such as MinIO; those usually also need
// PathStyle.
type NewS3SourceParams struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	PathStyle bool
	Parser    Parser
}

// NewS3Source builds an S3 client from static credentials.
func NewS3Source(ctx context.Context, params NewS3SourceParams) (*S3Source, error) {
	cfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(params.Region),
		awsconfig.WithBaseEndpoint(params.Endpoint),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = params.PathStyle
	})
	return NewS3SourceWithClient(params.Bucket, client, params.Parser), nil
}

// NewS3SourceWithClient reuses a preconfigured client, for custom
// middleware or credential setups.
func NewS3SourceWithClient(bucket string, client *s3.Client, parser Parser) *S3Source {
	return &S3Source{
		bucket: bucket,
		client: client,
		parser: parser,
		cache:  make(map[string]string),
	}
}

// Name implements TextSource.
func (s *S3Source) Name() string { return "s3" }

// FetchText downloads and decodes one object.
func (s *S3Source) FetchText(ctx context.Context, ref string) (string, error) {
	s.cacheMu.RLock()
	if cached, ok := s.cache[ref]; ok {
		s.cacheMu.RUnlock()
		return cached, nil
	}
	s.cacheMu.RUnlock()

	result, err, _ := s.group.Do(ref, func() (any, error) {
		s.cacheMu.RLock()
		if cached, ok := s.cache[ref]; ok {
			s.cacheMu.RUnlock()
			return cached, nil
		}
		s.cacheMu.RUnlock()

		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(ref),
		})
		if err != nil {
			return nil, fmt.Errorf("get object %s: %w", ref, err)
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return nil, fmt.Errorf("read object %s: %w", ref, err)
		}
		text, err := decode(ctx, s.parser, ref, buf.Bytes())
		if err != nil {
			return nil, err
		}

		s.cacheMu.Lock()
		s.cache[ref] = text
		s.cacheMu.Unlock()
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
