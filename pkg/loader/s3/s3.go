package s3

import (
	"bytes"
	"context"
	"io"
	"path"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/singleflight"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader"
)

// S3ResourceReader is a ResourceReader implementation that loads vocabulary
// resources from an S3 bucket. It uses the AWS SDK v2 for Go.
//
// This reader is useful when the ontology resources are published to
// object storage instead of being shipped with the service.
type S3ResourceReader struct {
	bucket string
	prefix string
	client *s3.Client

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewS3ResourceReaderWithClient creates a new S3ResourceReader using an
// existing s3.Client. Object keys are resolved below prefix.
func NewS3ResourceReaderWithClient(bucket, prefix string, client *s3.Client) *S3ResourceReader {
	return &S3ResourceReader{
		bucket: bucket,
		prefix: prefix,
		client: client,
		cache:  make(map[string][]byte),
	}
}

// NewS3ResourceReaderParams defines the configuration parameters for
// creating a new S3ResourceReader.
//
// Bucket specifies the S3 bucket name.
// Prefix is prepended to every resource path.
// Endpoint allows overriding the S3 endpoint (useful for S3-compatible
// storage like MinIO).
// Region specifies the AWS region.
// AccessKey and SecretKey provide static credentials.
type NewS3ResourceReaderParams struct {
	Bucket    string
	Prefix    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3ResourceReader creates a new S3ResourceReader using the provided
// parameters.
//
// Example:
//
//	reader, err := s3.NewS3ResourceReader(ctx, s3.NewS3ResourceReaderParams{
//		Bucket:    "ontology",
//		Prefix:    "resources/2024-06",
//		Endpoint:  "https://s3.amazonaws.com",
//		Region:    "us-east-1",
//		AccessKey: os.Getenv("AWS_ACCESS_KEY"),
//		SecretKey: os.Getenv("AWS_SECRET_KEY"),
//	})
func NewS3ResourceReader(ctx context.Context, params NewS3ResourceReaderParams) (*S3ResourceReader, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(params.Region),
		config.WithBaseEndpoint(params.Endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return NewS3ResourceReaderWithClient(params.Bucket, params.Prefix, client), nil
}

// GetFileContent retrieves the resource object from the configured bucket.
// It implements the ResourceReader interface.
func (l *S3ResourceReader) GetFileContent(ctx context.Context, file loader.ResourceFile) ([]byte, error) {
	cacheKey := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[cacheKey]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(cacheKey, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[cacheKey]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		key := file.Path
		if l.prefix != "" {
			key = path.Join(l.prefix, file.Path)
		}

		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, err
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return nil, err
		}

		byts := buf.Bytes()

		l.cacheMu.Lock()
		l.cache[cacheKey] = byts
		l.cacheMu.Unlock()

		return byts, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}
