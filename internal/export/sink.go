package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"SmartPortfolio/internal/strategy"
)

// Sink stores a named export.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
}

// DirSink writes exports into a local directory.
type DirSink struct {
	Dir string
}

func (d DirSink) Put(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(d.Dir, name), data, 0644); err != nil {
		return fmt.Errorf("write export %s: %w", name, err)
	}
	return nil
}

// S3API is the subset of the S3 client the sink uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads exports to an S3 bucket under an optional key prefix.
type S3Sink struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Sink loads AWS credentials from the default chain.
func NewS3Sink(ctx context.Context, bucket, prefix, region string) (*S3Sink, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3SinkWithClient(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// NewS3SinkWithClient wraps an existing S3 client.
func NewS3SinkWithClient(client S3API, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Sink) Put(ctx context.Context, name string, data []byte) error {
	key := path.Join(s.prefix, name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Result writes the allocation and rebalance tables of res to sink as
// timestamped CSV files and returns their names.
func Result(ctx context.Context, sink Sink, res *strategy.Result, at time.Time) ([]string, error) {
	stamp := at.Format("20060102-150405")

	alloc, err := AllocationsCSV(res.Allocations)
	if err != nil {
		return nil, err
	}
	rebalance, err := RebalanceCSV(res.Rebalance)
	if err != nil {
		return nil, err
	}

	files := []struct {
		name string
		data []byte
	}{
		{"allocation_" + stamp + ".csv", alloc},
		{"rebalance_" + stamp + ".csv", rebalance},
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		if err := sink.Put(ctx, f.name, f.data); err != nil {
			return names, err
		}
		names = append(names, f.name)
	}
	return names, nil
}
