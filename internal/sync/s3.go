package sync

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const exportContentType = "application/x-ndjson"

// S3Destination uploads each export snapshot to a fixed object key in an
// S3-compatible bucket, overwriting the previous snapshot.
type S3Destination struct {
	client *s3.Client
	bucket string
	key    string
}

// NewS3Destination builds the destination from the ambient AWS credential
// chain. A non-empty endpoint switches to path-style addressing, which is
// what MinIO and other S3 clones expect.
func NewS3Destination(ctx context.Context, bucket, key, region, endpoint string) (*S3Destination, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Destination{client: client, bucket: bucket, key: key}, nil
}

func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(d.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(exportContentType),
	})
	if err != nil {
		return fmt.Errorf("uploading export to s3://%s/%s: %w", d.bucket, d.key, err)
	}
	return nil
}
