package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Fetcher reads statement files from an S3 bucket laid out as
// CSV/<SYMBOL>/<statement files>.
type S3Fetcher struct {
	client *s3.Client
	bucket string
}

var _ DocumentFetcher = (*S3Fetcher)(nil)

// NewS3Fetcher builds a fetcher on the default AWS credential chain.
func NewS3Fetcher(ctx context.Context, bucket, region string) (*S3Fetcher, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &S3Fetcher{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// List pages through the bucket and returns every statement file key under
// prefix, skipping anything that is not a recognized statement format.
func (f *S3Fetcher) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(f.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(f.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", f.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if isStatementFile(key) {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

func (f *S3Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch s3://%s/%s: %w", f.bucket, ref, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func isStatementFile(key string) bool {
	lower := strings.ToLower(key)
	for _, ext := range []string{".csv", ".html", ".htm", ".md", ".txt"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
