package store

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rotisserie/eris"
)

// S3Options tunes the S3 client. Zero values use the SDK defaults.
type S3Options struct {
	Region   string
	Endpoint string
}

// S3Store reads and writes documents in S3. Keys are s3://bucket/key URLs.
type S3Store struct {
	client *s3.Client
}

// NewS3 builds an S3Store from the default AWS credential chain.
func NewS3(ctx context.Context, opts S3Options) (*S3Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "s3: load aws config")
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client}, nil
}

// NewS3WithClient wraps an existing client.
func NewS3WithClient(client *s3.Client) *S3Store {
	return &S3Store{client: client}
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	bucket, prefix, err := ParseS3Path(key)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(prefix),
	})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "s3: head %s", key)
	}
	return true, nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	bucket, prefix, err := ParseS3Path(key)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(prefix),
	})
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "s3: get %s", key)
	}
	defer out.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "s3: read %s", key)
	}
	return data, nil
}

func (s *S3Store) Put(ctx context.Context, localFile, key string) error {
	bucket, prefix, err := ParseS3Path(key)
	if err != nil {
		return err
	}
	f, err := os.Open(localFile)
	if err != nil {
		return eris.Wrapf(err, "s3: open %s", localFile)
	}
	defer f.Close() //nolint:errcheck

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(prefix),
		Body:        f,
		ContentType: aws.String("application/json"),
	})
	return eris.Wrapf(err, "s3: put %s", key)
}

func (s *S3Store) Close() error { return nil }

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}
