package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"assetinsight/internal/core"
)

// S3Config locates the bucket backups are kept in.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // MinIO or LocalStack
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// S3API is the subset of *s3.Client the channel calls.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Channel keeps backups as objects under a key prefix.
type S3Channel struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Channel loads the AWS configuration and builds a client. Static credentials are used
// when both keys are set, the default chain otherwise.
func NewS3Channel(ctx context.Context, c S3Config) (*S3Channel, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(c.Region),
	}
	if c.AccessKeyID != "" && c.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var client *s3.Client
	if c.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}
	return NewS3ChannelWithClient(client, c.Bucket, c.Prefix), nil
}

func NewS3ChannelWithClient(client S3API, bucket, prefix string) *S3Channel {
	return &S3Channel{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (c *S3Channel) key(name string) string {
	if c.prefix == "" {
		return name
	}
	return c.prefix + "/" + name
}

func (c *S3Channel) Put(ctx context.Context, name string, r io.Reader) error {
	buf, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(c.key(name)),
		Body:          bytes.NewReader(buf),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(buf))),
	})
	if err != nil {
		return fmt.Errorf("upload backup: %w", err)
	}
	return nil
}

func (c *S3Channel) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(name)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("backup %s: %w", name, core.ErrNotFound)
		}
		return nil, fmt.Errorf("download backup: %w", err)
	}
	return out.Body, nil
}

func (c *S3Channel) List(ctx context.Context) ([]string, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(c.bucket)}
	if c.prefix != "" {
		in.Prefix = aws.String(c.prefix + "/")
	}

	var names []string
	p := s3.NewListObjectsV2Paginator(c.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list backups: %w", err)
		}
		for _, obj := range page.Contents {
			name := path.Base(aws.ToString(obj.Key))
			if strings.HasSuffix(name, ".json") {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

func (c *S3Channel) Remove(ctx context.Context, name string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(name)),
	})
	if err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}
	return nil
}
