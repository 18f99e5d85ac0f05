package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/jon4hz/loaderdesk/internal/config"
)

var _ FileStore = (*S3)(nil)

// s3API is the subset of the S3 client used by the mirror.
type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// S3 mirrors files into an S3 compatible bucket. The object ETag serves as sha and
// writes are guarded by conditional requests.
type S3 struct {
	client s3API
	bucket string
	prefix string
}

// NewS3 creates a new S3 mirror from the static configuration.
func NewS3(ctx context.Context, cfg *config.S3Config) (*S3, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3WithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3WithClient(client s3API, bucket, prefix string) *S3 {
	return &S3{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *S3) Name() string {
	return "s3"
}

func (s *S3) key(p string) string {
	p = strings.TrimPrefix(p, "/")
	if s.prefix == "" {
		return p
	}
	return path.Join(s.prefix, p)
}

// FileExists returns the ETag of the object stored at path.
func (s *S3) FileExists(ctx context.Context, p string) (*FileInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
	if err != nil {
		var notFound *types.NotFound
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
			return nil, nil
		}
		return nil, &Error{Op: "exists", Path: p, Err: err}
	}
	return &FileInfo{Path: p, SHA: aws.ToString(out.ETag)}, nil
}

// CreateFile stores a new object. It fails with ErrConflict if the object already exists.
func (s *S3) CreateFile(ctx context.Context, p string, content []byte, message string) error {
	input := s.putInput(p, content, message)
	input.IfNoneMatch = aws.String("*")
	return s.put(ctx, "create", p, input)
}

// UpdateFile replaces the object if its ETag still matches sha.
func (s *S3) UpdateFile(ctx context.Context, p string, content []byte, sha, message string) error {
	input := s.putInput(p, content, message)
	input.IfMatch = aws.String(sha)
	return s.put(ctx, "update", p, input)
}

func (s *S3) putInput(p string, content []byte, message string) *s3.PutObjectInput {
	return &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(p)),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("text/plain; charset=utf-8"),
		Metadata: map[string]string{
			// metadata travels as headers
			"message": url.QueryEscape(message),
		},
	}
}

func (s *S3) put(ctx context.Context, op, p string, input *s3.PutObjectInput) error {
	if _, err := s.client.PutObject(ctx, input); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "PreconditionFailed", "ConditionalRequestConflict":
				return &Error{Op: op, Path: p, Err: fmt.Errorf("%w: %v", ErrConflict, err)}
			}
		}
		return &Error{Op: op, Path: p, Err: err}
	}
	return nil
}

// ListFiles returns every object path below the prefix. Buckets have no refs, so ref is ignored.
func (s *S3) ListFiles(ctx context.Context, _ string) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix + "/")
	}

	var paths []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &Error{Op: "list", Path: s.prefix, Err: err}
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if s.prefix != "" {
				key = strings.TrimPrefix(key, s.prefix+"/")
			}
			paths = append(paths, key)
		}
	}
	return paths, nil
}
