package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

//go:embed articles.json
var bundledArticles []byte

// Source opens the raw catalog JSON
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// EmbeddedSource serves the catalog bundled into the binary
type EmbeddedSource struct{}

func (EmbeddedSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(bundledArticles)), nil
}

func (EmbeddedSource) String() string { return "bundled catalog" }

// FileSource reads the catalog from a file on disk
type FileSource struct {
	Path string
}

func (s FileSource) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(s.Path)
}

func (s FileSource) String() string { return s.Path }

// objectGetter is the part of the S3 client the catalog needs
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads the catalog from an S3 object
type S3Source struct {
	Bucket string
	Key    string
	client objectGetter
}

// S3Config is the optional client configuration for S3Source.
// Empty values fall back to the standard AWS config/credential chain.
type S3Config struct {
	Region       string
	Profile      string
	UsePathStyle bool
}

// NewS3Source creates a source using the default AWS configuration chain
func NewS3Source(ctx context.Context, bucket, key string, cfg S3Config) (*S3Source, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Source{Bucket: bucket, Key: key, client: client}, nil
}

func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (s *S3Source) String() string {
	return fmt.Sprintf("s3://%s/%s", s.Bucket, s.Key)
}
