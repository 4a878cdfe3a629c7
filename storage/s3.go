package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Options struct {
	Region        string
	Bucket        string
	Endpoint      string // custom endpoint, e.g. MinIO
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

type uploader interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type objectDeleter interface {
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store keeps media in an S3 compatible bucket.
type S3Store struct {
	uploader uploader
	client   objectDeleter
	bucket   string
	baseURL  string
}

func NewS3Store(ctx context.Context, o S3Options) (*S3Store, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(o.Region)}
	if o.AccessKey != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	})
	return newS3Store(manager.NewUploader(client), client, o), nil
}

func newS3Store(up uploader, client objectDeleter, o S3Options) *S3Store {
	base := o.PublicBaseURL
	switch {
	case base != "":
	case o.Endpoint != "":
		base = strings.TrimRight(o.Endpoint, "/") + "/" + o.Bucket
	default:
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", o.Bucket, o.Region)
	}
	return &S3Store{
		uploader: up,
		client:   client,
		bucket:   o.Bucket,
		baseURL:  strings.TrimRight(base, "/"),
	}
}

func (s *S3Store) Upload(ctx context.Context, obj Object) (string, error) {
	key := NewKey(obj.Folder, obj.Filename)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        obj.Body,
		ContentType: aws.String(obj.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *S3Store) Delete(ctx context.Context, mediaURL string) error {
	key, err := KeyFromURL(s.baseURL, mediaURL)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
