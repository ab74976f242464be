package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/gabriel-vasile/mimetype"

	"github.com/starford/brandvault/internal/apperr"
	"github.com/starford/brandvault/internal/checksum"
)

// S3Options configures the S3 provider. Endpoint and ForcePathStyle target
// S3-compatible services; empty credentials fall back to the default chain.
type S3Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
	ForcePathStyle  bool
	DisableSSL      bool
}

// S3 implements Provider on an S3 bucket.
type S3 struct {
	bucket   string
	baseURL  string
	client   *s3.S3
	uploader *s3manager.Uploader
}

var _ Provider = (*S3)(nil)

// NewS3 creates a session for opts and an S3 provider on it.
func NewS3(opts S3Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage: s3 bucket is required")
	}
	cfg := aws.NewConfig().
		WithRegion(opts.Region).
		WithS3ForcePathStyle(opts.ForcePathStyle).
		WithDisableSSL(opts.DisableSSL)
	if opts.Endpoint != "" {
		cfg = cfg.WithEndpoint(opts.Endpoint)
	}
	if opts.AccessKeyID != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(opts.AccessKeyID, opts.SecretAccessKey, ""))
	}
	sess, err := session.NewSessionWithOptions(session.Options{Config: *cfg})
	if err != nil {
		return nil, fmt.Errorf("storage: s3 session: %w", err)
	}

	baseURL := opts.PublicBaseURL
	if baseURL == "" {
		switch {
		case opts.Endpoint != "":
			baseURL = joinURL(opts.Endpoint, opts.Bucket)
		default:
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
		}
	}
	return &S3{
		bucket:   opts.Bucket,
		baseURL:  baseURL,
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
	}, nil
}

// Put uploads the object. The checksum is stored as object metadata.
func (p *S3) Put(ctx context.Context, key string, r io.Reader, contentType string) (*Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("storage: read body: %w", err)
	}
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	sum := checksum.Sum(data)
	if _, err := p.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Body:        bytes.NewReader(data),
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Metadata:    map[string]*string{"Sha256": aws.String(sum)},
	}); err != nil {
		return nil, fmt.Errorf("storage: s3 put %s: %w", key, err)
	}
	return &Object{Key: key, ContentType: contentType, Size: int64(len(data)), Checksum: sum}, nil
}

// Open streams the object body.
func (p *S3) Open(ctx context.Context, key string) (io.ReadCloser, *Object, error) {
	out, err := p.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, nil, fmt.Errorf("storage: s3 open %s: %w", key, apperr.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("storage: s3 open %s: %w", key, err)
	}
	obj := &Object{
		Key:         key,
		ContentType: aws.StringValue(out.ContentType),
		Size:        aws.Int64Value(out.ContentLength),
	}
	if v, ok := out.Metadata["Sha256"]; ok {
		obj.Checksum = aws.StringValue(v)
	}
	return out.Body, obj, nil
}

// Delete removes the object. S3 deletes are idempotent.
func (p *S3) Delete(ctx context.Context, key string) error {
	if _, err := p.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}); err != nil && !isS3NotFound(err) {
		return fmt.Errorf("storage: s3 delete %s: %w", key, err)
	}
	return nil
}

// Exists issues a HEAD request for the object.
func (p *S3) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := p.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}); err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: s3 head %s: %w", key, err)
	}
	return true, nil
}

// URL joins the public base URL and key.
func (p *S3) URL(key string) string {
	return joinURL(p.baseURL, key)
}

func isS3NotFound(err error) bool {
	if rf, ok := err.(awserr.RequestFailure); ok && rf.StatusCode() == http.StatusNotFound {
		return true
	}
	if aerr, ok := err.(awserr.Error); ok {
		return aerr.Code() == "NotFound" || aerr.Code() == s3.ErrCodeNoSuchKey
	}
	return false
}
