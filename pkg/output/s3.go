package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// UploadTimeout bounds a single object upload
const UploadTimeout = 30 * time.Second

var ErrMissingBucket = errors.New("output: no S3 bucket configured")

// S3Config holds the connection settings of an S3-compatible store
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // Empty for AWS, set for S3-compatible stores
	AccessKey string
	SecretKey string
	Prefix    string // Key prefix for every upload
}

// Enabled reports whether uploads are configured
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// S3Uploader uploads rendered images to a bucket
type S3Uploader struct {
	client s3iface.S3API
	bucket string
	prefix string
}

// NewS3Uploader creates an uploader with its own session. Static credentials are
// used when both keys are set; otherwise the default credential chain applies.
func NewS3Uploader(config S3Config) (*S3Uploader, error) {
	if !config.Enabled() {
		return nil, ErrMissingBucket
	}

	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}
	if config.AccessKey != "" && config.SecretKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}

	return NewS3UploaderWithClient(s3.New(sess), config.Bucket, config.Prefix), nil
}

// NewS3UploaderWithClient creates an uploader around an existing client
func NewS3UploaderWithClient(client s3iface.S3API, bucket, prefix string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: prefix}
}

// Upload stores data under the uploader prefix and returns the full object key
func (u *S3Uploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()

	fullKey := path.Join(u.prefix, key)
	size := int64(len(data))
	_, err := u.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(fullKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", fullKey, err)
	}

	logger.Infof("uploaded s3://%s/%s (%d bytes)", u.bucket, fullKey, size)
	return fullKey, nil
}
