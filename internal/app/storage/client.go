package storage

import (
	"bytes"
	"context"
	"errors"
	"mime"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"chatsync/internal/pkg/logx"
)

// s3Client implements BlobStore against S3-compatible storage.
type s3Client struct {
	cfg      ServiceConfig
	s3Client *s3.Client
	presign  *s3.PresignClient
	uploader *manager.Uploader
}

// newS3Client initializes the S3 client using a custom configuration that supports S3-compatible endpoints.
func newS3Client(ctx context.Context, cfg ServiceConfig) (*s3Client, error) {
	region := cfg.S3Region
	if region == "" {
		region = "auto"
	}

	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion(region),
	)
	if err != nil {
		logx.Error(err, "Failed to load AWS SDK config")
		return nil, errors.New("failed to initialize S3 client configuration")
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = true
	})

	return &s3Client{
		cfg:      cfg,
		s3Client: client,
		presign:  s3.NewPresignClient(client),
		uploader: manager.NewUploader(client),
	}, nil
}

// Upload streams the attachment bytes to the bucket.
func (c *s3Client) Upload(ctx context.Context, obj Object) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(c.cfg.S3BucketName),
		Key:                aws.String(obj.Key),
		Body:               bytes.NewReader(obj.Data),
		ContentType:        aws.String(obj.MimeType),
		ContentDisposition: aws.String(attachmentDisposition(obj.FileName)),
	})
	if err != nil {
		logx.Error(err, "S3 upload failed", "key", obj.Key, "size", len(obj.Data))
		return errors.New("failed to upload file to S3")
	}

	return nil
}

// PresignDownload generates a presigned URL for downloading the specified file key.
func (c *s3Client) PresignDownload(ctx context.Context, key, fileName string, duration time.Duration) (string, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.S3BucketName),
		Key:    aws.String(key),
	}
	if fileName != "" {
		input.ResponseContentDisposition = aws.String(attachmentDisposition(fileName))
	}

	resp, err := c.presign.PresignGetObject(ctx, input, s3.WithPresignExpires(duration))
	if err != nil {
		logx.Error(err, "Failed to generate presigned URL", "key", key)
		return "", errors.New("failed to generate presigned URL")
	}

	return resp.URL, nil
}

// Delete removes the file specified by the given key from the bucket.
func (c *s3Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.cfg.S3BucketName),
		Key:    aws.String(key),
	})

	if err != nil {
		logx.Error(err, "S3 delete failed", "key", key)
		return errors.New("failed to delete file from S3")
	}

	return nil
}

func attachmentDisposition(fileName string) string {
	if fileName == "" {
		return "attachment"
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": fileName})
}
