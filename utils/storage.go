package utils

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// R2Client wraps the S3 client + bucket name. Uploaded sign-check photos go
// to R2; question illustrations stay on GCS (see uploads.go).
type R2Client struct {
	S3     *s3.Client
	Bucket string
}

func NewR2Client(ctx context.Context) (*R2Client, error) {
	bucket := os.Getenv("R2_BUCKET")
	accessKey := os.Getenv("R2_ACCESS_KEY_ID")
	secretKey := os.Getenv("R2_SECRET_ACCESS_KEY")
	endpoint := os.Getenv("R2_ENDPOINT") // https://<account-id>.r2.cloudflarestorage.com

	if bucket == "" || accessKey == "" || secretKey == "" || endpoint == "" {
		return nil, fmt.Errorf("missing R2 env vars (R2_BUCKET, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_ENDPOINT)")
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true // required for R2
	})

	return &R2Client{S3: client, Bucket: bucket}, nil
}

// UploadSignImage stores a classified road-sign photo and returns its public
// URL. Content type comes from the caller since the bytes were already read
// for classification.
func (r2 *R2Client) UploadSignImage(ctx context.Context, userID string, data []byte, ext, contentType string) (string, error) {
	ext = strings.ToLower(ext)
	if ext == "" {
		ext = ".bin"
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectName := fmt.Sprintf("signs/%s/%d-%s%s", userID, time.Now().UTC().Unix(), uuid.New().String(), ext)

	_, err := r2.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r2.Bucket),
		Key:         aws.String(objectName),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectName, err)
	}

	return r2.publicURL(objectName), nil
}

// publicURL builds the public URL for a stored object. Set R2_PUBLIC_DOMAIN
// to your custom domain or the r2.dev URL enabled on the bucket.
func (r2 *R2Client) publicURL(objectName string) string {
	domain := strings.TrimRight(os.Getenv("R2_PUBLIC_DOMAIN"), "/")
	return fmt.Sprintf("%s/%s/%s", domain, r2.Bucket, objectName)
}
