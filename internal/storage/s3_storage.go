package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ikkim/churchbook-backend/pkg/logger"
)

// S3Storage keeps receipt PDFs in an S3 bucket under receipts/<taxYear>/.
type S3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewS3Storage(region, bucket, accessKeyID, secretAccessKey, baseURL string) *S3Storage {
	var cfg aws.Config
	var err error

	// If credentials are provided, use them. Otherwise, use default credential chain
	if accessKeyID != "" && secretAccessKey != "" {
		cfg = aws.Config{
			Region: region,
			Credentials: credentials.NewStaticCredentialsProvider(
				accessKeyID,
				secretAccessKey,
				"",
			),
		}
	} else {
		// Use default credential chain (environment variables, ~/.aws/credentials, IAM role, etc.)
		cfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(region),
		)
		if err != nil {
			// If default config fails, create a basic config with region only
			cfg = aws.Config{
				Region: region,
			}
		}
	}

	return &S3Storage{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (s *S3Storage) Save(ctx context.Context, taxYear int, fileName string, data []byte) (string, error) {
	key := fmt.Sprintf("receipts/%d/%s", taxYear, fileName)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		logger.Error("Failed to upload receipt to S3", err, map[string]interface{}{
			"bucket": s.bucket,
			"key":    key,
		})
		return "", fmt.Errorf("failed to upload receipt to S3: %w", err)
	}

	url := s.urlForKey(key)
	logger.Debug("Receipt uploaded to S3", map[string]interface{}{
		"bucket": s.bucket,
		"key":    key,
		"url":    url,
		"size":   len(data),
	})
	return url, nil
}

func (s *S3Storage) Delete(ctx context.Context, pdfURL string) error {
	key, err := s.keyFromURL(pdfURL)
	if err != nil {
		logger.Error("Refusing to delete receipt object", err, map[string]interface{}{
			"url": pdfURL,
		})
		return err
	}

	// DeleteObject is idempotent: a missing key succeeds, matching the
	// local driver's tolerance for already-removed files.
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		logger.Error("Failed to delete receipt from S3", err, map[string]interface{}{
			"bucket": s.bucket,
			"key":    key,
		})
		return fmt.Errorf("failed to delete receipt from S3: %w", err)
	}

	logger.Debug("Receipt deleted from S3", map[string]interface{}{
		"bucket": s.bucket,
		"key":    key,
	})
	return nil
}

func (s *S3Storage) urlForKey(key string) string {
	if s.baseURL != "" {
		// Use CloudFront or custom domain
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.client.Options().Region, key)
}

func (s *S3Storage) keyFromURL(pdfURL string) (string, error) {
	var prefix string
	if s.baseURL != "" {
		prefix = s.baseURL + "/"
	} else {
		prefix = fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.bucket, s.client.Options().Region)
	}

	key, ok := strings.CutPrefix(pdfURL, prefix)
	if !ok || key == "" {
		return "", fmt.Errorf("url %q does not belong to this bucket", pdfURL)
	}
	return key, nil
}
