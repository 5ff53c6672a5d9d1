// internal/services/storage_service.go
package services

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/radiantoptimizer/backend/internal/apperrors"
	"github.com/radiantoptimizer/backend/internal/config"
)

// downloadLinkTTL is how long a presigned release URL stays valid.
const downloadLinkTTL = 15 * time.Minute

// StorageService hands out short-lived download links for the application
// release archive stored in S3.
type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
}

type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewStorageService(config *config.Config) (*StorageService, error) {
	if config.AWS.AccessKeyID == "" {
		// Service without S3 for local development; download requests fail
		// with a clear error instead of a panic.
		return &StorageService{config: config}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   config,
	}, nil
}

// ReleaseDownloadURL presigns a GET for the latest release archive.
func (s *StorageService) ReleaseDownloadURL() (*DownloadLink, error) {
	if s.s3Client == nil {
		return nil, apperrors.New(apperrors.KindInternal, "download storage is not configured")
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(s.config.AWS.ReleaseObjectKey),
	})

	url, err := req.Presign(downloadLinkTTL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUpstream, "failed to presign download URL", err)
	}

	return &DownloadLink{
		URL:       url,
		ExpiresAt: time.Now().Add(downloadLinkTTL),
	}, nil
}
