// Package storage archives thumbnail images in an S3-compatible bucket so
// repeat syncs can reuse a stable public URL instead of refetching an
// expiring data URI.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/downytube/backend/internal/config"
)

// ThumbnailArchive stores one thumbnail per uploaded video, keyed by the new
// video id.
type ThumbnailArchive struct {
	uploader *manager.Uploader
	bucket   string
	baseURL  string
}

// NewThumbnailArchive configures an uploader targeting the provided object
// store. A custom endpoint switches the client into path-style addressing
// for MinIO-style deployments.
func NewThumbnailArchive(ctx context.Context, cfg config.ObjectStoreConfig) (*ThumbnailArchive, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("thumbnail archive: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if strings.TrimSpace(cfg.Endpoint) != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:           cfg.Endpoint,
					SigningRegion: cfg.Region,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return &ThumbnailArchive{
		uploader: uploader,
		bucket:   cfg.Bucket,
		baseURL:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// Save stores the thumbnail bytes for a video and returns a public location.
func (a *ThumbnailArchive) Save(ctx context.Context, videoID, mimeType string, r io.Reader) (string, error) {
	if strings.TrimSpace(videoID) == "" {
		return "", fmt.Errorf("thumbnail archive: empty video id")
	}

	key := path.Join("thumbnails", videoID+extensionFor(mimeType))
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        manager.ReadSeekCloser(r),
		ContentType: aws.String(mimeType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("thumbnail archive upload %s: %w", key, err)
	}

	if a.baseURL == "" {
		return key, nil
	}

	return fmt.Sprintf("%s/%s", a.baseURL, key), nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
