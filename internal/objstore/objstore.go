// Package objstore stores processed images and returns their public URL.
package objstore

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/flipi-app/flipi/internal/store"
)

// Store persists an object under key and returns a URL clients can load.
type Store interface {
	Put(ctx context.Context, key string, data []byte, mime string) (string, error)
}

// NewKey returns a unique object key under prefix, e.g. "items/12/<uuid>.jpg".
func NewKey(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + uuid.NewString() + ".jpg"
}

// DBStore keeps objects in the database and serves them from the API.
type DBStore struct {
	DB *sql.DB
	// BaseURL is prepended to the key, e.g. "/api/images/".
	BaseURL string
}

// Put stores data in the images table.
func (s *DBStore) Put(ctx context.Context, key string, data []byte, mime string) (string, error) {
	if err := store.PutImage(ctx, s.DB, key, data, mime); err != nil {
		return "", err
	}
	return s.BaseURL + key, nil
}

// putObjectAPI is the part of the S3 client used here.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads objects to an S3 bucket.
type S3Store struct {
	client    putObjectAPI
	bucket    string
	publicURL string
}

// NewS3Store loads the default AWS configuration for region. Objects are
// addressed as publicURL/key; when publicURL is empty the virtual-hosted
// bucket URL is used.
func NewS3Store(ctx context.Context, bucket, region, publicURL string) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3Store{
		client:    s3.NewFromConfig(cfg),
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// Put uploads data to the bucket.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, mime string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(mime),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}
