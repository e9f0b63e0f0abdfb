// Package storage keeps source loan documents in S3. Each uploaded object
// carries a metadata sidecar that the knowledge base ingests as chunk
// metadata, which is what makes retrieval filterable by booking.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	DefaultBucket = "commercial-loan-booking"
	DefaultPrefix = "loan-documents/"

	// metadataSuffix marks the sidecar objects the knowledge base reads to
	// attach metadata attributes to each document's chunks.
	metadataSuffix = ".metadata.json"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ObjectInfo describes one stored document.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Store reads and writes loan documents under one bucket prefix.
type Store struct {
	client S3API
	bucket string
	prefix string
	logger *slog.Logger
}

// NewStore creates a document store.
func NewStore(client S3API, bucket, prefix string, logger *slog.Logger) *Store {
	if bucket == "" {
		bucket = DefaultBucket
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

// sidecar is the metadata document the knowledge base associates with every
// chunk produced from the object it sits next to.
type sidecar struct {
	MetadataAttributes map[string]string `json:"metadataAttributes"`
}

// Upload stores a document and its metadata sidecar. The sidecar binds the
// booking identifier to the document so its chunks can be filtered later.
func (s *Store) Upload(ctx context.Context, bookingID, filename string, body io.Reader, contentType string) (string, error) {
	if bookingID == "" {
		return "", fmt.Errorf("booking identifier is missing")
	}
	if filename == "" {
		return "", fmt.Errorf("filename is missing")
	}

	key := s.prefix + bookingID + "/" + filename
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	meta, err := json.Marshal(sidecar{
		MetadataAttributes: map[string]string{"loanBookingId": bookingID},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata for %s: %w", key, err)
	}
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key + metadataSuffix),
		Body:        strings.NewReader(string(meta)),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return "", fmt.Errorf("failed to upload metadata for %s: %w", key, err)
	}

	s.logger.Info("document uploaded", "bucket", s.bucket, "key", key, "booking_id", bookingID)
	return key, nil
}

// List returns the documents stored for one booking, sidecars excluded.
func (s *Store) List(ctx context.Context, bookingID string) ([]ObjectInfo, error) {
	if bookingID == "" {
		return nil, fmt.Errorf("booking identifier is missing")
	}

	var objects []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + bookingID + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents for %s: %w", bookingID, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, metadataSuffix) {
				continue
			}
			objects = append(objects, ObjectInfo{
				Key:          key,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return objects, nil
}

// Delete removes a document and its metadata sidecar.
func (s *Store) Delete(ctx context.Context, key string) error {
	if !strings.HasPrefix(key, s.prefix) {
		return fmt.Errorf("key %s is outside the document prefix", key)
	}
	for _, target := range []string{key, key + metadataSuffix} {
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(target),
		}); err != nil {
			return fmt.Errorf("failed to delete %s: %w", target, err)
		}
	}
	s.logger.Info("document deleted", "bucket", s.bucket, "key", key)
	return nil
}
