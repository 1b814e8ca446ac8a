// Package archive snapshots appointment documents to S3 for long-term audit
// retention. Archiving is best-effort and disabled when no bucket is
// configured.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/glowdesk/glowdesk-api/pkg/logging"
)

// S3API is the slice of the S3 client the store needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store writes audit snapshots to S3 under a date-partitioned prefix.
type Store struct {
	client S3API
	bucket string
	logger *logging.Logger
}

// NewStore creates an archive store. An empty bucket disables archiving:
// every call becomes a no-op so callers never need their own guard.
func NewStore(client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	if bucket != "" && client == nil {
		panic("archive: s3 client cannot be nil when a bucket is configured")
	}
	return &Store{client: client, bucket: bucket, logger: logger}
}

// Enabled reports whether snapshots are actually written.
func (s *Store) Enabled() bool {
	return s.bucket != ""
}

// key partitions snapshots by appointment date so retention policies can
// expire whole prefixes.
func key(companyID, date, appointmentID string) string {
	datePath := strings.ReplaceAll(date, "-", "/")
	return fmt.Sprintf("audit/v1/%s/by-date/%s/%s.json", companyID, datePath, appointmentID)
}

// ArchiveChange snapshots the document as it stands after a mutation. Later
// snapshots of the same appointment on the same date overwrite earlier ones;
// the document's own change log preserves history.
func (s *Store) ArchiveChange(ctx context.Context, companyID, date, appointmentID string, doc any) error {
	if !s.Enabled() {
		return nil
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("archive: failed to marshal snapshot: %w", err)
	}

	objectKey := key(companyID, date, appointmentID)
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("archive: failed to put snapshot %s: %w", objectKey, err)
	}

	s.logger.Debug("archived appointment snapshot", "key", objectKey)
	return nil
}
