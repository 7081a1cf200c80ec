package services

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"constructerp/internal/invoicing"
	"constructerp/internal/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// ObjectStore is where attachment bodies are written.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) error
	EnsureBucketExists(ctx context.Context, bucketName string) error
}

type minioClient struct {
	client *minio.Client
}

func NewMinioObjectStore(endpoint, accessKey, secretKey string, useSSL bool) (ObjectStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioClient{client: client}, nil
}

func (m *minioClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	_, err := m.client.PutObject(ctx, bucketName, objectName, reader, objectSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (m *minioClient) EnsureBucketExists(ctx context.Context, bucketName string) error {
	found, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
	}
	return nil
}

// AttachmentProcessor turns submitted attachments into persistable metadata. Inline bodies are
// uploaded when a store is configured; binary fields are always dropped.
type AttachmentProcessor struct {
	store  ObjectStore
	bucket string
	log    zerolog.Logger
}

// NewAttachmentProcessor builds a processor. A nil store only strips.
func NewAttachmentProcessor(store ObjectStore, bucket string) *AttachmentProcessor {
	return &AttachmentProcessor{store: store, bucket: bucket, log: logger.WithComponent("attachments")}
}

// Process normalizes raw into a list of attachment records for the given invoice.
// A malformed inline body is a validation error; an upload failure is returned as is.
func (p *AttachmentProcessor) Process(ctx context.Context, corporationUUID, invoiceUUID string, raw interface{}) ([]map[string]interface{}, error) {
	attachments := invoicing.NormalizeAttachments(raw)
	out := make([]map[string]interface{}, 0, len(attachments))
	for i, att := range attachments {
		payload, err := invoicing.ExtractAttachmentPayload(att)
		if err != nil {
			return nil, invalid("attachments", "attachment %d: %v", i, err)
		}

		record := invoicing.StripBinaryFields(att)
		if payload != nil && p != nil && p.store != nil {
			objectName := fmt.Sprintf("%s/%s/%s-%s", corporationUUID, invoiceUUID, uuid.NewString(), invoicing.AttachmentFileName(att))
			if err := p.store.PutObject(ctx, p.bucket, objectName, bytes.NewReader(payload.Data), int64(len(payload.Data)), payload.ContentType); err != nil {
				return nil, fmt.Errorf("upload attachment %s: %w", objectName, err)
			}
			record["bucket"] = p.bucket
			record["object_key"] = objectName
			record["size"] = len(payload.Data)
			if _, ok := record["content_type"]; !ok {
				record["content_type"] = payload.ContentType
			}
			p.log.Debug().Str("invoice_uuid", invoiceUUID).Str("object_key", objectName).Msg("attachment uploaded")
		}
		out = append(out, record)
	}
	return out, nil
}
