package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"billhive/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveService stores immutable snapshots of finalized invoices in object
// storage. One object per invoice version; snapshots are never overwritten.
type ArchiveService interface {
	StoreInvoiceSnapshot(ctx context.Context, invoice *models.Invoice, items []*models.BillableItem) error
	GetInvoiceSnapshot(ctx context.Context, invoiceID string, version int) ([]byte, error)
	EnsureBucketExists(ctx context.Context) error
}

// InvoiceSnapshot is the archived representation of a finalized invoice.
type InvoiceSnapshot struct {
	Invoice *models.Invoice        `json:"invoice"`
	Items   []*models.BillableItem `json:"items"`
}

type minioArchive struct {
	client *minio.Client
	bucket string
}

func NewMinioArchiveService(endpoint, accessKey, secretKey, bucket string, useSSL bool) (ArchiveService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioArchive{client: client, bucket: bucket}, nil
}

func snapshotObjectName(invoiceID string, version int) string {
	return fmt.Sprintf("invoices/%s/%d.json", invoiceID, version)
}

func (m *minioArchive) StoreInvoiceSnapshot(ctx context.Context, invoice *models.Invoice, items []*models.BillableItem) error {
	snapshot := InvoiceSnapshot{Invoice: invoice, Items: items}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal invoice snapshot: %w", err)
	}

	objectName := snapshotObjectName(invoice.ID.String(), invoice.Version)
	_, err = m.client.PutObject(ctx, m.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func (m *minioArchive) GetInvoiceSnapshot(ctx context.Context, invoiceID string, version int) ([]byte, error) {
	object, err := m.client.GetObject(ctx, m.bucket, snapshotObjectName(invoiceID, version), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer object.Close()

	return io.ReadAll(object)
}

func (m *minioArchive) EnsureBucketExists(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}
