package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient wraps a MinIO connection and the bucket audio blobs live in.
// Constructed once at startup and injected into the store that needs it.
type MinioClient struct {
	client *minio.Client
	bucket string
}

// NewMinioClient connects to MinIO and ensures the bucket exists,
// creating it when missing.
func NewMinioClient(ctx context.Context, endpoint, accessKeyID, secretAccessKey, bucket string, useSSL bool) (*MinioClient, error) {
	if endpoint == "" || accessKeyID == "" || secretAccessKey == "" || bucket == "" {
		return nil, fmt.Errorf("minio endpoint, access key, secret key and bucket must all be set")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if MinIO bucket '%s' exists: %w", bucket, err)
	}
	if !exists {
		log.Printf("MinIO bucket '%s' does not exist, creating it", bucket)
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create MinIO bucket '%s': %w", bucket, err)
		}
	}

	return &MinioClient{client: client, bucket: bucket}, nil
}

// Upload stores data under objectName. The caller owns object naming since
// the datastore generates the unique filename.
func (mc *MinioClient) Upload(ctx context.Context, objectName, contentType string, data []byte) error {
	_, err := mc.client.PutObject(ctx, mc.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object '%s' to bucket '%s': %w", objectName, mc.bucket, err)
	}
	return nil
}

// Delete removes an object; used as the compensating action when a
// metadata write fails after the blob was stored.
func (mc *MinioClient) Delete(ctx context.Context, objectName string) error {
	if err := mc.client.RemoveObject(ctx, mc.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object '%s' from bucket '%s': %w", objectName, mc.bucket, err)
	}
	return nil
}

// GetBytes retrieves an object fully into memory. Recordings are capped at
// a few MiB so this is acceptable.
func (mc *MinioClient) GetBytes(ctx context.Context, objectName string) ([]byte, error) {
	object, err := mc.client.GetObject(ctx, mc.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", objectName, mc.bucket, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read object '%s' data: %w", objectName, err)
	}
	return data, nil
}
