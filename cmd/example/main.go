// Command example exercises a running cellar server with the MinIO Go
// client: bucket creation, uploads with user metadata, folder keys,
// prefix listing, download, and cleanup.
package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// getenv returns the value of the environment variable named by key or
// fallback if the variable is not present.
func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

const (
	BucketName    = "example-bucket"
	ObjectName    = "docs/reports/summary.txt"
	ObjectContent = "Hello from the cellar example!\n"
	FolderKey     = "docs/archive/"
)

// EnsureBucket checks if a bucket exists, and creates it if it does not.
func EnsureBucket(ctx context.Context, client *minio.Client, bucketName string) error {
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %q: %w", bucketName, err)
		}
	}
	return nil
}

// UploadFile uploads an object with user metadata to the specified bucket.
func UploadFile(ctx context.Context, client *minio.Client, bucketName string, objectName string, objectContent []byte) error {
	reader := bytes.NewReader(objectContent)
	_, err := client.PutObject(ctx, bucketName, objectName, reader, int64(len(objectContent)), minio.PutObjectOptions{
		ContentType: "text/plain",
		UserMetadata: map[string]string{
			"author":     "example",
			"department": "engineering",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %q to bucket %q: %w", objectName, bucketName, err)
	}

	slog.Info("Uploaded object to bucket", "object", objectName, "bucket", bucketName)
	return nil
}

// ListBucketObjects lists all objects in the bucket under the given prefix.
func ListBucketObjects(ctx context.Context, client *minio.Client, bucketName string, prefix string) error {
	slog.Info("Objects in bucket", "bucket", bucketName, "prefix", prefix)
	for objectInfo := range client.ListObjects(ctx, bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if objectInfo.Err != nil {
			return fmt.Errorf("failed to list objects in bucket %q: %w", bucketName, objectInfo.Err)
		}
		slog.Info("Object in bucket", "key", objectInfo.Key, "size", humanize.Bytes(uint64(objectInfo.Size)))
	}
	return nil
}

// StatObject fetches and logs an object's metadata.
func StatObject(ctx context.Context, client *minio.Client, bucketName string, objectName string) error {
	info, err := client.StatObject(ctx, bucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to stat object %q: %w", objectName, err)
	}

	slog.Info("Object metadata",
		"key", info.Key,
		"size", humanize.Bytes(uint64(info.Size)),
		"content_type", info.ContentType,
		"user_metadata", fmt.Sprint(info.UserMetadata),
	)
	return nil
}

// DownloadFile downloads an object from the specified bucket to a local file.
func DownloadFile(ctx context.Context, client *minio.Client, bucketName string, objectName string, downloadPath string) error {
	if err := client.FGetObject(ctx, bucketName, objectName, downloadPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("failed to download object %q from bucket %q: %w", objectName, bucketName, err)
	}
	slog.Info("Downloaded object", "path", downloadPath)
	return nil
}

// CreateFolder creates an explicit folder by uploading a zero-byte object
// whose key ends in a slash.
func CreateFolder(ctx context.Context, client *minio.Client, bucketName string, folderKey string) error {
	_, err := client.PutObject(ctx, bucketName, folderKey, bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to create folder %q in bucket %q: %w", folderKey, bucketName, err)
	}
	slog.Info("Created folder", "folder", folderKey, "bucket", bucketName)
	return nil
}

func Run(ctx context.Context, client *minio.Client) error {
	// 1. Ensure the bucket exists.
	if err := EnsureBucket(ctx, client, BucketName); err != nil {
		return fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	// 2. Report its location.
	location, err := client.GetBucketLocation(ctx, BucketName)
	if err != nil {
		return fmt.Errorf("failed to get bucket location: %w", err)
	}
	slog.Info("Bucket location", "bucket", BucketName, "location", location)

	// 3. Upload a file with user metadata.
	if err := UploadFile(ctx, client, BucketName, ObjectName, []byte(ObjectContent)); err != nil {
		return fmt.Errorf("failed to upload example file: %w", err)
	}

	// 4. Create an explicit folder.
	if err := CreateFolder(ctx, client, BucketName, FolderKey); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	// 5. List the bucket contents under the docs/ prefix.
	if err := ListBucketObjects(ctx, client, BucketName, "docs/"); err != nil {
		return fmt.Errorf("failed to list bucket objects: %w", err)
	}

	// 6. Inspect the uploaded object's metadata.
	if err := StatObject(ctx, client, BucketName, ObjectName); err != nil {
		return fmt.Errorf("failed to stat object: %w", err)
	}

	// 7. Download the file.
	downloadPath := filepath.Join(".", "downloaded_"+filepath.Base(ObjectName))
	if err := DownloadFile(ctx, client, BucketName, ObjectName, downloadPath); err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}

	// 8. Delete the object again.
	if err := client.RemoveObject(ctx, BucketName, ObjectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object: %w", err)
	}
	slog.Info("Removed object", "object", ObjectName, "bucket", BucketName)

	return nil
}

func main() {
	endpoint := getenv("CELLAR_ENDPOINT", "localhost:8000")
	accessKey := getenv("CELLAR_ACCESS_KEY", "cellaradmin")
	secretKey := getenv("CELLAR_SECRET_KEY", "cellaradmin")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})

	if err != nil {
		slog.Error("failed to create client", "err", err)
		os.Exit(1)
	}

	if err := Run(context.Background(), client); err != nil {
		slog.Error("error running example", "err", err)
		os.Exit(1)
	}
}
