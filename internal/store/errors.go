package store

import "errors"

var (
	// ErrBucketNotFound is returned when an operation references a bucket
	// whose backing directory does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrObjectNotFound is returned when an operation references a key with
	// no regular file at its resolved path.
	ErrObjectNotFound = errors.New("object not found")

	// ErrBucketExists is returned by CreateBucket when the bucket directory
	// already exists.
	ErrBucketExists = errors.New("bucket already exists")

	// ErrBucketNotEmpty is returned by DeleteBucket when the bucket still
	// contains entries and force was not requested.
	ErrBucketNotEmpty = errors.New("bucket not empty")
)
