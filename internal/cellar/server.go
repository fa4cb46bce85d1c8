// Package cellar provides an S3-compatible HTTP API over a filesystem
// object store.
package cellar

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cellar/internal/store"
)

var bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*[a-z0-9]$`)

const metadataHeaderPrefix = "x-amz-meta-"

// Server provides a minimal S3-compatible HTTP API backed by a
// filesystem store.
type Server struct {
	store  *store.Store
	region string
}

// NewServer returns a new Server serving the given store. region is
// reported by GetBucketLocation and defaults to us-east-1.
func NewServer(st *store.Store, region string) *Server {
	if region == "" {
		region = "us-east-1"
	}
	return &Server{store: st, region: region}
}

// writeNotImplemented is a helper for stubbing unsupported S3 operations.
func (s *Server) writeNotImplemented(w http.ResponseWriter, r *http.Request, op string) {
	message := op + " is not implemented."
	writeS3Error(w, "NotImplemented", message, r.URL.Path, http.StatusNotImplemented)
}

// writeS3Error writes a minimal S3-style XML error response.
func writeS3Error(w http.ResponseWriter, code string, message string, resource string, status int) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_ = xml.NewEncoder(w).Encode(S3Error{
		Code:     code,
		Message:  message,
		Resource: resource,
	})
}

// writeStoreError maps store sentinel errors onto S3 error responses.
// Anything unrecognized becomes an InternalError.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrBucketNotFound):
		writeS3Error(w, "NoSuchBucket", "The specified bucket does not exist.", r.URL.Path, http.StatusNotFound)
	case errors.Is(err, store.ErrObjectNotFound):
		writeS3Error(w, "NoSuchKey", "The specified key does not exist.", r.URL.Path, http.StatusNotFound)
	case errors.Is(err, store.ErrBucketExists):
		writeS3Error(w, "BucketAlreadyExists", "The requested bucket name is not available. The bucket namespace is shared by all users of the system. Please select a different name and try again.", r.URL.Path, http.StatusConflict)
	case errors.Is(err, store.ErrBucketNotEmpty):
		writeS3Error(w, "BucketNotEmpty", "The bucket you tried to delete is not empty.", r.URL.Path, http.StatusConflict)
	default:
		writeS3Error(w, "InternalError", "We encountered an internal error. Please try again.", r.URL.Path, http.StatusInternalServerError)
	}
}

// writeXMLResponse encodes v as XML and writes it to w with a 200 OK status.
func writeXMLResponse(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	return xml.NewEncoder(w).Encode(v)
}

// createETag formats a hash hex string as an ETag value.
func createETag(hashHex string) string {
	return fmt.Sprintf("\"%s\"", hashHex)
}

func contentETag(data []byte) string {
	sum := sha256.Sum256(data)
	return createETag(hex.EncodeToString(sum[:]))
}

// isValidBucketName implements the standard S3 bucket naming rules for
// "virtual hosted-style" buckets.
func isValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}

	// Must consist only of lowercase letters, digits, dots, or hyphens,
	// and must start and end with a letter or digit.
	if !bucketNamePattern.MatchString(name) {
		return false
	}

	// Disallow patterns like "..", ".-", "-.".
	if strings.Contains(name, "..") {
		return false
	}

	for i := 1; i < len(name); i++ {
		if (name[i-1] == '.' && name[i] == '-') || (name[i-1] == '-' && name[i] == '.') {
			return false
		}
	}

	// Bucket name must not be formatted as an IPv4 address.
	ip := net.ParseIP(name)
	return ip == nil
}

// isValidObjectKey enforces basic S3 object key constraints: non-empty,
// at most 1024 bytes, and no control characters.
func isValidObjectKey(key string) bool {
	if len(key) == 0 || len(key) > 1024 {
		return false
	}

	return !strings.ContainsFunc(key, func(c rune) bool {
		return c < 0x20 || c == 0x7f
	})
}

// validateBucketNameOrError writes an S3 InvalidBucketName error and returns
// false if the provided name does not meet S3 bucket naming rules.
func validateBucketNameOrError(w http.ResponseWriter, r *http.Request, bucket string) bool {
	if !isValidBucketName(bucket) {
		writeS3Error(w, "InvalidBucketName", "The specified bucket is not valid.", r.URL.Path, http.StatusBadRequest)
		return false
	}
	return true
}

// validateObjectKeyOrError writes an S3-style error for invalid object keys.
func validateObjectKeyOrError(w http.ResponseWriter, r *http.Request, key string) bool {
	if !isValidObjectKey(key) {
		writeS3Error(w, "InvalidObjectName", "The specified key is not valid.", r.URL.Path, http.StatusBadRequest)
		return false
	}
	return true
}

// metadataFromHeaders collects user metadata from x-amz-meta-* request
// headers. The prefix is stripped and names are lowercased.
func metadataFromHeaders(h http.Header) map[string]any {
	meta := map[string]any{}
	for name, values := range h {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, metadataHeaderPrefix) || len(values) == 0 {
			continue
		}
		meta[strings.TrimPrefix(lower, metadataHeaderPrefix)] = values[0]
	}
	return meta
}

// setMetadataHeaders exposes stored user metadata as x-amz-meta-* response
// headers. Non-string values are formatted with fmt.Sprint.
func setMetadataHeaders(w http.ResponseWriter, meta map[string]any) {
	for name, value := range meta {
		w.Header().Set(metadataHeaderPrefix+name, fmt.Sprint(value))
	}
}

// decodeStreamingPayload decodes an AWS Signature Version 4 streaming
// (chunked) request body while computing the SHA-256 hash of the decoded
// payload. It returns the decoded bytes and the payload hash.
func decodeStreamingPayload(body io.Reader, decodedLen int64) ([]byte, string, error) {
	br := bufio.NewReader(body)

	h := sha256.New()
	var out bytes.Buffer
	if decodedLen > 0 {
		out.Grow(int(decodedLen))
	}

	for {
		// Each chunk begins with: <size-hex>[;extensions]\r\n
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, "", errors.New("unexpected EOF while reading chunk header")
			}
			return nil, "", fmt.Errorf("read chunk header: %w", err)
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			// Skip empty lines if any.
			continue
		}

		// Strip any chunk extensions (e.g. ";chunk-signature=...").
		if idx := strings.IndexByte(line, ';'); idx != -1 {
			line = line[:idx]
		}

		sizeHex := strings.TrimSpace(line)
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil {
			return nil, "", fmt.Errorf("parse chunk size %q: %w", sizeHex, err)
		}

		if size == 0 {
			// Final chunk. Per AWS streaming format, this is followed by a
			// trailing CRLF and optional trailers. For our purposes we can
			// consume a single empty line and stop.
			_, _ = br.ReadString('\n') // best-effort consume trailer terminator
			break
		}

		if _, err := io.CopyN(io.MultiWriter(&out, h), br, size); err != nil {
			return nil, "", fmt.Errorf("read chunk body: %w", err)
		}

		// Consume the trailing CRLF after the chunk body.
		if b, err := br.ReadByte(); err != nil || b != '\r' {
			if err == nil {
				return nil, "", fmt.Errorf("expected CR after chunk, got %q", b)
			}
			return nil, "", fmt.Errorf("read CR after chunk: %w", err)
		}
		if b, err := br.ReadByte(); err != nil || b != '\n' {
			if err == nil {
				return nil, "", fmt.Errorf("expected LF after chunk, got %q", b)
			}
			return nil, "", fmt.Errorf("read LF after chunk: %w", err)
		}
	}

	// If decodedLen was provided, use it as a sanity check but do not
	// fail hard if it does not match exactly. Some clients mis-report it;
	// the store relies on the actual length we decoded.
	if decodedLen >= 0 && int64(out.Len()) != decodedLen {
		slog.Debug("Decoded streaming payload length mismatch", "expected", decodedLen, "actual", out.Len())
	}

	hashHex := hex.EncodeToString(h.Sum(nil))
	return out.Bytes(), hashHex, nil
}

// ------ Dispatchers for bucket-level HTTP handlers ------

// handleBucketPut dispatches PUT /bucket[?subresource] between CreateBucket
// and various bucket configuration APIs.
func (s *Server) handleBucketPut(w http.ResponseWriter, r *http.Request, bucket string) {
	if !validateBucketNameOrError(w, r, bucket) {
		return
	}

	q := r.URL.Query()
	switch {
	case q.Has("tagging"):
		s.writeNotImplemented(w, r, "PutBucketTagging")
	case q.Has("versioning"):
		s.writeNotImplemented(w, r, "PutBucketVersioning")
	case q.Has("encryption"):
		s.writeNotImplemented(w, r, "PutBucketEncryption")
	case q.Has("cors"):
		s.writeNotImplemented(w, r, "PutBucketCors")
	case q.Has("lifecycle"):
		s.writeNotImplemented(w, r, "PutBucketLifecycleConfiguration")
	case q.Has("policy"):
		s.writeNotImplemented(w, r, "PutBucketPolicy")
	default:
		s.handleCreateBucket(w, r, bucket)
	}
}

// handleBucketPost implements POST /bucket[?subresource], such as
// CreateDirectory and DeleteObjects.
func (s *Server) handleBucketPost(w http.ResponseWriter, r *http.Request, bucket string) {
	if !validateBucketNameOrError(w, r, bucket) {
		return
	}

	q := r.URL.Query()
	switch {
	case q.Has("directory"):
		s.handleCreateDirectory(w, r, bucket, q.Get("directory"))
	case q.Has("delete"):
		s.writeNotImplemented(w, r, "DeleteObjects")
	default:
		s.writeNotImplemented(w, r, "BucketPost")
	}
}

// handleBucketGet dispatches GET /bucket[?subresource] between ListObjects
// and bucket-level read APIs.
func (s *Server) handleBucketGet(w http.ResponseWriter, r *http.Request, bucket string) {
	if !validateBucketNameOrError(w, r, bucket) {
		return
	}

	q := r.URL.Query()
	switch {
	case q.Has("location"):
		s.handleGetBucketLocation(w, r, bucket)
	case q.Has("tagging"):
		s.writeNotImplemented(w, r, "GetBucketTagging")
	case q.Has("versioning"):
		s.writeNotImplemented(w, r, "GetBucketVersioning")
	case q.Has("policy"):
		s.writeNotImplemented(w, r, "GetBucketPolicy")
	case q.Get("list-type") == "2":
		s.handleListObjectsV2(w, r, bucket)
	case q.Has("versions"):
		s.writeNotImplemented(w, r, "ListObjectVersions")
	case q.Has("uploads"):
		s.writeNotImplemented(w, r, "ListMultipartUploads")
	default:
		s.handleListObjects(w, r, bucket)
	}
}

// handleBucketDelete implements DELETE /bucket[?subresource]. The force
// query parameter removes the bucket along with its contents.
func (s *Server) handleBucketDelete(w http.ResponseWriter, r *http.Request, bucket string) {
	if !validateBucketNameOrError(w, r, bucket) {
		return
	}

	q := r.URL.Query()
	switch {
	case q.Has("tagging"):
		s.writeNotImplemented(w, r, "DeleteBucketTagging")
	case q.Has("policy"):
		s.writeNotImplemented(w, r, "DeleteBucketPolicy")
	default:
		s.handleDeleteBucket(w, r, bucket, q.Has("force"))
	}
}

// handleBucketHead implements HEAD /bucket.
func (s *Server) handleBucketHead(w http.ResponseWriter, r *http.Request, bucket string) {
	if !validateBucketNameOrError(w, r, bucket) {
		return
	}

	if !s.store.BucketExists(bucket) {
		writeS3Error(w, "NoSuchBucket", "The specified bucket does not exist.", r.URL.Path, http.StatusNotFound)
		return
	}

	// S3-compatible HEAD bucket: 200 with no body.
	w.WriteHeader(http.StatusOK)
}

// ------ Dispatchers for object-level HTTP handlers ------

// handleObjectPost implements POST /bucket/key[?subresource].
func (s *Server) handleObjectPost(w http.ResponseWriter, r *http.Request, bucket string, key string) {
	if !validateBucketNameOrError(w, r, bucket) {
		return
	}
	if !validateObjectKeyOrError(w, r, key) {
		return
	}

	q := r.URL.Query()
	switch {
	case q.Has("uploadId"):
		s.writeNotImplemented(w, r, "CompleteMultipartUpload")
	case q.Has("restore"):
		s.writeNotImplemented(w, r, "RestoreObject")
	default:
		s.writeNotImplemented(w, r, "ObjectPost")
	}
}

// handleObjectGet implements GET /bucket/key to retrieve an object or, with
// the metadata subresource, its user metadata.
func (s *Server) handleObjectGet(w http.ResponseWriter, r *http.Request, bucket string, key string) {
	if !validateBucketNameOrError(w, r, bucket) {
		return
	}
	if !validateObjectKeyOrError(w, r, key) {
		return
	}

	q := r.URL.Query()
	switch {
	case q.Has("metadata"):
		s.handleGetObjectMetadata(w, r, bucket, key)
	case q.Has("tagging"):
		s.writeNotImplemented(w, r, "GetObjectTagging")
	case q.Has("attributes"):
		s.writeNotImplemented(w, r, "GetObjectAttributes")
	default:
		s.handleGetObject(w, r, bucket, key)
	}
}

// handleObjectDelete implements DELETE /bucket/key to delete an object.
func (s *Server) handleObjectDelete(w http.ResponseWriter, r *http.Request, bucket string, key string) {
	if !validateBucketNameOrError(w, r, bucket) {
		return
	}
	if !validateObjectKeyOrError(w, r, key) {
		return
	}

	q := r.URL.Query()
	switch {
	case q.Has("tagging"):
		s.writeNotImplemented(w, r, "DeleteObjectTagging")
	case q.Has("uploadId"):
		s.writeNotImplemented(w, r, "AbortMultipartUpload")
	default:
		s.handleDeleteObject(w, r, bucket, key)
	}
}

// handleObjectPut implements PUT /bucket/key to store an object. Keys that
// end in a slash create a directory instead of an object.
func (s *Server) handleObjectPut(w http.ResponseWriter, r *http.Request, bucket string, key string) {
	if !validateBucketNameOrError(w, r, bucket) {
		return
	}
	if !validateObjectKeyOrError(w, r, key) {
		return
	}

	q := r.URL.Query()

	if uploadID := q.Get("uploadId"); uploadID != "" {
		if partNumber := q.Get("partNumber"); partNumber != "" {
			if r.Header.Get("x-amz-copy-source") != "" {
				s.writeNotImplemented(w, r, "UploadPartCopy")
			} else {
				s.writeNotImplemented(w, r, "UploadPart")
			}
			return
		}
	}

	if q.Has("tagging") {
		s.writeNotImplemented(w, r, "PutObjectTagging")
		return
	}

	if r.Header.Get("x-amz-copy-source") != "" {
		s.writeNotImplemented(w, r, "CopyObject")
		return
	}

	defer r.Body.Close()

	var (
		data    []byte
		hashHex string
	)

	contentSHA := r.Header.Get("X-Amz-Content-Sha256")
	if strings.EqualFold(contentSHA, "STREAMING-AWS4-HMAC-SHA256-PAYLOAD") {
		decodedLenStr := r.Header.Get("X-Amz-Decoded-Content-Length")
		if decodedLenStr == "" {
			slog.Error("Missing X-Amz-Decoded-Content-Length for streaming payload")
			writeS3Error(w, "InvalidRequest", "Missing X-Amz-Decoded-Content-Length for streaming payload", r.URL.Path, http.StatusBadRequest)
			return
		}

		decodedLen, parseErr := strconv.ParseInt(decodedLenStr, 10, 64)
		if parseErr != nil || decodedLen < 0 {
			slog.Error("Invalid X-Amz-Decoded-Content-Length", "value", decodedLenStr, "err", parseErr)
			writeS3Error(w, "InvalidRequest", "Invalid X-Amz-Decoded-Content-Length", r.URL.Path, http.StatusBadRequest)
			return
		}

		var err error
		data, hashHex, err = decodeStreamingPayload(r.Body, decodedLen)
		if err != nil {
			slog.Error("Decode streaming payload", "err", err)
			writeS3Error(w, "InvalidRequest", "Failed to decode streaming payload", r.URL.Path, http.StatusBadRequest)
			return
		}
	} else {
		var err error
		data, err = io.ReadAll(r.Body)
		if err != nil {
			slog.Error("Read request body", "err", err)
			writeS3Error(w, "InvalidRequest", "Failed to read request body", r.URL.Path, http.StatusBadRequest)
			return
		}

		sum := sha256.Sum256(data)
		hashHex = hex.EncodeToString(sum[:])
	}

	meta := metadataFromHeaders(r.Header)

	if _, err := s.store.PutObject(bucket, key, data, meta); err != nil {
		if !errors.Is(err, store.ErrBucketNotFound) {
			slog.Error("Store object", "bucket", bucket, "key", key, "err", err)
		}
		writeStoreError(w, r, err)
		return
	}

	w.Header().Set("ETag", createETag(hashHex))
	w.WriteHeader(http.StatusOK)
}

// handleObjectHead implements HEAD /bucket/key, returning metadata headers
// compatible with S3 but without a response body.
func (s *Server) handleObjectHead(w http.ResponseWriter, r *http.Request, bucket string, key string) {
	if !validateBucketNameOrError(w, r, bucket) {
		return
	}
	if !validateObjectKeyOrError(w, r, key) {
		return
	}

	info, meta, err := s.store.StatObject(bucket, key)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	setMetadataHeaders(w, meta)
	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	w.Header().Set("Accept-Ranges", "bytes")

	w.WriteHeader(http.StatusOK)
}

// ------ Individual API HTTP handlers ------

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request, bucket string, key string) {
	rc, info, err := s.store.GetObject(bucket, key)
	if err != nil {
		if !errors.Is(err, store.ErrObjectNotFound) && !errors.Is(err, store.ErrBucketNotFound) {
			slog.Error("Read object payload", "bucket", bucket, "key", key, "err", err)
		}
		writeStoreError(w, r, err)
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		slog.Error("Read object payload", "bucket", bucket, "key", key, "err", err)
		writeS3Error(w, "InternalError", "We encountered an internal error. Please try again.", r.URL.Path, http.StatusInternalServerError)
		return
	}

	setMetadataHeaders(w, s.store.ReadMetadata(bucket, key))
	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(int64(len(data)), 10))
	w.Header().Set("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	w.Header().Set("ETag", contentETag(data))
	w.Header().Set("Accept-Ranges", "bytes")

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("Stream object", "bucket", bucket, "key", key, "err", err)
	}
}

// handleGetObjectMetadata implements GET /bucket/key?metadata, returning the
// object's user metadata as a JSON envelope.
func (s *Server) handleGetObjectMetadata(w http.ResponseWriter, r *http.Request, bucket string, key string) {
	_, meta, err := s.store.StatObject(bucket, key)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{"metadata": meta}); err != nil {
		slog.Error("Encode object metadata JSON", "bucket", bucket, "key", key, "err", err)
	}
}

func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request, bucket string, key string) {
	if err := s.store.DeleteObject(bucket, key); err != nil {
		if !errors.Is(err, store.ErrObjectNotFound) && !errors.Is(err, store.ErrBucketNotFound) {
			slog.Error("Delete object", "bucket", bucket, "key", key, "err", err)
		}
		writeStoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleCreateBucket implements PUT /bucket to create a new bucket.
func (s *Server) handleCreateBucket(w http.ResponseWriter, r *http.Request, bucket string) {
	if _, err := s.store.CreateBucket(bucket); err != nil {
		if !errors.Is(err, store.ErrBucketExists) {
			slog.Error("Create bucket", "bucket", bucket, "err", err)
		}
		writeStoreError(w, r, err)
		return
	}

	w.Header().Set("Location", "/"+bucket)
	w.WriteHeader(http.StatusOK)
}

// handleDeleteBucket implements DELETE /bucket. Without force, the bucket
// must be empty.
func (s *Server) handleDeleteBucket(w http.ResponseWriter, r *http.Request, bucket string, force bool) {
	if err := s.store.DeleteBucket(bucket, force); err != nil {
		if !errors.Is(err, store.ErrBucketNotFound) && !errors.Is(err, store.ErrBucketNotEmpty) {
			slog.Error("Delete bucket", "bucket", bucket, "err", err)
		}
		writeStoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetBucketLocation implements GET /bucket?location
func (s *Server) handleGetBucketLocation(w http.ResponseWriter, r *http.Request, bucket string) {
	if !s.store.BucketExists(bucket) {
		writeS3Error(w, "NoSuchBucket", "The specified bucket does not exist.", r.URL.Path, http.StatusNotFound)
		return
	}

	resp := LocationConstraint{
		XMLNS:  s3XMLNamespace,
		Region: s.region,
	}

	if err := writeXMLResponse(w, resp); err != nil {
		slog.Error("Encode bucket location XML", "bucket", bucket, "err", err)
	}
}

// handleCreateDirectory implements POST /bucket?directory=path to create an
// explicit directory chain inside a bucket.
func (s *Server) handleCreateDirectory(w http.ResponseWriter, r *http.Request, bucket string, directory string) {
	if directory == "" {
		writeS3Error(w, "InvalidRequest", "The directory parameter must not be empty.", r.URL.Path, http.StatusBadRequest)
		return
	}
	if !isValidObjectKey(directory) {
		writeS3Error(w, "InvalidObjectName", "The specified directory path is not valid.", r.URL.Path, http.StatusBadRequest)
		return
	}

	if err := s.store.CreateDirectory(bucket, directory); err != nil {
		if !errors.Is(err, store.ErrBucketNotFound) {
			slog.Error("Create directory", "bucket", bucket, "directory", directory, "err", err)
		}
		writeStoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleListBuckets implements GET / to list all buckets.
func (s *Server) handleListBuckets(w http.ResponseWriter, r *http.Request) {
	infos, err := s.store.Buckets()
	if err != nil {
		slog.Error("List buckets", "err", err)
		writeS3Error(w, "InternalError", "We encountered an internal error. Please try again.", r.URL.Path, http.StatusInternalServerError)
		return
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	buckets := make([]ListAllMyBucketsEntry, 0, len(infos))
	for _, b := range infos {
		buckets = append(buckets, ListAllMyBucketsEntry{
			Name:         b.Name,
			CreationDate: b.CreationDate.UTC().Format(time.RFC3339),
		})
	}

	resp := ListAllMyBucketsResult{
		XMLNS: s3XMLNamespace,
		Owner: ListAllMyBucketsOwner{
			ID:          "cellar",
			DisplayName: "cellar",
		},
		Buckets: buckets,
	}

	if err := writeXMLResponse(w, resp); err != nil {
		slog.Error("Encode list buckets XML", "err", err)
	}
}

// listEntries returns the bucket's objects under prefix in lexicographic
// key order, skipping keys at or before after.
func (s *Server) listEntries(bucket, prefix, after string) ([]store.ObjectInfo, error) {
	entries, err := s.store.ListObjects(bucket, prefix)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	if after != "" {
		idx := sort.Search(len(entries), func(i int) bool { return entries[i].Key > after })
		entries = entries[idx:]
	}

	return entries, nil
}

func parseMaxKeys(q string) int {
	maxKeys := 1000
	if q != "" {
		if v, err := strconv.Atoi(q); err == nil && v > 0 {
			maxKeys = v
		}
	}
	return maxKeys
}

// collectListing walks the sorted entries, grouping delimited keys into
// CommonPrefixes and emitting the rest as Contents, until maxKeys entries
// have been produced. It reports whether the listing was truncated and the
// last key scanned before stopping.
func collectListing(entries []store.ObjectInfo, prefix, delimiter string, maxKeys int) (summaries []ObjectSummary, commonPrefixes []CommonPrefix, isTruncated bool, lastScannedKey string) {
	seenPrefixes := make(map[string]struct{})
	entryCount := 0

	for _, entry := range entries {
		lastScannedKey = entry.Key

		// Flat (recursive-style) listing when no delimiter is provided.
		if delimiter == "" {
			if entryCount >= maxKeys {
				isTruncated = true
				return
			}
			summaries = append(summaries, ObjectSummary{
				Key:          entry.Key,
				LastModified: entry.LastModified.UTC().Format(time.RFC3339),
				Size:         entry.Size,
				StorageClass: "STANDARD",
			})
			entryCount++
			continue
		}

		// Delimited listing: group keys into CommonPrefixes for the first
		// path segment after the prefix. Objects directly under the prefix
		// are returned as Contents.
		rel := strings.TrimPrefix(entry.Key, prefix)
		idx := strings.Index(rel, delimiter)
		if idx == -1 {
			if entryCount >= maxKeys {
				isTruncated = true
				return
			}
			summaries = append(summaries, ObjectSummary{
				Key:          entry.Key,
				LastModified: entry.LastModified.UTC().Format(time.RFC3339),
				Size:         entry.Size,
				StorageClass: "STANDARD",
			})
			entryCount++
			continue
		}

		// There is another delimiter; emit or reuse a CommonPrefix.
		cp := prefix + rel[:idx+1]
		if _, ok := seenPrefixes[cp]; ok {
			continue
		}
		if entryCount >= maxKeys {
			isTruncated = true
			return
		}
		seenPrefixes[cp] = struct{}{}
		commonPrefixes = append(commonPrefixes, CommonPrefix{Prefix: cp})
		entryCount++
	}

	return
}

// handleListObjects implements S3 ListObjects (v1) for a single bucket:
// GET /bucket[?prefix=&delimiter=&max-keys=].
func (s *Server) handleListObjects(w http.ResponseWriter, r *http.Request, bucket string) {
	q := r.URL.Query()
	prefix := q.Get("prefix")
	delimiter := q.Get("delimiter")
	maxKeys := parseMaxKeys(q.Get("max-keys"))

	entries, err := s.listEntries(bucket, prefix, "")
	if err != nil {
		if !errors.Is(err, store.ErrBucketNotFound) {
			slog.Error("List objects", "bucket", bucket, "err", err)
		}
		writeStoreError(w, r, err)
		return
	}

	summaries, commonPrefixes, isTruncated, _ := collectListing(entries, prefix, delimiter, maxKeys)

	resp := ListBucketResult{
		XMLNS:          s3XMLNamespace,
		Name:           bucket,
		Prefix:         prefix,
		Delimiter:      delimiter,
		MaxKeys:        maxKeys,
		IsTruncated:    isTruncated,
		Contents:       summaries,
		CommonPrefixes: commonPrefixes,
	}

	if err := writeXMLResponse(w, resp); err != nil {
		slog.Error("Encode list objects XML", "bucket", bucket, "err", err)
	}
}

// handleListObjectsV2 implements S3 ListObjectsV2:
// GET /bucket?list-type=2[&prefix=&delimiter=&max-keys=&continuation-token=&start-after=].
func (s *Server) handleListObjectsV2(w http.ResponseWriter, r *http.Request, bucket string) {
	q := r.URL.Query()
	prefix := q.Get("prefix")
	delimiter := q.Get("delimiter")
	continuationToken := q.Get("continuation-token")
	startAfter := ""
	if continuationToken == "" {
		startAfter = q.Get("start-after")
	}
	maxKeys := parseMaxKeys(q.Get("max-keys"))

	after := continuationToken
	if after == "" {
		after = startAfter
	}

	entries, err := s.listEntries(bucket, prefix, after)
	if err != nil {
		if !errors.Is(err, store.ErrBucketNotFound) {
			slog.Error("List objects v2", "bucket", bucket, "err", err)
		}
		writeStoreError(w, r, err)
		return
	}

	summaries, commonPrefixes, isTruncated, lastScannedKey := collectListing(entries, prefix, delimiter, maxKeys)

	nextContinuationToken := ""
	if isTruncated {
		// With no delimiter (or no common prefixes), follow the usual
		// ListObjectsV2 behavior of using the last returned object key as
		// the continuation token so clients resume after the last visible
		// entry. When returning common prefixes, fall back to the last
		// scanned key, which is sufficient for forward progress and
		// compatible with minio-go.
		if (delimiter == "" || len(commonPrefixes) == 0) && len(summaries) > 0 {
			nextContinuationToken = summaries[len(summaries)-1].Key
		} else if lastScannedKey != "" {
			nextContinuationToken = lastScannedKey
		}
	}

	resp := ListBucketResultV2{
		XMLNS:                 s3XMLNamespace,
		Name:                  bucket,
		Prefix:                prefix,
		Delimiter:             delimiter,
		KeyCount:              len(summaries) + len(commonPrefixes),
		MaxKeys:               maxKeys,
		IsTruncated:           isTruncated,
		ContinuationToken:     continuationToken,
		NextContinuationToken: nextContinuationToken,
		StartAfter:            startAfter,
		Contents:              summaries,
		CommonPrefixes:        commonPrefixes,
	}

	if err := writeXMLResponse(w, resp); err != nil {
		slog.Error("Encode list objects v2 XML", "bucket", bucket, "err", err)
	}
}
