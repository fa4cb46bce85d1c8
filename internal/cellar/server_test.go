package cellar

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cellar/internal/auth"
	"cellar/internal/store"

	"github.com/stretchr/testify/require"
)

// newTestServer creates a Server backed by a temporary directory, served
// without authentication.
func newTestServer(t *testing.T) (*store.Store, *httptest.Server) {
	t.Helper()

	st, err := store.New(t.TempDir())
	require.NoError(t, err, "store.New error")

	srv := NewServer(st, "us-east-1")
	httpSrv := httptest.NewServer(srv.Handler(nil))
	t.Cleanup(httpSrv.Close)

	return st, httpSrv
}

func mustRequest(t *testing.T, client *http.Client, method, url string, body []byte) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err, "creating %s request", method)

	resp, err := client.Do(req)
	require.NoErrorf(t, err, "%s %s error", method, url)
	return resp
}

func createBucket(t *testing.T, client *http.Client, baseURL, bucket string) {
	t.Helper()

	resp := mustRequest(t, client, http.MethodPut, baseURL+"/"+bucket, nil)
	resp.Body.Close()
	require.Equalf(t, http.StatusOK, resp.StatusCode, "PUT bucket %s status", bucket)
}

func putObject(t *testing.T, client *http.Client, baseURL, bucket, key string, body []byte) {
	t.Helper()

	resp := mustRequest(t, client, http.MethodPut, baseURL+"/"+bucket+"/"+key, body)
	resp.Body.Close()
	require.Equalf(t, http.StatusOK, resp.StatusCode, "PUT object %s status", key)
}

func decodeS3Error(t *testing.T, body io.Reader) string {
	t.Helper()

	var s3Err struct {
		Code string `xml:"Code"`
	}
	require.NoError(t, xml.NewDecoder(body).Decode(&s3Err), "decoding S3 error XML")
	return s3Err.Code
}

func TestCreateAndListBuckets(t *testing.T) {
	t.Parallel()

	_, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	for _, b := range []string{"bucket1", "bucket2"} {
		createBucket(t, client, httpSrv.URL, b)
	}

	resp, err := client.Get(httpSrv.URL + "/")
	require.NoError(t, err, "GET / error")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "GET / status")

	var listResp ListAllMyBucketsResult
	require.NoError(t, xml.NewDecoder(resp.Body).Decode(&listResp), "decoding ListAllMyBucketsResult")

	require.Len(t, listResp.Buckets, 2, "expected both buckets")
	require.Equal(t, "bucket1", listResp.Buckets[0].Name, "buckets are sorted by name")
	require.Equal(t, "bucket2", listResp.Buckets[1].Name, "buckets are sorted by name")
}

func TestCreateBucketConflict(t *testing.T) {
	t.Parallel()

	_, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	createBucket(t, client, httpSrv.URL, "dup-bucket")

	resp := mustRequest(t, client, http.MethodPut, httpSrv.URL+"/dup-bucket", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode, "PUT duplicate bucket status")
	require.Equal(t, "BucketAlreadyExists", decodeS3Error(t, resp.Body), "S3 error code")
}

// Path-style S3 clients address buckets with a trailing slash. Every
// bucket-level operation must accept that form without treating it as an
// object request.
func TestBucketTrailingSlash(t *testing.T) {
	t.Parallel()

	_, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	bucket := "slash-bucket"

	resp := mustRequest(t, client, http.MethodPut, httpSrv.URL+"/"+bucket+"/", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "PUT bucket with trailing slash status")

	headResp := mustRequest(t, client, http.MethodHead, httpSrv.URL+"/"+bucket+"/", nil)
	headResp.Body.Close()
	require.Equal(t, http.StatusOK, headResp.StatusCode, "HEAD bucket with trailing slash status")

	putObject(t, client, httpSrv.URL, bucket, "docs/readme.txt", []byte("hi"))

	listResp, err := client.Get(httpSrv.URL + "/" + bucket + "/?prefix=docs/")
	require.NoError(t, err, "GET bucket with trailing slash error")
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode, "GET bucket with trailing slash status")

	var list ListBucketResult
	require.NoError(t, xml.NewDecoder(listResp.Body).Decode(&list), "decoding ListBucketResult")
	require.Len(t, list.Contents, 1, "expected the prefixed object")
	require.Equal(t, "docs/readme.txt", list.Contents[0].Key, "listed key")

	delResp := mustRequest(t, client, http.MethodDelete, httpSrv.URL+"/"+bucket+"/?force", nil)
	delResp.Body.Close()
	require.Equal(t, http.StatusNoContent, delResp.StatusCode, "DELETE bucket with trailing slash status")
}

func TestInvalidBucketNames(t *testing.T) {
	t.Parallel()

	_, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	tests := []struct {
		name   string
		bucket string
	}{
		{name: "too short", bucket: "ab"},
		{name: "too long", bucket: strings.Repeat("a", 64)},
		{name: "uppercase", bucket: "BadBucket"},
		{name: "ip address", bucket: "192.168.0.1"},
		{name: "leading dash", bucket: "-bucket"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := mustRequest(t, client, http.MethodPut, httpSrv.URL+"/"+tc.bucket, nil)
			defer resp.Body.Close()

			require.Equal(t, http.StatusBadRequest, resp.StatusCode, "status code")
			require.Equal(t, "InvalidBucketName", decodeS3Error(t, resp.Body), "S3 error code")
		})
	}
}

func TestPutGetHeadDeleteObject(t *testing.T) {
	t.Parallel()

	_, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	bucket := "test-bucket"
	key := "dir1/object.txt"
	body := []byte("hello world")

	createBucket(t, client, httpSrv.URL, bucket)

	// PUT object
	resp := mustRequest(t, client, http.MethodPut, httpSrv.URL+"/"+bucket+"/"+key, body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "PUT object status")
	require.NotEmpty(t, resp.Header.Get("ETag"), "expected ETag header on PUT response")

	// GET object
	resp, err := client.Get(httpSrv.URL + "/" + bucket + "/" + key)
	require.NoError(t, err, "GET object error")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "GET object status")
	require.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"), "GET Content-Type")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "reading GET body")
	require.Equal(t, string(body), string(data), "GET object body")

	// HEAD object
	headResp := mustRequest(t, client, http.MethodHead, httpSrv.URL+"/"+bucket+"/"+key, nil)
	headResp.Body.Close()
	require.Equal(t, http.StatusOK, headResp.StatusCode, "HEAD object status")
	require.Equal(t, "text/plain; charset=utf-8", headResp.Header.Get("Content-Type"), "HEAD Content-Type")
	require.Equal(t, "11", headResp.Header.Get("Content-Length"), "HEAD Content-Length")

	// DELETE object
	delResp := mustRequest(t, client, http.MethodDelete, httpSrv.URL+"/"+bucket+"/"+key, nil)
	delResp.Body.Close()
	require.Equal(t, http.StatusNoContent, delResp.StatusCode, "DELETE object status")

	// GET after delete should return 404.
	resp, err = client.Get(httpSrv.URL + "/" + bucket + "/" + key)
	require.NoError(t, err, "GET deleted object error")
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode, "GET deleted object status")
	require.Equal(t, "NoSuchKey", decodeS3Error(t, resp.Body), "S3 error code")
}

func TestPutObjectMissingBucket(t *testing.T) {
	t.Parallel()

	_, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	// Buckets are never auto-created on upload.
	resp := mustRequest(t, client, http.MethodPut, httpSrv.URL+"/ghost-bucket/key.txt", []byte("data"))
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode, "PUT object status")
	require.Equal(t, "NoSuchBucket", decodeS3Error(t, resp.Body), "S3 error code")
}

func TestUserMetadataRoundTrip(t *testing.T) {
	t.Parallel()

	_, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	bucket := "meta-bucket"
	key := "annotated.txt"

	createBucket(t, client, httpSrv.URL, bucket)

	req, err := http.NewRequest(http.MethodPut, httpSrv.URL+"/"+bucket+"/"+key, bytes.NewReader([]byte("content")))
	require.NoError(t, err, "creating PUT request")
	req.Header.Set("x-amz-meta-author", "alice")
	req.Header.Set("x-amz-meta-department", "engineering")

	resp, err := client.Do(req)
	require.NoError(t, err, "PUT object error")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "PUT object status")

	// HEAD exposes the metadata as headers.
	headResp := mustRequest(t, client, http.MethodHead, httpSrv.URL+"/"+bucket+"/"+key, nil)
	headResp.Body.Close()
	require.Equal(t, http.StatusOK, headResp.StatusCode, "HEAD object status")
	require.Equal(t, "alice", headResp.Header.Get("x-amz-meta-author"), "HEAD metadata header")
	require.Equal(t, "engineering", headResp.Header.Get("x-amz-meta-department"), "HEAD metadata header")

	// The metadata subresource returns a JSON envelope.
	metaResp, err := client.Get(httpSrv.URL + "/" + bucket + "/" + key + "?metadata")
	require.NoError(t, err, "GET object metadata error")
	defer metaResp.Body.Close()
	require.Equal(t, http.StatusOK, metaResp.StatusCode, "GET object metadata status")
	require.Equal(t, "application/json", metaResp.Header.Get("Content-Type"), "metadata Content-Type")

	var envelope struct {
		Metadata map[string]any `json:"metadata"`
	}
	require.NoError(t, json.NewDecoder(metaResp.Body).Decode(&envelope), "decoding metadata envelope")
	require.Equal(t, "alice", envelope.Metadata["author"], "metadata value")
	require.Equal(t, "engineering", envelope.Metadata["department"], "metadata value")
}

func TestDirectoryMarkerKey(t *testing.T) {
	t.Parallel()

	st, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	bucket := "marker-bucket"
	createBucket(t, client, httpSrv.URL, bucket)

	// A key ending in a slash creates a directory, not an object.
	resp := mustRequest(t, client, http.MethodPut, httpSrv.URL+"/"+bucket+"/archive/2024/", []byte("ignored"))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "PUT marker key status")

	_, err := os.Stat(filepath.Join(st.BucketPath(bucket), "archive", "2024", store.MarkerName))
	require.NoError(t, err, "marker file should exist on disk")

	// The marker key is not retrievable as an object.
	getResp, err := client.Get(httpSrv.URL + "/" + bucket + "/archive/2024/")
	require.NoError(t, err, "GET marker key error")
	defer getResp.Body.Close()
	require.Equal(t, http.StatusNotFound, getResp.StatusCode, "GET marker key status")

	// The listing shows no objects either.
	listResp, err := client.Get(httpSrv.URL + "/" + bucket)
	require.NoError(t, err, "GET bucket error")
	defer listResp.Body.Close()

	var list ListBucketResult
	require.NoError(t, xml.NewDecoder(listResp.Body).Decode(&list), "decoding ListBucketResult")
	require.Empty(t, list.Contents, "markers are invisible in listings")
}

func TestCreateDirectorySubresource(t *testing.T) {
	t.Parallel()

	st, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	bucket := "dir-bucket"
	createBucket(t, client, httpSrv.URL, bucket)

	resp := mustRequest(t, client, http.MethodPost, httpSrv.URL+"/"+bucket+"?directory=projects/cellar", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "POST directory status")

	_, err := os.Stat(filepath.Join(st.BucketPath(bucket), "projects", "cellar", store.MarkerName))
	require.NoError(t, err, "directory marker should exist")

	// Missing bucket is reported as NoSuchBucket.
	resp = mustRequest(t, client, http.MethodPost, httpSrv.URL+"/ghost-bucket?directory=a", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode, "POST directory on missing bucket status")
	require.Equal(t, "NoSuchBucket", decodeS3Error(t, resp.Body), "S3 error code")
}

func TestDeleteBucketForce(t *testing.T) {
	t.Parallel()

	_, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	bucket := "full-bucket"
	createBucket(t, client, httpSrv.URL, bucket)
	putObject(t, client, httpSrv.URL, bucket, "keep.txt", []byte("data"))

	// Plain delete refuses because the bucket has contents.
	resp := mustRequest(t, client, http.MethodDelete, httpSrv.URL+"/"+bucket, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode, "DELETE full bucket status")
	require.Equal(t, "BucketNotEmpty", decodeS3Error(t, resp.Body), "S3 error code")
	resp.Body.Close()

	// Force delete removes the bucket and everything in it.
	resp = mustRequest(t, client, http.MethodDelete, httpSrv.URL+"/"+bucket+"?force", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode, "DELETE force status")

	headResp := mustRequest(t, client, http.MethodHead, httpSrv.URL+"/"+bucket, nil)
	headResp.Body.Close()
	require.Equal(t, http.StatusNotFound, headResp.StatusCode, "HEAD deleted bucket status")
}

func TestStreamingUpload(t *testing.T) {
	t.Parallel()

	_, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	bucket := "stream-bucket"
	key := "streamed.bin"
	createBucket(t, client, httpSrv.URL, bucket)

	// AWS SigV4 chunked encoding: one data chunk plus the final zero chunk.
	payload := "hello world"
	chunked := "b;chunk-signature=deadbeef\r\n" + payload + "\r\n" +
		"0;chunk-signature=deadbeef\r\n\r\n"

	req, err := http.NewRequest(http.MethodPut, httpSrv.URL+"/"+bucket+"/"+key, strings.NewReader(chunked))
	require.NoError(t, err, "creating streaming PUT request")
	req.Header.Set("X-Amz-Content-Sha256", "STREAMING-AWS4-HMAC-SHA256-PAYLOAD")
	req.Header.Set("X-Amz-Decoded-Content-Length", "11")

	resp, err := client.Do(req)
	require.NoError(t, err, "streaming PUT error")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "streaming PUT status")

	// The stored object holds the decoded payload.
	getResp, err := client.Get(httpSrv.URL + "/" + bucket + "/" + key)
	require.NoError(t, err, "GET streamed object error")
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode, "GET streamed object status")

	data, err := io.ReadAll(getResp.Body)
	require.NoError(t, err, "reading streamed object body")
	require.Equal(t, payload, string(data), "decoded payload")
}

func TestListObjectsDelimiter(t *testing.T) {
	t.Parallel()

	_, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	bucket := "delim-bucket"
	createBucket(t, client, httpSrv.URL, bucket)

	for _, key := range []string{"a/one.txt", "a/two.txt", "b.txt"} {
		putObject(t, client, httpSrv.URL, bucket, key, []byte(key))
	}

	resp, err := client.Get(httpSrv.URL + "/" + bucket + "?delimiter=/")
	require.NoError(t, err, "GET bucket with delimiter error")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "GET bucket with delimiter status")

	var list ListBucketResult
	require.NoError(t, xml.NewDecoder(resp.Body).Decode(&list), "decoding ListBucketResult")

	require.Len(t, list.Contents, 1, "expected one object at the top level")
	require.Equal(t, "b.txt", list.Contents[0].Key, "top-level key")
	require.Len(t, list.CommonPrefixes, 1, "expected one common prefix")
	require.Equal(t, "a/", list.CommonPrefixes[0].Prefix, "common prefix")
}

func TestListObjectsPartialPrefix(t *testing.T) {
	t.Parallel()

	_, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	bucket := "partial-bucket"
	createBucket(t, client, httpSrv.URL, bucket)

	for _, key := range []string{"a/b/two.txt", "a/bx/three.txt", "a/c/four.txt"} {
		putObject(t, client, httpSrv.URL, bucket, key, []byte(key))
	}

	// A prefix that stops mid-segment matches every key sharing it.
	resp, err := client.Get(httpSrv.URL + "/" + bucket + "?prefix=a/b")
	require.NoError(t, err, "GET bucket with prefix error")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "GET bucket with prefix status")

	var list ListBucketResult
	require.NoError(t, xml.NewDecoder(resp.Body).Decode(&list), "decoding ListBucketResult")

	require.Len(t, list.Contents, 2, "expected both a/b* keys")
	require.Equal(t, "a/b/two.txt", list.Contents[0].Key, "first key")
	require.Equal(t, "a/bx/three.txt", list.Contents[1].Key, "second key")
}

func TestListObjectsV2Pagination(t *testing.T) {
	t.Parallel()

	_, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	bucket := "listv2-bucket"
	createBucket(t, client, httpSrv.URL, bucket)

	for _, key := range []string{"a.txt", "b.txt", "c.txt"} {
		putObject(t, client, httpSrv.URL, bucket, key, []byte(key))
	}

	// First page: max-keys=2
	listURL, err := url.Parse(httpSrv.URL + "/" + bucket)
	require.NoError(t, err, "parsing list URL")
	q := listURL.Query()
	q.Set("list-type", "2")
	q.Set("max-keys", "2")
	listURL.RawQuery = q.Encode()

	resp, err := client.Get(listURL.String())
	require.NoError(t, err, "GET ListObjectsV2 page 1 error")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "ListObjectsV2 page 1 status")

	var v2Resp ListBucketResultV2
	require.NoError(t, xml.NewDecoder(resp.Body).Decode(&v2Resp), "decoding ListBucketResultV2 page 1")
	require.Equal(t, 2, v2Resp.KeyCount, "KeyCount page 1")
	require.True(t, v2Resp.IsTruncated, "IsTruncated page 1")
	require.Len(t, v2Resp.Contents, 2, "Contents length page 1")
	require.Equal(t, "a.txt", v2Resp.Contents[0].Key, "first key page 1")
	require.Equal(t, "b.txt", v2Resp.Contents[1].Key, "second key page 1")
	require.NotEmpty(t, v2Resp.NextContinuationToken, "NextContinuationToken page 1")

	// Second page using continuation-token
	listURL2, err := url.Parse(httpSrv.URL + "/" + bucket)
	require.NoError(t, err, "parsing list URL 2")
	q2 := listURL2.Query()
	q2.Set("list-type", "2")
	q2.Set("continuation-token", v2Resp.NextContinuationToken)
	listURL2.RawQuery = q2.Encode()

	resp2, err := client.Get(listURL2.String())
	require.NoError(t, err, "GET ListObjectsV2 page 2 error")
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode, "ListObjectsV2 page 2 status")

	var v2Resp2 ListBucketResultV2
	require.NoError(t, xml.NewDecoder(resp2.Body).Decode(&v2Resp2), "decoding ListBucketResultV2 page 2")
	require.Equal(t, 1, v2Resp2.KeyCount, "KeyCount page 2")
	require.False(t, v2Resp2.IsTruncated, "IsTruncated page 2")
	require.Len(t, v2Resp2.Contents, 1, "Contents length page 2")
	require.Equal(t, "c.txt", v2Resp2.Contents[0].Key, "first key page 2")
}

func TestGetBucketLocation(t *testing.T) {
	t.Parallel()

	_, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	bucket := "location-bucket"
	createBucket(t, client, httpSrv.URL, bucket)

	resp, err := client.Get(httpSrv.URL + "/" + bucket + "?location")
	require.NoError(t, err, "GET bucket location error")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "GET bucket location status")

	var loc struct {
		Region string `xml:",chardata"`
	}
	require.NoError(t, xml.NewDecoder(resp.Body).Decode(&loc), "decoding LocationConstraint")
	require.Equal(t, "us-east-1", strings.TrimSpace(loc.Region), "bucket region")
}

func TestErrorResponsesTableDriven(t *testing.T) {
	t.Parallel()

	_, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	createBucket(t, client, httpSrv.URL, "some-bucket")

	tests := []struct {
		name           string
		method         string
		path           string
		wantStatusCode int
		wantErrorCode  string
		expectBody     bool
	}{
		{
			name:           "NoSuchBucket on HeadBucket",
			method:         http.MethodHead,
			path:           "/nonexistent-bucket",
			wantStatusCode: http.StatusNotFound,
			expectBody:     false,
		},
		{
			name:           "NoSuchBucket on ListObjects",
			method:         http.MethodGet,
			path:           "/nonexistent-bucket",
			wantStatusCode: http.StatusNotFound,
			wantErrorCode:  "NoSuchBucket",
			expectBody:     true,
		},
		{
			name:           "NoSuchKey on GET object",
			method:         http.MethodGet,
			path:           "/some-bucket/missing-key",
			wantStatusCode: http.StatusNotFound,
			wantErrorCode:  "NoSuchKey",
			expectBody:     true,
		},
		{
			name:           "NoSuchKey on HEAD object",
			method:         http.MethodHead,
			path:           "/some-bucket/missing-key",
			wantStatusCode: http.StatusNotFound,
			expectBody:     false,
		},
		{
			name:           "NoSuchKey on DELETE object",
			method:         http.MethodDelete,
			path:           "/some-bucket/missing-key",
			wantStatusCode: http.StatusNotFound,
			wantErrorCode:  "NoSuchKey",
			expectBody:     true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := mustRequest(t, client, tc.method, httpSrv.URL+tc.path, nil)
			defer resp.Body.Close()

			require.Equal(t, tc.wantStatusCode, resp.StatusCode, "status code")
			if !tc.expectBody {
				return
			}
			require.Equal(t, tc.wantErrorCode, decodeS3Error(t, resp.Body), "S3 error code")
		})
	}
}

// TestNotImplementedRoutes exercises a representative set of S3-style
// operations that are stubbed and should return NotImplemented.
func TestNotImplementedRoutes(t *testing.T) {
	t.Parallel()

	_, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{
			name:   "PutBucketTagging",
			method: http.MethodPut,
			path:   "/bucket?tagging",
		},
		{
			name:   "DeleteObjects",
			method: http.MethodPost,
			path:   "/bucket?delete",
		},
		{
			name:   "GetObjectTagging",
			method: http.MethodGet,
			path:   "/bucket/object?tagging",
		},
		{
			name:   "ListMultipartUploads",
			method: http.MethodGet,
			path:   "/bucket?uploads",
		},
		{
			name:   "AbortMultipartUpload",
			method: http.MethodDelete,
			path:   "/bucket/object?uploadId=123",
		},
		{
			name:   "CompleteMultipartUpload",
			method: http.MethodPost,
			path:   "/bucket/object?uploadId=123",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := mustRequest(t, client, tc.method, httpSrv.URL+tc.path, nil)
			defer resp.Body.Close()

			require.Equal(t, http.StatusNotImplemented, resp.StatusCode, "status code")
			require.Equal(t, "NotImplemented", decodeS3Error(t, resp.Body), "S3 error code")
		})
	}
}

func TestUnknownMethods(t *testing.T) {
	t.Parallel()

	_, httpSrv := newTestServer(t)
	client := httpSrv.Client()

	for _, path := range []string{"/some-bucket", "/some-bucket/some-key"} {
		resp := mustRequest(t, client, http.MethodPatch, httpSrv.URL+path, nil)
		resp.Body.Close()
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, "status code for PATCH %s", path)
	}
}

func TestRequireAuthentication(t *testing.T) {
	t.Parallel()

	st, err := store.New(t.TempDir())
	require.NoError(t, err, "store.New error")

	creds := auth.Credentials{AccessKeyID: "admin", SecretAccessKey: "secret"}
	engine := auth.NewCompoundAuthEngine(
		auth.NewAwsHmacAuthEngine(creds),
		auth.NewBasicAuthEngine(creds),
	)

	srv := NewServer(st, "us-east-1")
	httpSrv := httptest.NewServer(srv.Handler(engine))
	t.Cleanup(httpSrv.Close)
	client := httpSrv.Client()

	// Unauthenticated request is denied.
	resp, err := client.Get(httpSrv.URL + "/")
	require.NoError(t, err, "GET / error")
	require.Equal(t, http.StatusForbidden, resp.StatusCode, "unauthenticated status")
	require.Equal(t, "AccessDenied", decodeS3Error(t, resp.Body), "S3 error code")
	resp.Body.Close()

	// Basic auth with the configured credentials succeeds.
	req, err := http.NewRequest(http.MethodGet, httpSrv.URL+"/", nil)
	require.NoError(t, err, "creating authenticated request")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:secret")))

	resp, err = client.Do(req)
	require.NoError(t, err, "authenticated GET / error")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "authenticated status")
}
