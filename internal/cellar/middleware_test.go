package cellar

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollapseSlashes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "no change", path: "/bucket/key", want: "/bucket/key"},
		{name: "double slash", path: "/bucket//key", want: "/bucket/key"},
		{name: "many slashes", path: "/bucket////a///b", want: "/bucket/a/b"},
		{name: "trailing slash survives", path: "/bucket/dir/", want: "/bucket/dir/"},
		{name: "collapsed trailing slash survives", path: "/bucket//dir//", want: "/bucket/dir/"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			handler := CollapseSlashes(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.URL.Path
			}))

			r := httptest.NewRequest(http.MethodGet, tc.path, nil)
			handler.ServeHTTP(httptest.NewRecorder(), r)

			require.Equal(t, tc.want, got, "rewritten path")
		})
	}
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// A fresh ID is assigned when the client sends none.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"), "generated request ID")

	// A client-supplied ID is echoed back.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", "client-chosen-id")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	require.Equal(t, "client-chosen-id", rec.Header().Get("X-Request-Id"), "echoed request ID")
}

// Not parallel: swaps the default slog handler.
func TestLogRequestIncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	// RequestID must wrap LogRequest so the log entry sees the ID.
	handler := RequestID(LogRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	r := httptest.NewRequest(http.MethodGet, "/some-bucket", nil)
	r.Header.Set("X-Request-Id", "log-test-id")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	require.Contains(t, buf.String(), `"id":"log-test-id"`, "logged request ID")
}
