package cellar

import (
	"net/http"

	"cellar/internal/auth"
)

// Handler returns an http.Handler implementing the S3-compatible API,
// guarded by the given authentication engine. A nil engine serves
// unauthenticated.
func (s *Server) Handler(engine auth.AuthEngine) http.Handler {
	mux := http.NewServeMux()

	// List all buckets
	mux.HandleFunc("GET /{$}", s.handleListBuckets)

	// Bucket-level operations. Path-style clients address buckets with a
	// trailing slash ("PUT /bucket/"), so each handler is registered for
	// both forms; "/{bucket}/{$}" outranks the object-level wildcard and
	// leaves real trailing-slash keys like "/bucket/dir/" untouched.
	for method, handle := range map[string]func(http.ResponseWriter, *http.Request, string){
		http.MethodPut:    s.handleBucketPut,
		http.MethodGet:    s.handleBucketGet,
		http.MethodHead:   s.handleBucketHead,
		http.MethodDelete: s.handleBucketDelete,
		http.MethodPost:   s.handleBucketPost,
	} {
		h := func(w http.ResponseWriter, r *http.Request) {
			handle(w, r, r.PathValue("bucket"))
		}
		mux.HandleFunc(method+" /{bucket}", h)
		mux.HandleFunc(method+" /{bucket}/{$}", h)
	}

	// Object-level operations
	mux.HandleFunc("PUT /{bucket}/{key...}", func(w http.ResponseWriter, r *http.Request) {
		s.handleObjectPut(w, r, r.PathValue("bucket"), r.PathValue("key"))
	})
	mux.HandleFunc("GET /{bucket}/{key...}", func(w http.ResponseWriter, r *http.Request) {
		s.handleObjectGet(w, r, r.PathValue("bucket"), r.PathValue("key"))
	})
	mux.HandleFunc("HEAD /{bucket}/{key...}", func(w http.ResponseWriter, r *http.Request) {
		s.handleObjectHead(w, r, r.PathValue("bucket"), r.PathValue("key"))
	})
	mux.HandleFunc("DELETE /{bucket}/{key...}", func(w http.ResponseWriter, r *http.Request) {
		s.handleObjectDelete(w, r, r.PathValue("bucket"), r.PathValue("key"))
	})
	mux.HandleFunc("POST /{bucket}/{key...}", func(w http.ResponseWriter, r *http.Request) {
		s.handleObjectPost(w, r, r.PathValue("bucket"), r.PathValue("key"))
	})

	// RequestID wraps LogRequest so the log entries see the enriched context.
	return RequestID(LogRequest(Recoverer(RequireAuthentication(engine, CollapseSlashes(mux)))))
}
