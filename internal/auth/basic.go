package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
)

const (
	BasicAuthPrefix = "Basic "
)

type BasicAuthEngine struct {
	Credentials Credentials
}

// NewBasicAuthEngine creates a new BasicAuthEngine that accepts the given
// access key ID and secret access key.
func NewBasicAuthEngine(creds Credentials) *BasicAuthEngine {
	return &BasicAuthEngine{Credentials: creds}
}

// AuthenticateRequest checks the Authorization header for valid Basic Auth
// credentials. It returns the authenticated user if the credentials match,
// nil otherwise.
func (e *BasicAuthEngine) AuthenticateRequest(ctx context.Context, r *http.Request) (*User, error) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, BasicAuthPrefix) {
		return nil, nil
	}

	payload, err := base64.StdEncoding.DecodeString(strings.TrimSpace(auth[len(BasicAuthPrefix):]))
	if err != nil {
		return nil, nil
	}

	creds := strings.SplitN(string(payload), ":", 2)
	if len(creds) != 2 {
		return nil, nil
	}

	keyOK := subtle.ConstantTimeCompare([]byte(creds[0]), []byte(e.Credentials.AccessKeyID))
	secretOK := subtle.ConstantTimeCompare([]byte(creds[1]), []byte(e.Credentials.SecretAccessKey))
	if keyOK&secretOK != 1 {
		return nil, nil
	}

	return &User{AccessKeyID: creds[0]}, nil
}
