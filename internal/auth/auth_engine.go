package auth

import (
	"context"
	"net/http"
)

// User identifies the principal that a request authenticated as.
type User struct {
	AccessKeyID string
}

// Credentials is the single key pair the server accepts. Cellar has no
// user database; every engine validates against one configured pair.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

type AuthEngine interface {

	// AuthenticateRequest inspects the given HTTP request for valid
	// authentication credentials. It returns the authenticated user, or
	// nil if the request carries no credentials this engine accepts. An
	// error is returned only if there was an issue processing the
	// authentication.
	AuthenticateRequest(ctx context.Context, rq *http.Request) (*User, error)
}

// CompoundAuthEngine tries each engine in order and accepts the first
// successful authentication.
type CompoundAuthEngine struct {
	Engines []AuthEngine
}

func NewCompoundAuthEngine(engines ...AuthEngine) *CompoundAuthEngine {
	return &CompoundAuthEngine{Engines: engines}
}

func (e *CompoundAuthEngine) AuthenticateRequest(ctx context.Context, rq *http.Request) (*User, error) {
	for _, engine := range e.Engines {
		user, err := engine.AuthenticateRequest(ctx, rq)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
	}
	return nil, nil
}
