package session

import (
	"context"

	"github.com/pkg/errors"
)

type (
	// Identity is what the bookmark layer sees of a signed-in user. Only
	// ID crosses the boundary into store operations.
	Identity struct {
		ID        string `json:"id"`
		Email     string `json:"email,omitempty"`
		Name      string `json:"name,omitempty"`
		AvatarURL string `json:"avatar_url,omitempty"`
	}

	// Grant is the outcome of a sign-in step. Either RedirectURL is set
	// (the browser must visit the provider before a session exists) or
	// Identity+Credential are set and the caller should start carrying
	// the credential on subsequent requests.
	Grant struct {
		Identity    *Identity
		Credential  string
		RedirectURL string
	}

	// Resolver turns the request-carried credential into an identity.
	// Implemented by RemoteResolver (hosted provider) and LocalResolver
	// (demo mode); picked once at startup.
	Resolver interface {
		// Current resolves the credential to an identity. Absent, invalid
		// or expired credentials return (nil, nil) - not an error.
		Current(ctx context.Context, credential string) (*Identity, error)
		// SignIn starts the sign-in flow. See Grant.
		SignIn(ctx context.Context) (*Grant, error)
		// Exchange trades an authorization code returned by the provider
		// redirect for a session.
		Exchange(ctx context.Context, code string) (*Grant, error)
		// SignOut invalidates the credential. Idempotent; an empty or
		// already-dead credential is a no-op.
		SignOut(ctx context.Context, credential string) error
	}
)

// ErrProviderUnavailable marks transport-level failures talking to the
// hosted identity provider, as opposed to a credential that simply does
// not resolve.
var ErrProviderUnavailable = errors.New("identity provider unavailable")
