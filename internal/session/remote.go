package session

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/linkvault-app/linkvault-back/internal/config"
)

type (
	providerUser struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		UserMetadata struct {
			Name      string `json:"name"`
			Picture   string `json:"picture"`
			AvatarURL string `json:"avatar_url"`
		} `json:"user_metadata"`
	}

	providerGrant struct {
		AccessToken string       `json:"access_token"`
		ExpiresIn   int64        `json:"expires_in"`
		User        providerUser `json:"user"`
	}

	// RemoteResolver resolves sessions against the hosted identity
	// provider's REST surface. The provider owns the credential format;
	// this side only forwards the opaque token and reads back identities.
	// An optional IdentityCache short-circuits repeated lookups for the
	// same credential.
	RemoteResolver struct {
		client *resty.Client
		appURL string
		cache  IdentityCache
	}
)

func NewRemoteResolver(cfg *config.Config, cache IdentityCache) *RemoteResolver {
	client := resty.New().
		SetBaseURL(cfg.ProviderURL).
		SetHeader("apikey", cfg.ProviderKey).
		SetTimeout(10 * time.Second)

	return &RemoteResolver{
		client: client,
		appURL: cfg.AppURL,
		cache:  cache,
	}
}

func (r *RemoteResolver) Current(ctx context.Context, credential string) (*Identity, error) {
	if credential == "" {
		return nil, nil
	}

	if r.cache != nil {
		if identity, ok := r.cache.Get(ctx, credential); ok {
			return identity, nil
		}
	}

	user := providerUser{}
	resp, err := r.client.R().
		SetContext(ctx).
		SetAuthToken(credential).
		SetResult(&user).
		Get("/auth/v1/user")
	if err != nil {
		return nil, errors.Wrap(ErrProviderUnavailable, err.Error())
	}

	switch {
	case resp.StatusCode() == http.StatusOK:
	case resp.StatusCode() == http.StatusUnauthorized,
		resp.StatusCode() == http.StatusForbidden,
		resp.StatusCode() == http.StatusNotFound:
		// Dead or bogus credential; a normal outcome, not an error.
		return nil, nil
	default:
		return nil, errors.Wrapf(ErrProviderUnavailable, "user lookup returned %d", resp.StatusCode())
	}

	identity := identityFromProvider(&user)
	if identity == nil {
		return nil, nil
	}

	if r.cache != nil {
		r.cache.Set(ctx, credential, identity)
	}
	return identity, nil
}

// SignIn returns the provider authorize URL the browser must visit; the
// provider redirects back to /auth/callback with an authorization code.
func (r *RemoteResolver) SignIn(_ context.Context) (*Grant, error) {
	q := url.Values{}
	q.Set("provider", "google")
	q.Set("redirect_to", r.appURL+"/auth/callback")

	return &Grant{
		RedirectURL: r.client.BaseURL + "/auth/v1/authorize?" + q.Encode(),
	}, nil
}

func (r *RemoteResolver) Exchange(ctx context.Context, code string) (*Grant, error) {
	if code == "" {
		return nil, errors.New("missing authorization code")
	}

	grant := providerGrant{}
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "authorization_code").
		SetBody(map[string]string{"auth_code": code}).
		SetResult(&grant).
		Post("/auth/v1/token")
	if err != nil {
		return nil, errors.Wrap(ErrProviderUnavailable, err.Error())
	}
	if resp.StatusCode() != http.StatusOK || grant.AccessToken == "" {
		return nil, errors.Errorf("code exchange rejected with status %d", resp.StatusCode())
	}

	return &Grant{
		Identity:   identityFromProvider(&grant.User),
		Credential: grant.AccessToken,
	}, nil
}

func (r *RemoteResolver) SignOut(ctx context.Context, credential string) error {
	if credential == "" {
		return nil
	}

	if r.cache != nil {
		r.cache.Invalidate(ctx, credential)
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetAuthToken(credential).
		Post("/auth/v1/logout")
	if err != nil {
		return errors.Wrap(ErrProviderUnavailable, err.Error())
	}
	// An already-revoked or expired credential still counts as signed out.
	switch resp.StatusCode() {
	case http.StatusOK, http.StatusNoContent, http.StatusUnauthorized, http.StatusNotFound:
		return nil
	}
	return errors.Errorf("logout rejected with status %d", resp.StatusCode())
}

func identityFromProvider(user *providerUser) *Identity {
	if user.ID == "" {
		return nil
	}
	avatar := user.UserMetadata.AvatarURL
	if avatar == "" {
		avatar = user.UserMetadata.Picture
	}
	return &Identity{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.UserMetadata.Name,
		AvatarURL: avatar,
	}
}
