package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/linkvault-app/linkvault-back/internal/config"
)

const localIssuer = "linkvault"

type (
	localClaims struct {
		Email     string `json:"email,omitempty"`
		Name      string `json:"name,omitempty"`
		AvatarURL string `json:"avatar_url,omitempty"`
		jwt.RegisteredClaims
	}

	// LocalResolver is the demo-mode Resolver. SignIn synthesizes a fixed
	// -shape identity on the spot and hands back a signed JWT as the
	// credential; no external round-trip ever happens. The server keeps
	// no session state, so sign-out is purely the client dropping the
	// credential.
	LocalResolver struct {
		secret []byte
		ttl    time.Duration
	}
)

func NewLocalResolver(cfg *config.Config) *LocalResolver {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &LocalResolver{
		secret: []byte(cfg.SessionSecret),
		ttl:    ttl,
	}
}

func (r *LocalResolver) Current(_ context.Context, credential string) (*Identity, error) {
	if credential == "" {
		return nil, nil
	}

	claims := localClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(credential, &claims, func(_ *jwt.Token) (interface{}, error) {
		return r.secret, nil
	})
	// Malformed, tampered or expired tokens are all just "no session".
	if err != nil {
		return nil, nil
	}
	if claims.Issuer != localIssuer || claims.Subject == "" {
		return nil, nil
	}

	return &Identity{
		ID:        claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.AvatarURL,
	}, nil
}

func (r *LocalResolver) SignIn(_ context.Context) (*Grant, error) {
	identity := &Identity{
		ID:        "demo_user_" + uuid.NewString(),
		Email:     "demo@example.com",
		Name:      "Demo User",
		AvatarURL: "https://ui-avatars.com/api/?name=Demo+User&background=random",
	}

	now := time.Now().UTC()
	claims := localClaims{
		Email:     identity.Email,
		Name:      identity.Name,
		AvatarURL: identity.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    localIssuer,
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return nil, errors.Wrap(err, "sign demo credential")
	}

	return &Grant{
		Identity:   identity,
		Credential: signed,
	}, nil
}

func (r *LocalResolver) Exchange(_ context.Context, _ string) (*Grant, error) {
	return nil, errors.New("authorization code exchange is not part of the demo flow")
}

func (r *LocalResolver) SignOut(_ context.Context, _ string) error {
	return nil
}
