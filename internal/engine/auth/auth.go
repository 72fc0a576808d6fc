package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"effortline/internal/domain"
	"effortline/internal/repo"
)

// ForbiddenError indicates the caller lacks the admin capability. The message
// is uniform so it leaks nothing about the protected resource.
type ForbiddenError struct {
	Identity string
}

func (e ForbiddenError) Error() string {
	return "access denied"
}

// ErrInvalidCredentials is returned for an unknown identity or a wrong secret.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Policy decides whether an identity holds the admin capability.
type Policy interface {
	IsAuthorized(ctx context.Context, identity string) bool
}

// AllowList is a Policy backed by a fixed set of identities. Matching is
// case-insensitive.
type AllowList map[string]struct{}

func NewAllowList(identities []string) AllowList {
	al := AllowList{}
	for _, id := range identities {
		id = normalize(id)
		if id != "" {
			al[id] = struct{}{}
		}
	}
	return al
}

func (a AllowList) IsAuthorized(_ context.Context, identity string) bool {
	_, ok := a[normalize(identity)]
	return ok
}

// Require returns ForbiddenError unless p authorizes identity.
func Require(ctx context.Context, p Policy, identity string) error {
	if p == nil || identity == "" || !p.IsAuthorized(ctx, identity) {
		return ForbiddenError{Identity: identity}
	}
	return nil
}

// Authenticator accepts credentials and returns the identity they prove.
type Authenticator interface {
	SignIn(ctx context.Context, identity, secret string) (string, error)
}

// Directory authenticates against the users table. Secrets are stored as
// bcrypt hashes; Cost defaults to bcrypt.DefaultCost.
type Directory struct {
	Repo repo.Repo
	Now  func() time.Time
	Cost int
}

// maxSecretLen is the longest secret bcrypt accepts.
const maxSecretLen = 72

func (d Directory) SignIn(ctx context.Context, identity, secret string) (string, error) {
	identity = normalize(identity)
	if identity == "" || secret == "" {
		return "", ErrInvalidCredentials
	}
	u, err := d.Repo.GetUser(ctx, identity)
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.SecretHash), []byte(secret)); err != nil {
		return "", ErrInvalidCredentials
	}
	return u.ID, nil
}

// Register creates the user or resets its secret.
func (d Directory) Register(ctx context.Context, identity, secret string) (domain.User, error) {
	identity = normalize(identity)
	if identity == "" {
		return domain.User{}, errors.New("identity required")
	}
	if len(secret) < 8 {
		return domain.User{}, errors.New("secret must be at least 8 characters")
	}
	if len(secret) > maxSecretLen {
		return domain.User{}, fmt.Errorf("secret must be at most %d bytes", maxSecretLen)
	}
	cost := d.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash secret: %w", err)
	}
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	u := domain.User{
		ID:         identity,
		SecretHash: string(hash),
		CreatedAt:  now().UTC().Format(time.RFC3339),
	}
	if err := d.Repo.UpsertUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func normalize(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
