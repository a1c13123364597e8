// Package access authenticates callers and gates who may reach the model.
// Every check fails closed: an error from a backing store denies access.
package access

import (
	"context"
	"crypto/subtle"
	"errors"
)

// ErrInvalidToken is returned when a bearer token matches no known user.
var ErrInvalidToken = errors.New("invalid token")

// Authenticator resolves a bearer token to a user ID.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// Gate decides whether an authenticated user may reach the model. Both
// checks must pass; the caller treats any error as a denial.
type Gate interface {
	// IsTester reports whether the user belongs to the tester cohort.
	IsTester(ctx context.Context, userID string) (bool, error)

	// FlagEnabled reports whether the named feature flag is on.
	FlagEnabled(ctx context.Context, flag string) (bool, error)
}

// StaticAuthenticator authenticates against a fixed token-to-user map.
// Lookup walks every entry with constant-time comparison so response timing
// does not reveal which tokens exist.
type StaticAuthenticator struct {
	tokens map[string]string
}

// NewStaticAuthenticator builds an authenticator from token -> userID pairs.
func NewStaticAuthenticator(tokens map[string]string) *StaticAuthenticator {
	cp := make(map[string]string, len(tokens))
	for k, v := range tokens {
		cp[k] = v
	}
	return &StaticAuthenticator{tokens: cp}
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	var userID string
	found := false
	for candidate, user := range a.tokens {
		if safeEqual(token, candidate) {
			userID = user
			found = true
		}
	}
	if !found {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// MemoryGate is an in-process Gate for tests and single-node deployments.
type MemoryGate struct {
	testers map[string]bool
	flags   map[string]bool
}

// NewMemoryGate builds a gate from fixed tester and flag sets.
func NewMemoryGate(testers map[string]bool, flags map[string]bool) *MemoryGate {
	return &MemoryGate{testers: testers, flags: flags}
}

func (g *MemoryGate) IsTester(_ context.Context, userID string) (bool, error) {
	return g.testers[userID], nil
}

func (g *MemoryGate) FlagEnabled(_ context.Context, flag string) (bool, error) {
	return g.flags[flag], nil
}

// safeEqual performs a constant-time string comparison to prevent timing attacks.
// It avoids early-return on length mismatch to prevent leaking secret length via timing.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}
