package health

import (
	"context"
	"errors"

	"github.com/MatthiasGr/trusted-connector/pkg/policy/store"
)

// ErrNoPolicy is reported by PolicyCheck before the first policy is loaded.
var ErrNoPolicy = errors.New("no policy loaded")

// PolicyVersioner reports the active policy version, or "" when none has
// been loaded.
type PolicyVersioner interface {
	GetPolicyVersion() string
}

// PolicyCheck reports unhealthy until a policy has been installed. Decisions
// made before that point deny every flow.
func PolicyCheck(p PolicyVersioner) CheckFunc {
	return func(ctx context.Context) error {
		if p.GetPolicyVersion() == "" {
			return ErrNoPolicy
		}
		return nil
	}
}

// StoreCheck reports whether the policy version store answers queries. An
// empty store is healthy.
func StoreCheck(s store.Store) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := s.Latest(ctx); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return nil
	}
}
