package flows

import "context"

// Cache is the subset of the token cache the flows need.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Take(ctx context.Context, key string) (string, bool, error)
	Evict(ctx context.Context, key string) error
}

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Refresh RefreshDeps
	Resolve ResolveDeps
	Logout  LogoutDeps
	Consume ConsumeDeps
}
