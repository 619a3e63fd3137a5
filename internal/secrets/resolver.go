// Package secrets resolves API credentials and bucket-backed runtime
// configuration for the outreach services.
package secrets

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Well-known secret names.
const (
	NameDialerAPIKey = "DIALER_API_KEY"
	NameOpenAIAPIKey = "OPENAI_API_KEY"
	NameGeminiAPIKey = "GEMINI_API_KEY"
)

// Resolver looks up a named secret.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// EnvResolver reads secrets from environment variables.
type EnvResolver struct{}

// Resolve returns the environment value for name.
func (EnvResolver) Resolve(_ context.Context, name string) (string, error) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return "", fmt.Errorf("secret %s is not set", name)
	}
	return value, nil
}

// Memo wraps a Resolver and caches successful lookups for the process
// lifetime. Failed lookups are not cached.
type Memo struct {
	next  Resolver
	cache sync.Map
}

// NewMemo creates a memoizing resolver around next.
func NewMemo(next Resolver) *Memo {
	return &Memo{next: next}
}

// Resolve returns the cached value when present, otherwise defers to the
// wrapped resolver.
func (m *Memo) Resolve(ctx context.Context, name string) (string, error) {
	if cached, ok := m.cache.Load(name); ok {
		return cached.(string), nil
	}
	value, err := m.next.Resolve(ctx, name)
	if err != nil {
		return "", err
	}
	m.cache.Store(name, value)
	return value, nil
}
