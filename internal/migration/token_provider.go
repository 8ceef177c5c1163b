package migration

import (
	"context"
	"sync"
)

// Authenticator obtains session tokens from the target system.
type Authenticator interface {
	Authenticate(requestContext context.Context) (string, error)
}

// TokenProvider supplies the session token used for one submission.
type TokenProvider interface {
	Token(requestContext context.Context) (string, error)
	// Invalidate discards any reused token and reports whether one was held.
	Invalidate() bool
}

type perRequestTokenProvider struct {
	authenticator Authenticator
}

// NewPerRequestTokenProvider authenticates on every Token call.
func NewPerRequestTokenProvider(authenticator Authenticator) TokenProvider {
	return &perRequestTokenProvider{authenticator: authenticator}
}

func (provider *perRequestTokenProvider) Token(requestContext context.Context) (string, error) {
	return provider.authenticator.Authenticate(requestContext)
}

func (provider *perRequestTokenProvider) Invalidate() bool {
	return false
}

type cachedTokenProvider struct {
	authenticator Authenticator
	mutex         sync.Mutex
	token         string
}

// NewCachedTokenProvider reuses one token until Invalidate is called.
func NewCachedTokenProvider(authenticator Authenticator) TokenProvider {
	return &cachedTokenProvider{authenticator: authenticator}
}

func (provider *cachedTokenProvider) Token(requestContext context.Context) (string, error) {
	provider.mutex.Lock()
	defer provider.mutex.Unlock()

	if len(provider.token) > 0 {
		return provider.token, nil
	}

	token, authenticationError := provider.authenticator.Authenticate(requestContext)
	if authenticationError != nil {
		return "", authenticationError
	}
	provider.token = token
	return token, nil
}

func (provider *cachedTokenProvider) Invalidate() bool {
	provider.mutex.Lock()
	defer provider.mutex.Unlock()
	held := len(provider.token) > 0
	provider.token = ""
	return held
}
