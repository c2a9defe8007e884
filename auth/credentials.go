// Package auth is the boundary with the authentication subsystem. The session
// core calls exactly one operation on it, updating the active access
// credential after a tenant switch, and reads one signal from it, whether
// authentication has finished its own startup.
package auth

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
)

// Readiness reports whether the authentication subsystem has finished its own
// initialization. Tenant session initialization is ordered strictly after it.
type Readiness interface {
	Ready() bool
}

// Updater receives the tenant-scoped access credential minted by a tenant
// selection.
type Updater interface {
	UpdateAccessToken(ctx context.Context, token string) error
}

// Provider exposes the currently held access credential. An Updater that also
// implements it lets callers capture the live token before replacing it, so a
// failed replacement can be undone exactly.
type Provider interface {
	AccessToken() string
}

// Credentials holds the active access credential in memory. It implements
// Readiness and Updater for the session manager and oauth2.TokenSource for
// the directory client's transport, so a propagated credential is used by
// the very next outbound request.
type Credentials struct {
	lock  sync.RWMutex
	token string
	ready bool
}

// NewCredentials creates a credential holder seeded with an initial token,
// typically the one recovered from persisted storage. The holder starts
// not-ready; call FinishStartup once authentication has settled.
func NewCredentials(initialToken string) *Credentials {
	return &Credentials{token: initialToken}
}

// FinishStartup marks the authentication subsystem as done initializing.
func (c *Credentials) FinishStartup() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.ready = true
}

// Ready implements Readiness.
func (c *Credentials) Ready() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.ready
}

// UpdateAccessToken implements Updater.
func (c *Credentials) UpdateAccessToken(_ context.Context, token string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.token = token
	return nil
}

// AccessToken returns the current credential, empty when none is held.
func (c *Credentials) AccessToken() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.token
}

// Token implements oauth2.TokenSource.
func (c *Credentials) Token() (*oauth2.Token, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return &oauth2.Token{AccessToken: c.token}, nil
}

var (
	_ Readiness          = (*Credentials)(nil)
	_ Updater            = (*Credentials)(nil)
	_ Provider           = (*Credentials)(nil)
	_ oauth2.TokenSource = (*Credentials)(nil)
)
