package storefakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-admin-console/session"
	"github.com/jrsteele09/go-admin-console/tenants"
)

var _ session.Store = (*FakeStore)(nil)

// FakeStore is an in-memory session store for tests. The error fields inject
// failures into individual operations.
type FakeStore struct {
	lock sync.Mutex

	tenant     *tenants.Tenant
	credential string

	SaveErr           error
	LoadErr           error
	SaveCredentialErr error
	ClearErr          error

	SaveCalls  int
	ClearCalls int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

func (s *FakeStore) Save(_ context.Context, tenant *tenants.Tenant) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.SaveCalls++
	if s.SaveErr != nil {
		return s.SaveErr
	}
	saved := *tenant
	s.tenant = &saved
	return nil
}

func (s *FakeStore) Load(_ context.Context) (*tenants.Tenant, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	if s.tenant == nil {
		return nil, nil
	}
	loaded := *s.tenant
	return &loaded, nil
}

func (s *FakeStore) SaveCredential(_ context.Context, token string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.SaveCredentialErr != nil {
		return s.SaveCredentialErr
	}
	s.credential = token
	return nil
}

func (s *FakeStore) LoadCredential(_ context.Context) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.credential, nil
}

func (s *FakeStore) Clear(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.ClearCalls++
	if s.ClearErr != nil {
		return s.ClearErr
	}
	s.tenant = nil
	s.credential = ""
	return nil
}

// PersistedTenant returns the currently persisted tenant, nil when none.
func (s *FakeStore) PersistedTenant() *tenants.Tenant {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.tenant == nil {
		return nil
	}
	loaded := *s.tenant
	return &loaded
}

// PersistedCredential returns the currently persisted credential.
func (s *FakeStore) PersistedCredential() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.credential
}

// SeedTenant pre-populates the store as if a previous run had persisted t.
func (s *FakeStore) SeedTenant(t tenants.Tenant) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tenant = &t
}
