package directoryfakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-admin-console/directory"
	apperrors "github.com/jrsteele09/go-admin-console/internal/errors"
	"github.com/jrsteele09/go-admin-console/tenants"
)

var _ directory.Client = (*FakeDirectory)(nil)

// FakeDirectory is an in-memory directory client for tests. Error fields and
// the SelectFn hook inject failures and custom selection payloads.
type FakeDirectory struct {
	lock sync.Mutex

	Tenants    []tenants.Tenant
	Current    *tenants.Tenant
	ListErr    error
	CurrentErr error
	SelectErr  error

	// SelectFn overrides the default selection behavior when set.
	SelectFn func(tenantID string) (*directory.Selection, error)

	listCalls   int
	selectCalls []string
}

func NewFakeDirectory(available ...tenants.Tenant) *FakeDirectory {
	return &FakeDirectory{Tenants: available}
}

func (d *FakeDirectory) ListTenants(_ context.Context) ([]tenants.Tenant, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.listCalls++
	if d.ListErr != nil {
		return nil, d.ListErr
	}
	listed := make([]tenants.Tenant, len(d.Tenants))
	copy(listed, d.Tenants)
	return listed, nil
}

func (d *FakeDirectory) CurrentTenant(_ context.Context) (*tenants.Tenant, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.CurrentErr != nil {
		return nil, d.CurrentErr
	}
	if d.Current == nil {
		return nil, nil
	}
	current := *d.Current
	return &current, nil
}

func (d *FakeDirectory) SelectTenant(_ context.Context, tenantID string) (*directory.Selection, error) {
	d.lock.Lock()
	selectFn := d.SelectFn
	selectErr := d.SelectErr
	d.selectCalls = append(d.selectCalls, tenantID)
	available := make([]tenants.Tenant, len(d.Tenants))
	copy(available, d.Tenants)
	d.lock.Unlock()

	if selectErr != nil {
		return nil, selectErr
	}
	if selectFn != nil {
		return selectFn(tenantID)
	}
	for _, t := range available {
		if t.ID == tenantID {
			selected := t
			return &directory.Selection{Tenant: &selected}, nil
		}
	}
	return nil, apperrors.Wrapf(apperrors.ErrDirectoryUnavailable, "unknown tenant %q", tenantID)
}

// ListCallCount reports how many times ListTenants has been called.
func (d *FakeDirectory) ListCallCount() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.listCalls
}

// SelectedIDs reports the tenant IDs passed to SelectTenant, in call order.
func (d *FakeDirectory) SelectedIDs() []string {
	d.lock.Lock()
	defer d.lock.Unlock()
	ids := make([]string, len(d.selectCalls))
	copy(ids, d.selectCalls)
	return ids
}
