package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-admin-console/auth"
	"github.com/jrsteele09/go-admin-console/directory"
	"github.com/jrsteele09/go-admin-console/directory/directoryfakes"
	apperrors "github.com/jrsteele09/go-admin-console/internal/errors"
	"github.com/jrsteele09/go-admin-console/session"
	"github.com/jrsteele09/go-admin-console/session/storefakes"
	"github.com/jrsteele09/go-admin-console/tenants"
	"github.com/stretchr/testify/require"
)

const (
	testTenantOne = "t1"
	testTenantTwo = "t2"
)

// testFixture holds all test dependencies
type testFixture struct {
	directory *directoryfakes.FakeDirectory
	store     *storefakes.FakeStore
	creds     *auth.Credentials
	manager   *session.Manager
}

// setupTestFixture creates a manager wired to fakes, with authentication
// already settled.
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	dir := directoryfakes.NewFakeDirectory(
		tenants.Tenant{ID: testTenantOne, Slug: "acme"},
		tenants.Tenant{ID: testTenantTwo, Slug: "beta"},
	)
	store := storefakes.NewFakeStore()
	creds := auth.NewCredentials("")
	creds.FinishStartup()

	manager, err := session.NewManager(dir, store, creds, creds)
	require.NoError(t, err)

	return &testFixture{
		directory: dir,
		store:     store,
		creds:     creds,
		manager:   manager,
	}
}

func (f *testFixture) initialize(t *testing.T) {
	t.Helper()
	require.NoError(t, f.manager.Initialize(context.Background()))
}

func TestInitializeRefusesToRunBeforeAuthSettles(t *testing.T) {
	dir := directoryfakes.NewFakeDirectory()
	creds := auth.NewCredentials("")

	manager, err := session.NewManager(dir, storefakes.NewFakeStore(), creds, creds)
	require.NoError(t, err)

	require.ErrorIs(t, manager.Initialize(context.Background()), apperrors.ErrAuthNotReady)
}

func TestInitializeRunsOncePerApplicationRun(t *testing.T) {
	f := setupTestFixture(t)
	f.initialize(t)

	require.ErrorIs(t, f.manager.Initialize(context.Background()), apperrors.ErrAlreadyInitialized)
}

func TestInitializePopulatesAvailableTenants(t *testing.T) {
	f := setupTestFixture(t)
	f.initialize(t)

	s := f.manager.Snapshot()
	require.Nil(t, s.CurrentTenant)
	require.Len(t, s.AvailableTenants, 2)
	require.Equal(t, testTenantOne, s.AvailableTenants[0].ID)
	require.False(t, s.Loading)
	require.Empty(t, s.Err)
}

func TestInitializeKeepsPersistedTenantWhenDirectoryIsDown(t *testing.T) {
	f := setupTestFixture(t)
	f.store.SeedTenant(tenants.Tenant{ID: testTenantOne, Slug: "acme"})
	f.directory.ListErr = apperrors.ErrDirectoryUnavailable

	// The directory failure is reported via state, not returned: the
	// persisted session stays usable.
	require.NoError(t, f.manager.Initialize(context.Background()))

	s := f.manager.Snapshot()
	require.NotNil(t, s.CurrentTenant)
	require.Equal(t, testTenantOne, s.CurrentTenant.ID)
	require.Empty(t, s.AvailableTenants)
	require.False(t, s.Loading)
	require.NotEmpty(t, s.Err)
}

func TestInitializeAdoptsDirectoryCurrentTenantWhenNothingPersisted(t *testing.T) {
	f := setupTestFixture(t)
	f.directory.Current = &tenants.Tenant{ID: testTenantTwo, Slug: "beta"}
	f.initialize(t)

	s := f.manager.Snapshot()
	require.NotNil(t, s.CurrentTenant)
	require.Equal(t, testTenantTwo, s.CurrentTenant.ID)
}

func TestInitializePrefersPersistedTenantOverDirectoryCurrent(t *testing.T) {
	f := setupTestFixture(t)
	f.store.SeedTenant(tenants.Tenant{ID: testTenantOne, Slug: "acme"})
	f.directory.Current = &tenants.Tenant{ID: testTenantTwo, Slug: "beta"}
	f.initialize(t)

	require.Equal(t, testTenantOne, f.manager.Snapshot().CurrentTenant.ID)
}

func TestInitializeTreatsUnreadablePersistedTenantAsNone(t *testing.T) {
	f := setupTestFixture(t)
	f.store.LoadErr = errors.New("record unreadable")

	// A corrupt or unreadable persisted record means "no tenant persisted",
	// never a failed initialization.
	f.initialize(t)

	s := f.manager.Snapshot()
	require.Nil(t, s.CurrentTenant)
	require.Len(t, s.AvailableTenants, 2)
	require.Empty(t, s.Err)
}

func TestInitializeIgnoresCurrentTenantLookupFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.directory.CurrentErr = apperrors.ErrDirectoryUnavailable
	f.initialize(t)

	s := f.manager.Snapshot()
	require.Nil(t, s.CurrentTenant)
	require.Len(t, s.AvailableTenants, 2)
}

func TestSwitchTenantBeforeInitialize(t *testing.T) {
	f := setupTestFixture(t)

	err := f.manager.SwitchTenant(context.Background(), testTenantOne)
	require.ErrorIs(t, err, apperrors.ErrNotInitialized)
}

func TestSwitchTenantActivatesMostRecentSelection(t *testing.T) {
	f := setupTestFixture(t)
	f.initialize(t)

	require.NoError(t, f.manager.SwitchTenant(context.Background(), testTenantOne))
	require.NoError(t, f.manager.SwitchTenant(context.Background(), testTenantTwo))
	require.NoError(t, f.manager.SwitchTenant(context.Background(), testTenantOne))

	s := f.manager.Snapshot()
	require.NotNil(t, s.CurrentTenant)
	require.Equal(t, testTenantOne, s.CurrentTenant.ID)
	require.False(t, s.Loading)
	require.Empty(t, s.Err)
}

func TestSwitchTenantPropagatesCredentialAndPersists(t *testing.T) {
	f := setupTestFixture(t)
	f.directory.SelectFn = func(tenantID string) (*directory.Selection, error) {
		selected := tenants.Tenant{ID: tenantID, Slug: "acme"}
		return &directory.Selection{Tenant: &selected, AccessToken: "abc"}, nil
	}
	f.initialize(t)

	events, cancel := f.manager.Subscribe()
	defer cancel()

	require.NoError(t, f.manager.SwitchTenant(context.Background(), testTenantOne))

	// Credential and tenant must point at the same tenant at the moment the
	// switch reports success, in memory and in storage.
	require.Equal(t, "abc", f.creds.AccessToken())
	require.Equal(t, "abc", f.store.PersistedCredential())
	persisted := f.store.PersistedTenant()
	require.NotNil(t, persisted)
	require.Equal(t, testTenantOne, persisted.ID)

	select {
	case change := <-events:
		require.Equal(t, testTenantOne, change.Tenant.ID)
		require.Nil(t, change.Previous)
	case <-time.After(time.Second):
		t.Fatal("expected a tenant change event")
	}
}

func TestSwitchTenantUnknownIDLeavesEverythingUntouched(t *testing.T) {
	f := setupTestFixture(t)
	f.initialize(t)
	require.NoError(t, f.manager.SwitchTenant(context.Background(), testTenantOne))
	before := f.manager.Snapshot()
	savesBefore := f.store.SaveCalls

	err := f.manager.SwitchTenant(context.Background(), "missing-id")
	require.ErrorIs(t, err, apperrors.ErrTenantNotFound)

	after := f.manager.Snapshot()
	require.Equal(t, before, after)
	require.Equal(t, savesBefore, f.store.SaveCalls)
	// Only the first, successful switch ever hit the directory.
	require.Equal(t, []string{testTenantOne}, f.directory.SelectedIDs())
}

func TestSwitchTenantDirectoryFailureLeavesPreviousTenantActive(t *testing.T) {
	f := setupTestFixture(t)
	f.initialize(t)
	require.NoError(t, f.manager.SwitchTenant(context.Background(), testTenantOne))

	f.directory.SelectErr = apperrors.ErrDirectoryUnavailable
	err := f.manager.SwitchTenant(context.Background(), testTenantTwo)
	require.ErrorIs(t, err, apperrors.ErrDirectoryUnavailable)

	s := f.manager.Snapshot()
	require.NotNil(t, s.CurrentTenant)
	require.Equal(t, testTenantOne, s.CurrentTenant.ID)
	require.False(t, s.Loading)
	require.NotEmpty(t, s.Err)

	// The failed switch is idempotently retryable once the directory is back.
	f.directory.SelectErr = nil
	require.NoError(t, f.manager.SwitchTenant(context.Background(), testTenantTwo))
	require.Equal(t, testTenantTwo, f.manager.Snapshot().CurrentTenant.ID)
}

func TestSwitchTenantCredentialPropagationFailureRollsBack(t *testing.T) {
	f := setupTestFixture(t)
	f.directory.SelectFn = func(tenantID string) (*directory.Selection, error) {
		selected := tenants.Tenant{ID: tenantID}
		return &directory.Selection{Tenant: &selected, AccessToken: "tok-" + tenantID}, nil
	}
	f.initialize(t)
	require.NoError(t, f.manager.SwitchTenant(context.Background(), testTenantOne))

	f.store.SaveCredentialErr = context.DeadlineExceeded
	err := f.manager.SwitchTenant(context.Background(), testTenantTwo)
	require.ErrorIs(t, err, apperrors.ErrCredentialPropagation)

	// Tenant pointer rolled back, in memory and in storage, and the auth
	// subsystem holds the pre-switch credential again.
	s := f.manager.Snapshot()
	require.Equal(t, testTenantOne, s.CurrentTenant.ID)
	persisted := f.store.PersistedTenant()
	require.NotNil(t, persisted)
	require.Equal(t, testTenantOne, persisted.ID)
	require.Equal(t, "tok-"+testTenantOne, f.creds.AccessToken())
	require.Equal(t, "tok-"+testTenantOne, f.store.PersistedCredential())
}

func TestSwitchTenantPersistenceFailureLeavesPreviousTenantActive(t *testing.T) {
	f := setupTestFixture(t)
	f.initialize(t)
	require.NoError(t, f.manager.SwitchTenant(context.Background(), testTenantOne))

	f.store.SaveErr = errors.New("disk full")
	err := f.manager.SwitchTenant(context.Background(), testTenantTwo)
	require.Error(t, err)

	s := f.manager.Snapshot()
	require.Equal(t, testTenantOne, s.CurrentTenant.ID)
	require.False(t, s.Loading)
	require.NotEmpty(t, s.Err)
	require.Equal(t, testTenantOne, f.store.PersistedTenant().ID)
}

func TestSwitchTenantPropagationFailureRestoresLiveCredential(t *testing.T) {
	dir := directoryfakes.NewFakeDirectory(tenants.Tenant{ID: testTenantOne, Slug: "acme"})
	dir.SelectFn = func(tenantID string) (*directory.Selection, error) {
		selected := tenants.Tenant{ID: tenantID}
		return &directory.Selection{Tenant: &selected, AccessToken: "minted"}, nil
	}
	store := storefakes.NewFakeStore()

	// The bootstrap-seeded credential lives only in memory; storage has
	// never seen it.
	creds := auth.NewCredentials("seed-live")
	creds.FinishStartup()

	manager, err := session.NewManager(dir, store, creds, creds)
	require.NoError(t, err)
	require.NoError(t, manager.Initialize(context.Background()))

	store.SaveCredentialErr = errors.New("write refused")
	err = manager.SwitchTenant(context.Background(), testTenantOne)
	require.ErrorIs(t, err, apperrors.ErrCredentialPropagation)

	// The live credential comes back, not the (empty) persisted one.
	require.Equal(t, "seed-live", creds.AccessToken())
	require.Empty(t, store.PersistedCredential())
}

func TestRefreshTenantsFailureNotifiesStateListeners(t *testing.T) {
	f := setupTestFixture(t)
	f.initialize(t)

	var lock sync.Mutex
	var sawError bool
	f.manager.OnStateChange(func(s session.State) {
		lock.Lock()
		defer lock.Unlock()
		if s.Err != "" {
			sawError = true
		}
	})

	f.directory.ListErr = apperrors.ErrDirectoryUnavailable
	require.Error(t, f.manager.RefreshTenants(context.Background()))

	lock.Lock()
	defer lock.Unlock()
	require.True(t, sawError)
}

func TestLogoutSurfacesClearFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.initialize(t)
	require.NoError(t, f.manager.SwitchTenant(context.Background(), testTenantOne))

	f.store.ClearErr = errors.New("clear refused")
	require.Error(t, f.manager.Logout(context.Background()))

	// The session is untouched when storage refuses to clear.
	require.Equal(t, testTenantOne, f.manager.Snapshot().CurrentTenant.ID)
}

func TestRefreshTenantsIsIdempotent(t *testing.T) {
	f := setupTestFixture(t)
	f.initialize(t)
	require.NoError(t, f.manager.SwitchTenant(context.Background(), testTenantOne))

	first := f.manager.Snapshot()
	require.NoError(t, f.manager.RefreshTenants(context.Background()))
	second := f.manager.Snapshot()
	require.NoError(t, f.manager.RefreshTenants(context.Background()))
	third := f.manager.Snapshot()

	require.Equal(t, first.AvailableTenants, second.AvailableTenants)
	require.Equal(t, second.AvailableTenants, third.AvailableTenants)
	require.Equal(t, testTenantOne, third.CurrentTenant.ID)
	// Sequential refreshes each hit the directory; only concurrent ones share
	// a call.
	require.Equal(t, 3, f.directory.ListCallCount())
}

func TestRefreshTenantsFailureIsReturnedAndRecorded(t *testing.T) {
	f := setupTestFixture(t)
	f.initialize(t)

	f.directory.ListErr = apperrors.ErrDirectoryUnavailable
	err := f.manager.RefreshTenants(context.Background())
	require.ErrorIs(t, err, apperrors.ErrDirectoryUnavailable)
	require.NotEmpty(t, f.manager.Snapshot().Err)
}

func TestConcurrentSwitchesSerializeWithoutMismatch(t *testing.T) {
	f := setupTestFixture(t)
	f.directory.SelectFn = func(tenantID string) (*directory.Selection, error) {
		selected := tenants.Tenant{ID: tenantID}
		return &directory.Selection{Tenant: &selected, AccessToken: "tok-" + tenantID}, nil
	}
	f.initialize(t)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, id := range []string{testTenantOne, testTenantTwo} {
		wg.Add(1)
		go func(tenantID string) {
			defer wg.Done()
			errs <- f.manager.SwitchTenant(context.Background(), tenantID)
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Whichever switch landed last, the tenant and its credential must agree
	// everywhere.
	s := f.manager.Snapshot()
	require.NotNil(t, s.CurrentTenant)
	require.Contains(t, []string{testTenantOne, testTenantTwo}, s.CurrentTenant.ID)
	require.Equal(t, "tok-"+s.CurrentTenant.ID, f.creds.AccessToken())
	require.Equal(t, "tok-"+s.CurrentTenant.ID, f.store.PersistedCredential())
	require.Equal(t, s.CurrentTenant.ID, f.store.PersistedTenant().ID)
}

func TestLogoutClearsSessionAndStorage(t *testing.T) {
	f := setupTestFixture(t)
	f.initialize(t)
	require.NoError(t, f.manager.SwitchTenant(context.Background(), testTenantOne))

	require.NoError(t, f.manager.Logout(context.Background()))

	s := f.manager.Snapshot()
	require.Nil(t, s.CurrentTenant)
	require.Empty(t, s.AvailableTenants)
	require.Nil(t, f.store.PersistedTenant())
	require.Empty(t, f.store.PersistedCredential())
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	f := setupTestFixture(t)
	f.initialize(t)

	events, cancel := f.manager.Subscribe()
	cancel()

	require.NoError(t, f.manager.SwitchTenant(context.Background(), testTenantOne))

	select {
	case <-events:
		t.Fatal("cancelled subscriber must not receive events")
	case <-time.After(50 * time.Millisecond):
	}
}
