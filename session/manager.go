// Package session owns the multi-tenant session state of the console: which
// tenants the current credential may act as, which tenant is active, and the
// protocol for switching between them without ever leaving the application
// with a mismatched tenant/credential pair.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/go-admin-console/auth"
	"github.com/jrsteele09/go-admin-console/directory"
	apperrors "github.com/jrsteele09/go-admin-console/internal/errors"
	"github.com/jrsteele09/go-admin-console/internal/metrics"
	"github.com/jrsteele09/go-admin-console/tenants"
	"github.com/jrsteele09/go-admin-console/token"
)

// Manager orchestrates tenant session initialization, selection and error
// recovery. It is the sole writer of both the in-memory State and the Store.
//
// Switches and refreshes are serialized: SwitchTenant holds a real mutex for
// its whole duration and RefreshTenants collapses concurrent callers into a
// single remote call, so two near-simultaneous operations cannot race each
// other into a half-applied switch.
type Manager struct {
	directory directory.Client
	store     Store
	creds     auth.Updater
	readiness auth.Readiness
	metrics   *metrics.SessionMetrics
	log       zerolog.Logger

	stateLock   sync.RWMutex
	state       State
	initialized bool

	switchLock sync.Mutex
	refresh    singleflight.Group

	listenerLock sync.Mutex
	listeners    []func(State)

	subscriberLock sync.Mutex
	subscribers    map[string]chan TenantChange
}

// ManagerOption modifies a Manager during construction.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// WithMetrics attaches session metrics. The manager works without them.
func WithMetrics(sm *metrics.SessionMetrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = sm
	}
}

// NewManager initializes a Manager with its required collaborators.
func NewManager(
	directoryClient directory.Client,
	store Store,
	creds auth.Updater,
	readiness auth.Readiness,
	options ...ManagerOption,
) (*Manager, error) {
	if directoryClient == nil {
		return nil, fmt.Errorf("[NewManager] directory client is required")
	}
	if store == nil {
		return nil, fmt.Errorf("[NewManager] store is required")
	}
	if creds == nil {
		return nil, fmt.Errorf("[NewManager] credential updater is required")
	}
	if readiness == nil {
		return nil, fmt.Errorf("[NewManager] auth readiness is required")
	}

	m := &Manager{
		directory:   directoryClient,
		store:       store,
		creds:       creds,
		readiness:   readiness,
		log:         zerolog.Nop(),
		subscribers: make(map[string]chan TenantChange),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Initialize populates the session once per application run. It must not run
// before the authentication subsystem reports itself done initializing.
//
// The persisted tenant is loaded best-effort first, then the directory is
// listed. A directory failure is recorded in the state's error field rather
// than returned, so an already-persisted session stays usable while the
// directory is down.
func (m *Manager) Initialize(ctx context.Context) error {
	if !m.readiness.Ready() {
		return apperrors.ErrAuthNotReady
	}

	m.stateLock.Lock()
	if m.initialized {
		m.stateLock.Unlock()
		return apperrors.ErrAlreadyInitialized
	}
	m.initialized = true
	m.state.Loading = true
	m.state.Err = ""
	m.stateLock.Unlock()

	persisted, err := m.store.Load(ctx)
	if err != nil {
		m.log.Debug().Err(err).Msg("loading persisted tenant failed, starting with none")
		persisted = nil
	}
	if persisted == nil {
		// Nothing persisted locally: adopt the tenant the directory already
		// considers active, if any. Best-effort, a failure means none.
		if current, err := m.directory.CurrentTenant(ctx); err == nil && current != nil {
			persisted = current
		}
	}
	m.stateLock.Lock()
	m.state.CurrentTenant = persisted
	m.stateLock.Unlock()

	if err := m.RefreshTenants(ctx); err != nil {
		m.log.Warn().Err(err).Msg("directory listing failed during initialization")
	}

	m.stateLock.Lock()
	m.state.Loading = false
	m.stateLock.Unlock()
	m.notifyStateChanged()
	return nil
}

// RefreshTenants replaces the available-tenant list wholesale from the
// directory. Unlike Initialize, a failure is both recorded in state and
// returned to the caller. Concurrent refreshes share one remote call.
func (m *Manager) RefreshTenants(ctx context.Context) error {
	_, err, _ := m.refresh.Do("refresh", func() (interface{}, error) {
		m.metrics.RefreshPerformed()

		listed, err := m.directory.ListTenants(ctx)
		if err != nil {
			m.setError(err)
			return nil, err
		}

		m.stateLock.Lock()
		m.state.AvailableTenants = listed
		m.state.Err = ""
		m.stateLock.Unlock()
		return nil, nil
	})
	// Listeners hear about the error transition too, not just a new list.
	m.notifyStateChanged()
	return err
}

// SwitchTenant atomically activates tenantID: it asks the directory to select
// the tenant, persists the result, propagates any freshly minted credential
// to the authentication subsystem and storage, and only then swaps the
// in-memory tenant and broadcasts the change. On any failure the previously
// active tenant remains fully intact and selectable again.
func (m *Manager) SwitchTenant(ctx context.Context, tenantID string) error {
	m.switchLock.Lock()
	defer m.switchLock.Unlock()

	m.stateLock.Lock()
	if !m.initialized {
		m.stateLock.Unlock()
		return apperrors.ErrNotInitialized
	}
	previous := m.state.CurrentTenant
	if !containsTenant(m.state.AvailableTenants, tenantID) {
		m.stateLock.Unlock()
		m.metrics.SwitchFailed(metrics.ReasonTenantNotFound)
		return apperrors.Wrapf(apperrors.ErrTenantNotFound, "switch to %q", tenantID)
	}
	m.state.Loading = true
	m.state.Err = ""
	m.stateLock.Unlock()
	m.notifyStateChanged()

	log := m.log.With().
		Str("switch_id", uuid.NewString()).
		Str("tenant_id", tenantID).
		Logger()
	m.metrics.SwitchStarted()
	started := time.Now()

	resolved, err := m.performSwitch(ctx, log, tenantID, previous)

	m.stateLock.Lock()
	m.state.Loading = false
	if err != nil {
		m.state.Err = err.Error()
	} else {
		m.state.CurrentTenant = resolved
	}
	m.stateLock.Unlock()
	m.notifyStateChanged()

	if err != nil {
		log.Warn().Err(err).Msg("tenant switch failed")
		return err
	}

	m.metrics.SwitchCompleted(time.Since(started))
	log.Info().Str("slug", resolved.Slug).Msg("tenant switch completed")
	m.broadcast(TenantChange{Tenant: *resolved, Previous: previous})
	return nil
}

// performSwitch runs the remote selection and all persistence. It returns the
// resolved tenant but does not touch in-memory state; credential propagation
// completes before the caller swaps the tenant pointer, so no consumer can
// observe the new tenant paired with the old credential.
func (m *Manager) performSwitch(ctx context.Context, log zerolog.Logger, tenantID string, previous *tenants.Tenant) (*tenants.Tenant, error) {
	selection, err := m.directory.SelectTenant(ctx, tenantID)
	if err != nil {
		m.metrics.SwitchFailed(metrics.ReasonDirectory)
		return nil, err
	}
	resolved := selection.Tenant

	if err := m.store.Save(ctx, resolved); err != nil {
		m.metrics.SwitchFailed(metrics.ReasonPersistence)
		return nil, apperrors.Wrapf(err, "persisting tenant %q", tenantID)
	}

	if selection.AccessToken != "" {
		// Capture the pre-switch credential so a failed propagation can put
		// the auth subsystem back where it was. The live in-memory token wins
		// over the persisted one; the two diverge when a bootstrap-seeded
		// credential was never written back to storage.
		previousCredential, _ := m.store.LoadCredential(ctx)
		if provider, ok := m.creds.(auth.Provider); ok {
			previousCredential = provider.AccessToken()
		}
		if err := m.propagateCredential(ctx, log, selection.AccessToken, resolved); err != nil {
			m.metrics.SwitchFailed(metrics.ReasonCredential)
			m.rollbackPersisted(ctx, log, previous)
			if restoreErr := m.creds.UpdateAccessToken(ctx, previousCredential); restoreErr != nil {
				log.Error().Err(restoreErr).Msg("restoring previous credential failed")
			}
			return nil, fmt.Errorf("%w: %v", apperrors.ErrCredentialPropagation, err)
		}
	}
	return resolved, nil
}

// propagateCredential hands the fresh credential to the authentication
// subsystem and to persisted storage. When the credential is an inspectable
// JWT, a scope mismatch against the selected tenant is logged; opaque
// credentials are propagated as-is.
func (m *Manager) propagateCredential(ctx context.Context, log zerolog.Logger, accessToken string, selected *tenants.Tenant) error {
	if scope, err := token.TenantScope(accessToken); err == nil && scope != "" && scope != selected.ID {
		log.Warn().Str("credential_scope", scope).Msg("minted credential is scoped to a different tenant")
	}

	if err := m.creds.UpdateAccessToken(ctx, accessToken); err != nil {
		return fmt.Errorf("updating auth subsystem: %w", err)
	}
	if err := m.store.SaveCredential(ctx, accessToken); err != nil {
		return fmt.Errorf("persisting credential: %w", err)
	}
	return nil
}

// rollbackPersisted restores storage to its pre-switch tenant after a failed
// credential propagation. With no prior tenant the record is cleared outright,
// which also drops the persisted credential: forcing a re-login beats leaving
// a tenant/credential pair that may not match.
func (m *Manager) rollbackPersisted(ctx context.Context, log zerolog.Logger, previous *tenants.Tenant) {
	var err error
	if previous != nil {
		err = m.store.Save(ctx, previous)
	} else {
		err = m.store.Clear(ctx)
	}
	if err != nil {
		log.Error().Err(err).Msg("rolling back persisted tenant failed")
	}
}

// Logout clears the persisted session and resets in-memory state. The next
// authenticated run starts from a clean slate.
func (m *Manager) Logout(ctx context.Context) error {
	m.switchLock.Lock()
	defer m.switchLock.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		return apperrors.Wrapf(err, "clearing persisted session")
	}

	m.stateLock.Lock()
	m.state.CurrentTenant = nil
	m.state.AvailableTenants = nil
	m.state.Err = ""
	m.stateLock.Unlock()
	m.notifyStateChanged()
	return nil
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() State {
	m.stateLock.RLock()
	defer m.stateLock.RUnlock()
	return m.state.clone()
}

// OnStateChange registers fn to run with a state snapshot after every state
// mutation. Callbacks run synchronously on the mutating goroutine and must
// not block.
func (m *Manager) OnStateChange(fn func(State)) {
	m.listenerLock.Lock()
	defer m.listenerLock.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Subscribe returns a channel that receives a TenantChange after every
// completed switch, plus a cancel function. Slow subscribers miss
// intermediate events rather than blocking a switch; the latest event always
// gets through.
func (m *Manager) Subscribe() (<-chan TenantChange, func()) {
	m.subscriberLock.Lock()
	defer m.subscriberLock.Unlock()

	id := uuid.NewString()
	ch := make(chan TenantChange, 1)
	m.subscribers[id] = ch
	cancel := func() {
		m.subscriberLock.Lock()
		defer m.subscriberLock.Unlock()
		delete(m.subscribers, id)
	}
	return ch, cancel
}

func (m *Manager) broadcast(change TenantChange) {
	m.subscriberLock.Lock()
	defer m.subscriberLock.Unlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- change:
		default:
			// Drop the stale queued event and replace it with the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- change:
			default:
			}
		}
	}
}

func (m *Manager) notifyStateChanged() {
	m.listenerLock.Lock()
	listeners := make([]func(State), len(m.listeners))
	copy(listeners, m.listeners)
	m.listenerLock.Unlock()

	snapshot := m.Snapshot()
	for _, fn := range listeners {
		fn(snapshot)
	}
}

func (m *Manager) setError(err error) {
	m.stateLock.Lock()
	m.state.Err = err.Error()
	m.stateLock.Unlock()
}

func containsTenant(available []tenants.Tenant, tenantID string) bool {
	for _, t := range available {
		if t.ID == tenantID {
			return true
		}
	}
	return false
}
