package session

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// AutoSelectPolicy activates a deterministic default tenant so the console
// never dead-ends with zero active tenant once at least one is known: when no
// tenant is active, at least one is available and no operation is in flight,
// it switches to the first tenant in the available list.
//
// The policy fires at most once per transition into that state. It does not
// re-fire while its own switch is in flight, and a failed attempt does not
// retry until the available list or the active tenant changes again.
type AutoSelectPolicy struct {
	manager *Manager
	log     zerolog.Logger

	inFlight atomic.Bool
	fired    atomic.Bool
}

// AutoSelectPolicyOption modifies an AutoSelectPolicy during construction.
type AutoSelectPolicyOption func(*AutoSelectPolicy)

// WithPolicyLogger sets the policy's logger.
func WithPolicyLogger(log zerolog.Logger) AutoSelectPolicyOption {
	return func(p *AutoSelectPolicy) {
		p.log = log
	}
}

// NewAutoSelectPolicy creates the policy and registers it with the manager's
// state-change notifications.
func NewAutoSelectPolicy(manager *Manager, options ...AutoSelectPolicyOption) *AutoSelectPolicy {
	p := &AutoSelectPolicy{
		manager: manager,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(p)
	}
	manager.OnStateChange(p.Evaluate)
	return p
}

// Evaluate inspects a state snapshot and triggers the default selection when
// the rule's conditions hold. The switch itself runs on its own goroutine;
// Evaluate is called from the manager's notification path and must not call
// back into the manager synchronously.
func (p *AutoSelectPolicy) Evaluate(s State) {
	if s.CurrentTenant != nil || len(s.AvailableTenants) == 0 {
		p.fired.Store(false)
		return
	}
	if s.Loading || p.fired.Load() {
		return
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		return
	}
	p.fired.Store(true)

	target := s.AvailableTenants[0]
	p.log.Info().Str("tenant_id", target.ID).Str("slug", target.Slug).Msg("auto-selecting default tenant")
	go func() {
		defer p.inFlight.Store(false)
		if err := p.manager.SwitchTenant(context.Background(), target.ID); err != nil {
			p.log.Warn().Err(err).Str("tenant_id", target.ID).Msg("auto-selection switch failed")
		}
	}()
}
