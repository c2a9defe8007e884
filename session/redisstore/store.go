// Package redisstore persists the tenant session in Redis for deployments
// where console instances share session state.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-admin-console/session"
	"github.com/jrsteele09/go-admin-console/tenants"
)

// Store implements session.Store on a Redis client. The tenant keys are
// written through one transactional pipeline per Save, so a concurrent reader
// sees either the old record or the new one.
type Store struct {
	client    *redis.Client
	keyPrefix string
	log       zerolog.Logger
}

// NewStore creates a Redis-backed session store. All keys are namespaced
// under keyPrefix.
func NewStore(client *redis.Client, keyPrefix string, log zerolog.Logger) *Store {
	return &Store{
		client:    client,
		keyPrefix: keyPrefix,
		log:       log,
	}
}

func (s *Store) key(name string) string {
	return fmt.Sprintf("%s:session:%s", s.keyPrefix, name)
}

// Save implements session.Store.
func (s *Store) Save(ctx context.Context, tenant *tenants.Tenant) error {
	record, err := json.Marshal(tenant)
	if err != nil {
		return fmt.Errorf("[redisstore.Save] marshalling tenant: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key("tenant_id"), tenant.ID, 0)
		pipe.Set(ctx, s.key("tenant_slug"), tenant.Slug, 0)
		pipe.Set(ctx, s.key("tenant"), record, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("[redisstore.Save] writing tenant record: %w", err)
	}
	return nil
}

// Load implements session.Store. A missing or malformed record yields nil,
// never an error.
func (s *Store) Load(ctx context.Context) (*tenants.Tenant, error) {
	raw, err := s.client.Get(ctx, s.key("tenant")).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Debug().Err(err).Msg("reading persisted tenant failed")
		}
		return nil, nil
	}

	var tenant tenants.Tenant
	if err := json.Unmarshal(raw, &tenant); err != nil {
		s.log.Debug().Err(err).Msg("persisted tenant record is malformed, ignoring it")
		return nil, nil
	}
	return &tenant, nil
}

// SaveCredential implements session.Store.
func (s *Store) SaveCredential(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.key("access_token"), token, 0).Err(); err != nil {
		return fmt.Errorf("[redisstore.SaveCredential] writing credential: %w", err)
	}
	return nil
}

// LoadCredential implements session.Store.
func (s *Store) LoadCredential(ctx context.Context) (string, error) {
	credential, err := s.client.Get(ctx, s.key("access_token")).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("[redisstore.LoadCredential] reading credential: %w", err)
	}
	return credential, nil
}

// Clear implements session.Store.
func (s *Store) Clear(ctx context.Context) error {
	keys := []string{
		s.key("tenant_id"),
		s.key("tenant_slug"),
		s.key("tenant"),
		s.key("access_token"),
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("[redisstore.Clear] deleting session keys: %w", err)
	}
	return nil
}

var _ session.Store = (*Store)(nil)
