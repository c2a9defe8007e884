// Package boltstore persists the tenant session in a local bbolt database so
// it survives process restarts.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/jrsteele09/go-admin-console/session"
	"github.com/jrsteele09/go-admin-console/tenants"
)

var (
	bucketName = []byte("tenant_session")

	keyTenantID   = []byte("tenant_id")
	keyTenantSlug = []byte("tenant_slug")
	keyTenant     = []byte("tenant")
	keyCredential = []byte("access_token")
)

// Store implements session.Store on a bbolt database. All three tenant keys
// are written in one update transaction, so a reader never observes a
// partially updated record.
type Store struct {
	db  *bolt.DB
	log zerolog.Logger
}

// StoreOption modifies a Store during construction.
type StoreOption func(*Store)

// WithLogger sets the store's logger.
func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

// Open opens (creating if needed) the session database at path.
func Open(path string, options ...StoreOption) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("[boltstore.Open] opening %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("[boltstore.Open] creating bucket: %w", err)
	}

	s := &Store{db: db, log: zerolog.Nop()}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save implements session.Store.
func (s *Store) Save(_ context.Context, tenant *tenants.Tenant) error {
	record, err := json.Marshal(tenant)
	if err != nil {
		return fmt.Errorf("[boltstore.Save] marshalling tenant: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if err := b.Put(keyTenantID, []byte(tenant.ID)); err != nil {
			return err
		}
		if err := b.Put(keyTenantSlug, []byte(tenant.Slug)); err != nil {
			return err
		}
		return b.Put(keyTenant, record)
	})
}

// Load implements session.Store. Missing or malformed persisted data yields
// nil, never an error: a corrupt record is logged and treated as "no tenant
// persisted".
func (s *Store) Load(_ context.Context) (*tenants.Tenant, error) {
	var raw []byte
	if err := s.db.View(func(tx *bolt.Tx) error {
		if stored := tx.Bucket(bucketName).Get(keyTenant); stored != nil {
			raw = make([]byte, len(stored))
			copy(raw, stored)
		}
		return nil
	}); err != nil {
		s.log.Debug().Err(err).Msg("reading persisted tenant failed")
		return nil, nil
	}
	if raw == nil {
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
func (s *Store) SaveCredential(_ context.Context, token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(keyCredential, []byte(token))
	})
}

// LoadCredential implements session.Store.
func (s *Store) LoadCredential(_ context.Context) (string, error) {
	var credential string
	err := s.db.View(func(tx *bolt.Tx) error {
		credential = string(tx.Bucket(bucketName).Get(keyCredential))
		return nil
	})
	return credential, err
}

// Clear implements session.Store.
func (s *Store) Clear(_ context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		for _, key := range [][]byte{keyTenantID, keyTenantSlug, keyTenant, keyCredential} {
			if err := b.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

var _ session.Store = (*Store)(nil)
