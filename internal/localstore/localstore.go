// Package localstore is the on-device key-value cache backing currency
// rates, user preferences and the persisted auth session.
package localstore

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bucketRates       = "rates"
	bucketPreferences = "preferences"
	bucketSession     = "session"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = fmt.Errorf("localstore: key not found")

type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the cache file and ensures all buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketRates, bucketPreferences, bucketSession} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) put(bucket, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling %s/%s: %w", bucket, key, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
}

func (s *Store) get(bucket, key string, dest any) error {
	var data []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}

		data = append([]byte(nil), v...)

		return nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshaling %s/%s: %w", bucket, key, err)
	}

	return nil
}

func (s *Store) delete(bucket, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Delete([]byte(key))
	})
}

// PutRates stores the cached rate entry for a base currency.
func (s *Store) PutRates(base string, value any) error {
	return s.put(bucketRates, base, value)
}

// GetRates loads the cached rate entry for a base currency.
func (s *Store) GetRates(base string, dest any) error {
	return s.get(bucketRates, base, dest)
}

// PutPreference stores a named preference value.
func (s *Store) PutPreference(key string, value any) error {
	return s.put(bucketPreferences, key, value)
}

// GetPreference loads a named preference value.
func (s *Store) GetPreference(key string, dest any) error {
	return s.get(bucketPreferences, key, dest)
}

// PutSession persists the auth session across restarts.
func (s *Store) PutSession(value any) error {
	return s.put(bucketSession, "current", value)
}

// GetSession loads the persisted auth session.
func (s *Store) GetSession(dest any) error {
	return s.get(bucketSession, "current", dest)
}

// ClearSession removes the persisted auth session on sign-out.
func (s *Store) ClearSession() error {
	return s.delete(bucketSession, "current")
}
