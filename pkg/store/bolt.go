package store

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

var (
	boltBucket     = []byte("formbuilder")
	collectionKey  = []byte("savedForms")
	defaultTimeout = time.Second
)

// BoltStore keeps the saved-form collection under a fixed bucket/key in a
// bbolt file.
type BoltStore struct {
	db     *bolt.DB
	logger zerolog.Logger
}

// BoltOption configures a BoltStore.
type BoltOption func(*BoltStore)

// WithLogger routes store diagnostics to the given logger.
func WithLogger(logger zerolog.Logger) BoltOption {
	return func(s *BoltStore) {
		s.logger = logger
	}
}

// OpenBolt opens (creating if needed) the store file at path.
func OpenBolt(path string, options ...BoltOption) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: defaultTimeout})
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}

	s := &BoltStore{db: db, logger: zerolog.Nop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s, nil
}

// Load reads the collection. An absent bucket or key, or a payload that no
// longer decodes, yields an empty list so a damaged file never blocks startup.
func (s *BoltStore) Load() ([]model.SavedForm, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}

	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return nil
		}
		if data := bucket.Get(collectionKey); data != nil {
			raw = append([]byte(nil), data...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: read collection: %w", err)
	}
	if len(raw) == 0 {
		return []model.SavedForm{}, nil
	}

	var forms []model.SavedForm
	if err := json.Unmarshal(raw, &forms); err != nil {
		s.logger.Warn().Err(err).Msg("saved-form collection is malformed; starting empty")
		return []model.SavedForm{}, nil
	}
	return forms, nil
}

// Save rewrites the whole collection inside one write transaction.
func (s *BoltStore) Save(forms []model.SavedForm) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}

	payload, err := json.Marshal(forms)
	if err != nil {
		return fmt.Errorf("store: encode collection: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		return bucket.Put(collectionKey, payload)
	})
	if err != nil {
		return fmt.Errorf("store: write collection: %w", err)
	}

	s.logger.Debug().Int("forms", len(forms)).Msg("saved-form collection persisted")
	return nil
}

// Close releases the underlying bbolt file.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
