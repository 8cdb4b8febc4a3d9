package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mafia-night/backend/internal/protocol"
	bolt "go.etcd.io/bbolt"
)

var gamesBucket = []byte("games")

// BoltStore is the persistent embedded key-value store: one bbolt file,
// one bucket, keyed by raw game-id bytes.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if necessary) a bbolt database at path and
// ensures its bucket exists.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(gamesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Save(record GameRecord) bool {
	record.DateUpdated = time.Now()
	value, err := json.Marshal(record)
	if err != nil {
		return false
	}
	key := record.Info.GameID[:]
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(gamesBucket).Put(key, value)
	})
	return err == nil
}

func (s *BoltStore) Delete(gameID protocol.GameId) bool {
	key := gameID[:]
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(gamesBucket).Delete(key)
	})
	return err == nil
}

func (s *BoltStore) Iterate(fn func(GameRecord) bool) error {
	return s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(gamesBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var record GameRecord
			if err := json.Unmarshal(v, &record); err != nil {
				continue
			}
			if !fn(record) {
				break
			}
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
