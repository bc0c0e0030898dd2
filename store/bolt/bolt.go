/*
Package bolt provides a bbolt-backed implementation of stream.Store.

PURPOSE:
  Single-file embedded storage with no SQL dependency. Records are stored
  as JSON values; stream keys are big-endian uint64 so a bucket cursor
  walks streams in identifier order.

BUCKETS:
  meta:    'config' -> JSON stream.Config, 'next_stream_id' -> 8-byte BE
  streams: big-endian StreamID -> JSON stream.Stream

SEE ALSO:
  - stream/store.go: Interface definition
  - store/sqlite: SQL-backed alternative
*/
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/warp/stream-engine/stream"
)

var (
	bucketMeta    = []byte("meta")
	bucketStreams = []byte("streams")

	keyConfig = []byte("config")
	keyNextID = []byte("next_stream_id")
)

// Store implements stream.Store using bbolt.
type Store struct {
	db *bolt.DB
}

// New opens (creating if necessary) the database file and its buckets.
func New(path string) (*Store, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketStreams)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func streamKey(id stream.StreamID) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

func (s *Store) GetConfig(_ context.Context) (stream.Config, bool, error) {
	var (
		cfg   stream.Config
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		bs := tx.Bucket(bucketMeta).Get(keyConfig)
		if bs == nil {
			return nil
		}
		found = true
		return json.Unmarshal(bs, &cfg)
	})
	if err != nil {
		return stream.Config{}, false, err
	}
	return cfg, found, nil
}

func (s *Store) PutConfig(_ context.Context, cfg stream.Config) error {
	bs, err := json.Marshal(&cfg)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyConfig, bs)
	})
}

func (s *Store) GetStream(_ context.Context, id stream.StreamID) (*stream.Stream, error) {
	var rec *stream.Stream
	err := s.db.View(func(tx *bolt.Tx) error {
		bs := tx.Bucket(bucketStreams).Get(streamKey(id))
		if bs == nil {
			return stream.ErrStreamNotFound
		}
		rec = &stream.Stream{}
		return json.Unmarshal(bs, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) PutStream(_ context.Context, rec *stream.Stream) error {
	bs, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStreams).Put(streamKey(rec.ID), bs)
	})
}

func (s *Store) NextStreamID(_ context.Context) (stream.StreamID, error) {
	var id stream.StreamID
	err := s.db.View(func(tx *bolt.Tx) error {
		bs := tx.Bucket(bucketMeta).Get(keyNextID)
		if bs != nil {
			id = stream.StreamID(binary.BigEndian.Uint64(bs))
		}
		return nil
	})
	return id, err
}

func (s *Store) SetNextStreamID(_ context.Context, id stream.StreamID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyNextID, streamKey(id))
	})
}
