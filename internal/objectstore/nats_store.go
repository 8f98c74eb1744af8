// Package objectstore keeps synthesized clips in a NATS JetStream object
// store so repeated runs over the same cues skip the TTS provider.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const DefaultBucket = "dubline-clips"

// NatsObjectStore is a byte cache backed by one object store bucket.
type NatsObjectStore struct {
	bucket string
	store  nats.ObjectStore
	conn   *nats.Conn // set only when the store owns the connection
}

// New creates the bucket, or binds to it when it already exists.
func New(js nats.JetStreamContext, bucket string, ttl time.Duration) (*NatsObjectStore, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}

	store, err := js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucket,
		Description: "Synthesized speech clips keyed by provider, voice and text.",
		TTL:         ttl,
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) &&
			!errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucket, err)
		}
		store, err = js.ObjectStore(bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to object store bucket '%s': %w", bucket, err)
		}
	}

	return &NatsObjectStore{bucket: bucket, store: store}, nil
}

// Connect dials url and opens bucket. Close releases the connection.
func Connect(url, bucket string, ttl time.Duration) (*NatsObjectStore, error) {
	conn, err := nats.Connect(url, nats.Name("dubline"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open JetStream context: %w", err)
	}

	store, err := New(js, bucket, ttl)
	if err != nil {
		conn.Close()
		return nil, err
	}
	store.conn = conn
	return store, nil
}

// Get returns (nil, false, nil) for keys that were never stored.
func (n *NatsObjectStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := n.store.GetBytes(key, nats.Context(ctx))
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", key, n.bucket, err)
	}
	return data, true, nil
}

func (n *NatsObjectStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := n.store.PutBytes(key, data, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w", key, n.bucket, err)
	}
	return nil
}

func (n *NatsObjectStore) Bucket() string {
	return n.bucket
}

func (n *NatsObjectStore) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}
