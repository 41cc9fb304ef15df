// Package gcs reads directory snapshots from Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/rezkam/demand/internal/storage/snapshot"
)

// ErrNoSnapshot is returned when a prefix holds no .json object.
var ErrNoSnapshot = errors.New("no snapshot object found")

// Store is a GCS-backed snapshot.Source.
//
// object names a single object, or a prefix when it ends in "/". For a prefix
// the lexically last .json object is read, so timestamped names
// ("snapshots/2025-03-01T06:00:00Z.json") select the newest export.
// A snapshot is re-downloaded only when the object's generation changes.
type Store struct {
	client *storage.Client
	bucket string
	object string

	mu         sync.RWMutex
	cached     *snapshot.Snapshot
	cachedName string
	generation int64
}

var _ snapshot.Source = (*Store)(nil)

// NewStore creates a new GCS store.
// It assumes the client is authenticated (e.g. via GOOGLE_APPLICATION_CREDENTIALS).
func NewStore(ctx context.Context, bucket, object string) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return NewStoreWithClient(client, bucket, object), nil
}

// NewStoreWithClient creates a store on an existing client.
func NewStoreWithClient(client *storage.Client, bucket, object string) *Store {
	return &Store{client: client, bucket: bucket, object: object}
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Load returns the current snapshot.
func (s *Store) Load(ctx context.Context) (*snapshot.Snapshot, error) {
	name, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	obj := s.client.Bucket(s.bucket).Object(name)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to stat gs://%s/%s: %w", s.bucket, name, err)
	}

	s.mu.RLock()
	if s.cached != nil && s.cachedName == name && s.generation == attrs.Generation {
		snap := s.cached
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	r, err := obj.Generation(attrs.Generation).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", s.bucket, name, err)
	}
	defer r.Close()

	snap, err := snapshot.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("gs://%s/%s: %w", s.bucket, name, err)
	}

	s.mu.Lock()
	s.cached, s.cachedName, s.generation = snap, name, attrs.Generation
	s.mu.Unlock()

	return snap, nil
}

// resolve returns the object to read.
func (s *Store) resolve(ctx context.Context) (string, error) {
	if !strings.HasSuffix(s.object, "/") {
		return s.object, nil
	}

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.object})
	var latest string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to list objects: %w", err)
		}
		if strings.HasSuffix(attrs.Name, ".json") && attrs.Name > latest {
			latest = attrs.Name
		}
	}
	if latest == "" {
		return "", fmt.Errorf("%w under gs://%s/%s", ErrNoSnapshot, s.bucket, s.object)
	}
	return latest, nil
}

// Save writes snap to name. An empty name writes the configured object; with a
// prefix configured, name is joined under it.
func (s *Store) Save(ctx context.Context, name string, snap *snapshot.Snapshot) error {
	switch {
	case name == "":
		name = s.object
	case strings.HasSuffix(s.object, "/"):
		name = s.object + name
	}
	if strings.HasSuffix(name, "/") {
		return fmt.Errorf("object name required when saving under prefix %q", s.object)
	}

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"
	if err := snapshot.Encode(w, snap); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write gs://%s/%s: %w", s.bucket, name, err)
	}
	return nil
}

// Directory returns a demand directory over this store.
func (s *Store) Directory() *snapshot.Directory {
	return snapshot.NewDirectory(s)
}
