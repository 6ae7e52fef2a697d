package service

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
)

// ErrArtifactMiss indicates the artifact is not cached.
var ErrArtifactMiss = errors.New("artifact not cached")

// ArtifactCache keeps rendered preview artifacts for the lifetime of a tab
// session so repeated views do not refetch them.
type ArtifactCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// ArtifactKey addresses the preview of one document within one tab.
func ArtifactKey(tabID string, documentID string) string {
	return tabID + "/" + documentID
}

// MemoryArtifactCache is the default in-process backend.
type MemoryArtifactCache struct {
	cache *cache.Cache
}

func NewMemoryArtifactCache(ttl time.Duration) *MemoryArtifactCache {
	cleanup := ttl / 2
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &MemoryArtifactCache{cache: cache.New(ttl, cleanup)}
}

func (m *MemoryArtifactCache) Get(_ context.Context, key string) ([]byte, error) {
	if x, found := m.cache.Get(key); found {
		return x.([]byte), nil
	}
	return nil, ErrArtifactMiss
}

func (m *MemoryArtifactCache) Put(_ context.Context, key string, data []byte) error {
	m.cache.Set(key, data, cache.DefaultExpiration)
	return nil
}

// Count returns the number of cached artifacts, including expired ones not yet purged.
func (m *MemoryArtifactCache) Count() int {
	return m.cache.ItemCount()
}
