package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/groupcache/lru"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// maxAssetBytes bounds a single fetched asset
const maxAssetBytes = 32 << 20

// Asset is a fetched template cover or reference image
type Asset struct {
	Src         string
	Data        []byte
	ContentType string
}

// Fetcher loads the asset identified by src
type Fetcher func(ctx context.Context, src string) (Asset, error)

// CacheStats counts cache activity
type CacheStats struct {
	Hits    int64
	Misses  int64
	Fetches int64
	Entries int
}

// AssetCache is a bounded LRU cache of assets. Concurrent requests for the
// same source share one fetch.
type AssetCache struct {
	mu     sync.Mutex
	lru    *lru.Cache
	group  singleflight.Group
	fetch  Fetcher
	logger *zap.Logger

	hits    atomic.Int64
	misses  atomic.Int64
	fetches atomic.Int64
}

// NewAssetCache creates a cache holding at most size assets
func NewAssetCache(size int, fetch Fetcher, logger *zap.Logger) *AssetCache {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &AssetCache{
		lru:    lru.New(size),
		fetch:  fetch,
		logger: logger,
	}
	c.lru.OnEvicted = func(key lru.Key, _ interface{}) {
		c.logger.Debug("asset evicted", zap.Any("src", key))
	}
	return c
}

// GetOrFetch returns the cached asset for src, fetching it on a miss.
// Failed fetches are not cached.
func (c *AssetCache) GetOrFetch(ctx context.Context, src string) (Asset, error) {
	if asset, ok := c.Get(src); ok {
		c.hits.Add(1)
		return asset, nil
	}
	c.misses.Add(1)

	ch := c.group.DoChan(src, func() (interface{}, error) {
		if asset, ok := c.Get(src); ok {
			return asset, nil
		}
		c.fetches.Add(1)
		asset, err := c.fetch(context.WithoutCancel(ctx), src)
		if err != nil {
			return Asset{}, err
		}
		c.mu.Lock()
		c.lru.Add(src, asset)
		c.mu.Unlock()
		return asset, nil
	})

	select {
	case <-ctx.Done():
		return Asset{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.logger.Debug("asset fetch failed", zap.String("src", src), zap.Error(res.Err))
			return Asset{}, res.Err
		}
		return res.Val.(Asset), nil
	}
}

// Get returns a cached asset without fetching
func (c *AssetCache) Get(src string) (Asset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(src)
	if !ok {
		return Asset{}, false
	}
	return v.(Asset), true
}

// Invalidate drops src from the cache
func (c *AssetCache) Invalidate(src string) {
	c.mu.Lock()
	c.lru.Remove(src)
	c.mu.Unlock()
}

// Stats returns a snapshot of cache counters
func (c *AssetCache) Stats() CacheStats {
	c.mu.Lock()
	entries := c.lru.Len()
	c.mu.Unlock()
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Fetches: c.fetches.Load(),
		Entries: entries,
	}
}

// DefaultFetcher loads http(s) URLs with client, data: URIs inline and
// anything else as a local file path
func DefaultFetcher(client *http.Client, timeout time.Duration) Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, src string) (Asset, error) {
		switch {
		case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return fetchHTTP(ctx, client, src)
		case strings.HasPrefix(src, "data:"):
			return decodeDataURI(src)
		default:
			data, err := os.ReadFile(src)
			if err != nil {
				return Asset{}, fmt.Errorf("failed to read asset: %w", err)
			}
			return Asset{Src: src, Data: data, ContentType: http.DetectContentType(data)}, nil
		}
	}
}

func fetchHTTP(ctx context.Context, client *http.Client, src string) (Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return Asset{}, fmt.Errorf("invalid asset url: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Asset{}, fmt.Errorf("failed to download asset: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return Asset{}, fmt.Errorf("failed to read asset body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return Asset{Src: src, Data: data, ContentType: contentType}, nil
}

// DataURI encodes an asset as data:<type>;base64,<payload>
func DataURI(a Asset) string {
	contentType := a.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(a.Data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// decodeDataURI handles data:<type>;base64,<payload>
func decodeDataURI(src string) (Asset, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return Asset{}, fmt.Errorf("unsupported data uri")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to decode data uri: %w", err)
	}
	return Asset{Src: src, Data: data, ContentType: strings.TrimSuffix(header, ";base64")}, nil
}
