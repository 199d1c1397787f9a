// Package probecache remembers which archive timestamps were already
// confirmed so repeated runs (and the hourly watcher) do not re-download
// images the archive can no longer change. Entries live in an in-memory
// otter cache and are persisted to disk as a gob snapshot between runs.
// Only confirmed hits are cached: a timestamp missing now may appear a
// few minutes later.
package probecache

import (
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/radarwatch-dev/radarwatch/pkg/probe"
	"github.com/radarwatch-dev/radarwatch/pkg/timeofday"
)

const snapshotName = "probe-cache.gob"

// Entry is one confirmed archive timestamp with its payload.
type Entry struct {
	ExpiresAt   time.Time
	ContentType string
	Actual      string
	Data        []byte
}

// Cache holds confirmed probe results keyed by product and timestamp.
type Cache struct {
	cache      otter.Cache[string, Entry]
	logger     *slog.Logger
	saveCancel context.CancelFunc
	dir        string
	product    string
	saveWg     sync.WaitGroup
	ttl        time.Duration
	mu         sync.Mutex
}

// New opens (or creates) a disk-backed cache under dir. Entries expire
// after ttl. The snapshot is loaded eagerly and re-saved periodically
// until Close.
func New(ctx context.Context, dir, product string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	inner := otter.Must(&otter.Options[string, Entry]{
		MaximumSize:      10_000,
		InitialCapacity:  1_000,
		ExpiryCalculator: otter.ExpiryWriting[string, Entry](ttl),
	})

	c := &Cache{
		cache:   *inner,
		dir:     dir,
		product: product,
		ttl:     ttl,
		logger:  logger,
	}

	if err := c.loadFromDisk(); err != nil {
		logger.Warn("failed to load probe cache from disk", "error", err)
	}
	logger.Info("probe cache ready", "dir", dir, "entries", c.cache.EstimatedSize())

	c.startPeriodicSave(ctx)
	return c, nil
}

func (c *Cache) key(ts timeofday.TimeOfDay) string {
	h := sha256.New()
	h.Write([]byte(c.product))
	h.Write([]byte{'|'})
	h.Write([]byte(ts.String()))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result for a timestamp, if still fresh.
func (c *Cache) Get(ts timeofday.TimeOfDay) (Entry, bool) {
	entry, found := c.cache.GetIfPresent(c.key(ts))
	if !found {
		return Entry{}, false
	}
	// Otter expires on its own; the double check guards a stale snapshot.
	if time.Now().After(entry.ExpiresAt) {
		c.cache.Invalidate(c.key(ts))
		return Entry{}, false
	}
	return entry, true
}

// Set records a confirmed probe result for a timestamp.
func (c *Cache) Set(ts timeofday.TimeOfDay, res probe.Result) {
	entry := Entry{
		Data:        res.Payload.Data,
		ContentType: res.Payload.ContentType,
		Actual:      res.Actual.String(),
		ExpiresAt:   time.Now().Add(c.ttl),
	}
	c.cache.Set(c.key(ts), entry)
	c.logger.Debug("probe cache set", "timestamp", ts.String(), "bytes", len(entry.Data))
}

func (c *Cache) loadFromDisk() error {
	path := filepath.Join(c.dir, snapshotName)

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening cache snapshot: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			c.logger.Debug("failed to close cache snapshot", "error", closeErr)
		}
	}()

	var entries map[string]Entry
	if err := gob.NewDecoder(file).Decode(&entries); err != nil {
		return fmt.Errorf("decoding cache snapshot: %w", err)
	}

	now := time.Now()
	valid := 0
	for key, entry := range entries {
		if now.Before(entry.ExpiresAt) {
			c.cache.Set(key, entry)
			valid++
		}
	}
	c.logger.Debug("probe cache snapshot loaded", "path", path, "total", len(entries), "valid", valid)
	return nil
}

func (c *Cache) saveToDisk() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := filepath.Join(c.dir, snapshotName)
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp cache snapshot: %w", err)
	}
	defer func() {
		if removeErr := os.Remove(tempPath); removeErr != nil && !os.IsNotExist(removeErr) {
			c.logger.Debug("failed to remove temp snapshot", "error", removeErr)
		}
	}()

	entries := make(map[string]Entry)
	now := time.Now()
	c.cache.All()(func(key string, entry Entry) bool {
		if now.Before(entry.ExpiresAt) {
			entries[key] = entry
		}
		return true
	})

	if err := gob.NewEncoder(file).Encode(entries); err != nil {
		return fmt.Errorf("encoding cache snapshot: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("syncing cache snapshot: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing cache snapshot: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("replacing cache snapshot: %w", err)
	}

	c.logger.Debug("probe cache snapshot saved", "entries", len(entries), "path", path)
	return nil
}

func (c *Cache) startPeriodicSave(ctx context.Context) {
	saveCtx, cancel := context.WithCancel(ctx)
	c.saveCancel = cancel

	c.saveWg.Add(1)
	go func() {
		defer c.saveWg.Done()

		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-saveCtx.Done():
				return
			case <-ticker.C:
				if err := c.saveToDisk(); err != nil {
					c.logger.Error("periodic cache save failed", "error", err)
				}
			}
		}
	}()
}

// Close stops the periodic saver and flushes a final snapshot.
func (c *Cache) Close() error {
	if c.saveCancel != nil {
		c.saveCancel()
	}
	c.saveWg.Wait()

	if err := c.saveToDisk(); err != nil {
		c.logger.Error("final cache save failed", "error", err)
		return err
	}
	return nil
}

// Fetcher wraps an archive fetcher with the cache: a timestamp confirmed
// in an earlier run is answered from memory without touching the network.
type Fetcher struct {
	inner probe.Fetcher
	cache *Cache
}

// NewFetcher returns a caching wrapper around inner. A nil cache passes
// every fetch straight through.
func NewFetcher(inner probe.Fetcher, cache *Cache) *Fetcher {
	return &Fetcher{inner: inner, cache: cache}
}

// Fetch implements probe.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, ts timeofday.TimeOfDay) (probe.Payload, bool, error) {
	if f.cache != nil {
		if entry, ok := f.cache.Get(ts); ok {
			return probe.Payload{Data: entry.Data, ContentType: entry.ContentType}, true, nil
		}
	}

	payload, found, err := f.inner.Fetch(ctx, ts)
	if err != nil || !found {
		return payload, found, err
	}
	if f.cache != nil {
		f.cache.Set(ts, probe.Result{Candidate: ts, Actual: ts, Payload: payload, Found: true})
	}
	return payload, true, nil
}
