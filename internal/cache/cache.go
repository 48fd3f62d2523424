// Package cache keeps decoded images near the current directory position
// GPU-resident under a byte budget, filling itself through background
// prefetch and serving navigation with synchronous loads on miss.
package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"filmstrip/internal/dirindex"
	"filmstrip/internal/domain"
	"filmstrip/internal/worker"
)

// Prefetch window around the current position. Offsets are tried nearest
// first so the most likely image completes first under a saturated pool.
var prefetchOffsets = []int{1, -1, 2, -2, 3, 4, 5, 6, 7, 8}

type entry struct {
	texture domain.Texture
	bytes   int64
}

// Cache owns the directory index and the decode pool. All methods must be
// called from the render thread; workers only feed the completion channel.
type Cache struct {
	index   *dirindex.Index
	pool    *worker.Pool
	entries map[string]*entry
	pending map[string]struct{} // submitted but not yet drained

	usedBytes int64
	maxBytes  int64

	logger *slog.Logger
}

// New creates a cache over dir with the given byte budget and decode worker
// count. Call UpdateDirectory before the first load.
func New(dir string, maxBytes int64, workers int, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		index:    dirindex.New(dir),
		pool:     worker.NewPool(workers),
		entries:  make(map[string]*entry),
		pending:  make(map[string]struct{}),
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// UpdateDirectory re-enumerates the directory and drops cached entries whose
// files are no longer listed. Stale in-flight decodes are discarded at drain
// time.
func (c *Cache) UpdateDirectory() error {
	if err := c.index.UpdateDirectory(); err != nil {
		return err
	}
	for path, e := range c.entries {
		if c.index.Contains(path) {
			continue
		}
		c.removeEntry(path, e)
	}
	return nil
}

// CurrentFilePath returns the absolute path of the current entry.
func (c *Cache) CurrentFilePath() (string, error) { return c.index.CurrentFilePath() }

// CurrentFilename returns the file name of the current entry, or "" when the
// directory is empty.
func (c *Cache) CurrentFilename() string { return c.index.CurrentFilename() }

// UsedBytes returns the summed cost of live entries.
func (c *Cache) UsedBytes() int64 { return c.usedBytes }

// MaxBytes returns the configured byte budget.
func (c *Cache) MaxBytes() int64 { return c.maxBytes }

// ProcessPrefetched drains completed background decodes and uploads them via
// the display. Failures are per-entry: draining continues and the joined
// error is returned at the end. The budget invariant holds on return.
func (c *Cache) ProcessPrefetched(d domain.Display) error {
	var errs []error
	for _, r := range c.pool.Drain() {
		delete(c.pending, r.Path)

		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}
		// A synchronous load may have beaten the worker to it, or the user
		// may have left the directory. Either way the result is stale and
		// silently discarded.
		if _, ok := c.entries[r.Path]; ok {
			continue
		}
		if !c.index.Contains(r.Path) {
			continue
		}

		tex, err := d.CreateTexture(r.Pixels)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w: %w", r.Path, domain.ErrUpload, err))
			continue
		}
		c.insert(r.Path, tex, worker.SizeBytes(r.Pixels))
	}
	c.evict()
	return errors.Join(errs...)
}

// SendLoadRequests submits background decodes for the neighborhood of the
// current position, skipping anything cached or already in flight.
func (c *Cache) SendLoadRequests() {
	for _, off := range prefetchOffsets {
		path, ok := c.index.PathAt(off)
		if !ok {
			continue
		}
		if _, ok := c.entries[path]; ok {
			continue
		}
		if _, ok := c.pending[path]; ok {
			continue
		}
		if c.pool.Submit(path) {
			c.pending[path] = struct{}{}
		}
	}
}

// LoadNext advances one entry and resolves it, decoding synchronously on a
// miss.
func (c *Cache) LoadNext(d domain.Display) (domain.Texture, string, error) {
	return c.LoadJump(d, 1)
}

// LoadPrev steps back one entry and resolves it.
func (c *Cache) LoadPrev(d domain.Display) (domain.Texture, string, error) {
	return c.LoadJump(d, -1)
}

// LoadJump applies a wraparound jump and resolves the entry it lands on.
func (c *Cache) LoadJump(d domain.Display, offset int) (domain.Texture, string, error) {
	c.index.Jump(offset)
	return c.loadCurrent(d)
}

// LoadSpecific makes path the current entry and resolves it. The path must be
// in the current directory listing.
func (c *Cache) LoadSpecific(d domain.Display, path string) (domain.Texture, error) {
	if err := c.index.SetCurrent(path); err != nil {
		return nil, err
	}
	tex, _, err := c.loadCurrent(d)
	return tex, err
}

// loadCurrent resolves the entry at the current position: cache hit returns
// immediately, otherwise the caller blocks on decode and upload. The returned
// texture always matches the returned file name.
func (c *Cache) loadCurrent(d domain.Display) (domain.Texture, string, error) {
	path, err := c.index.CurrentFilePath()
	if err != nil {
		return nil, "", err
	}
	name := filepath.Base(path)

	if e, ok := c.entries[path]; ok {
		return e.texture, name, nil
	}

	pixels, err := worker.Decode(path)
	if err != nil {
		return nil, "", err
	}
	tex, err := d.CreateTexture(pixels)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w: %w", path, domain.ErrUpload, err)
	}
	c.insert(path, tex, worker.SizeBytes(pixels))
	c.evict()
	return tex, name, nil
}

func (c *Cache) insert(path string, tex domain.Texture, bytes int64) {
	if old, ok := c.entries[path]; ok {
		c.removeEntry(path, old)
	}
	c.entries[path] = &entry{texture: tex, bytes: bytes}
	c.usedBytes += bytes
}

func (c *Cache) removeEntry(path string, e *entry) {
	delete(c.entries, path)
	c.usedBytes -= e.bytes
	e.texture.Dispose()
}

// evict drops entries farthest from the current position until the budget
// holds again. The current entry is never evicted: it is the one on screen.
func (c *Cache) evict() {
	if c.usedBytes <= c.maxBytes {
		return
	}
	current, _ := c.index.CurrentFilePath()

	type victim struct {
		path     string
		distance int
	}
	victims := make([]victim, 0, len(c.entries))
	for path := range c.entries {
		if path == current {
			continue
		}
		victims = append(victims, victim{path: path, distance: c.index.Distance(path)})
	}
	sort.Slice(victims, func(i, j int) bool { return victims[i].distance > victims[j].distance })

	for _, v := range victims {
		if c.usedBytes <= c.maxBytes {
			return
		}
		c.logger.Debug("evicting cache entry", "path", v.path, "distance", v.distance)
		c.removeEntry(v.path, c.entries[v.path])
	}
}

// Close stops the worker pool and releases every cached texture.
func (c *Cache) Close() {
	c.pool.Close()
	for path, e := range c.entries {
		c.removeEntry(path, e)
	}
}
