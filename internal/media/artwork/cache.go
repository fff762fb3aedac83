package artwork

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"
)

// SizeClass selects which rendition of a cover the caller wants.
type SizeClass string

const (
	// SizeSmall is the list-tile rendition.
	SizeSmall SizeClass = "small"
	// SizeFull is the full-resolution rendition at the configured preferred
	// width.
	SizeFull SizeClass = "full"
)

// Fetcher downloads raw artwork bytes from a fully resolved URL. Satisfied
// by the catalog client.
type Fetcher interface {
	FetchArtwork(ctx context.Context, url string) ([]byte, error)
}

// Options configures the cache.
type Options struct {
	// PreferredWidth is the pixel width stored on disk and served for
	// SizeFull. Changing it does not purge eagerly; stale disk files are
	// invalidated on their next access.
	PreferredWidth int
	// SmallWidth is the pixel width served for SizeSmall.
	SmallWidth int
	// MemoryEntries caps the in-memory tier.
	MemoryEntries int
}

// Cache is the tiered artwork cache: memory, then disk, then the remote CDN.
type Cache struct {
	memory  *memoryCache
	storage *Storage
	fetcher Fetcher
	logger  *slog.Logger

	preferredWidth int
	smallWidth     int

	// group collapses concurrent fetches for the same key and size class so
	// a screen full of tiles triggers at most one download per rendition.
	group singleflight.Group
}

// NewCache creates the tiered cache.
func NewCache(storage *Storage, fetcher Fetcher, opts Options, logger *slog.Logger) *Cache {
	preferred := opts.PreferredWidth
	if preferred <= 0 {
		preferred = 512
	}
	small := opts.SmallWidth
	if small <= 0 {
		small = 128
	}
	return &Cache{
		memory:         newMemoryCache(opts.MemoryEntries),
		storage:        storage,
		fetcher:        fetcher,
		logger:         logger,
		preferredWidth: preferred,
		smallWidth:     small,
	}
}

// Fetch returns the cover for a key at the requested size class, or false
// when no image could be obtained. urlTemplate is the catalog artwork URL
// with {w} and {h} placeholders; an empty template means the memory and disk
// tiers are still consulted but a miss cannot be filled remotely.
//
// Absence is not an error: network and decode failures are logged and the
// caller renders without a cover.
func (c *Cache) Fetch(ctx context.Context, key, urlTemplate string, size SizeClass) ([]byte, bool) {
	if key == "" {
		return nil, false
	}

	if data, ok := c.memory.get(key, size); ok {
		return data, true
	}

	// Collapse concurrent misses for the same key and size class.
	v, err, _ := c.group.Do(memoryKey(key, size), func() (any, error) {
		return c.fetchLocked(ctx, key, urlTemplate, size)
	})
	if err != nil {
		c.logger.Warn("artwork fetch failed", "key", key, "size", string(size), "error", err)
		return nil, false
	}
	data, ok := v.([]byte)
	if !ok || len(data) == 0 {
		return nil, false
	}
	return data, true
}

func (c *Cache) fetchLocked(ctx context.Context, key, urlTemplate string, size SizeClass) ([]byte, error) {
	// Another waiter may have populated the memory tier first.
	if data, ok := c.memory.get(key, size); ok {
		return data, nil
	}

	if data, ok := c.fromDisk(key, size); ok {
		return data, nil
	}

	if urlTemplate == "" {
		return nil, nil
	}
	return c.fromRemote(ctx, key, urlTemplate, size)
}

// fromDisk serves the disk tier. A stored file whose width no longer matches
// the preferred width is deleted here, lazily, and the caller falls through
// to the remote tier.
func (c *Cache) fromDisk(key string, size SizeClass) ([]byte, bool) {
	if !c.storage.Exists(key) {
		return nil, false
	}

	width, err := c.storage.Width(key)
	if err != nil {
		c.logger.Warn("unreadable artwork file, removing", "key", key, "error", err)
		c.invalidateDisk(key)
		return nil, false
	}
	if width != c.preferredWidth {
		c.logger.Debug("artwork width mismatch, invalidating",
			"key", key,
			"stored_width", width,
			"preferred_width", c.preferredWidth,
		)
		c.invalidateDisk(key)
		return nil, false
	}

	data, err := c.storage.Load(key)
	if err != nil {
		return nil, false
	}

	rendered, err := c.render(data, size)
	if err != nil {
		c.logger.Warn("failed to render cached artwork", "key", key, "error", err)
		return nil, false
	}
	c.memory.put(key, size, rendered)
	return rendered, true
}

// fromRemote downloads the cover at the preferred width, persists it to disk
// and populates the memory tier at the requested size class.
func (c *Cache) fromRemote(ctx context.Context, key, urlTemplate string, size SizeClass) ([]byte, error) {
	url := resolveURL(urlTemplate, c.preferredWidth)

	data, err := c.fetcher.FetchArtwork(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := c.storage.Save(key, data); err != nil {
		// Disk is a cache; serving from memory alone is still correct.
		c.logger.Warn("failed to persist artwork", "key", key, "error", err)
	}

	rendered, err := c.render(data, size)
	if err != nil {
		return nil, err
	}
	c.memory.put(key, size, rendered)
	return rendered, nil
}

// render scales original-width bytes to the requested size class.
func (c *Cache) render(data []byte, size SizeClass) ([]byte, error) {
	if size == SizeSmall {
		return resizeToWidth(data, c.smallWidth)
	}
	return resizeToWidth(data, c.preferredWidth)
}

func (c *Cache) invalidateDisk(key string) {
	if err := c.storage.Delete(key); err != nil {
		c.logger.Warn("failed to delete stale artwork", "key", key, "error", err)
	}
	c.memory.invalidate(key)
}

// Invalidate drops all cached renditions for a key, memory and disk.
func (c *Cache) Invalidate(key string) {
	c.invalidateDisk(key)
}

// Placeholder returns a BlurHash string for the key's cover, fetching it
// first if necessary. Empty string when no cover is available.
func (c *Cache) Placeholder(ctx context.Context, key, urlTemplate string) string {
	data, ok := c.Fetch(ctx, key, urlTemplate, SizeSmall)
	if !ok {
		return ""
	}
	hash, err := ComputeBlurHash(data)
	if err != nil {
		c.logger.Warn("failed to compute blurhash", "key", key, "error", err)
		return ""
	}
	return hash
}

// resolveURL substitutes the width placeholders in a catalog artwork URL
// template.
func resolveURL(template string, width int) string {
	w := strconv.Itoa(width)
	url := strings.ReplaceAll(template, "{w}", w)
	return strings.ReplaceAll(url, "{h}", w)
}
