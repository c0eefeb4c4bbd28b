package datatable

import (
	"hash/fnv"
	"strconv"
	"sync"
	"time"
)

// DefaultChartCacheSize caps how many rendered charts a ChartCache keeps.
const DefaultChartCacheSize = 256

// ChartKey identifies one rendered summary chart. Two renders share HTML only
// when every field matches, so a localized title never leaks into another
// locale's chart.
type ChartKey struct {
	Table   string
	Column  string
	Chart   string
	Title   string
	Buckets uint64
}

// NewChartKey digests the buckets into a key for the chart.
func NewChartKey(table, column, chart, title string, buckets []SummaryBucket) ChartKey {
	return ChartKey{Table: table, Column: column, Chart: chart, Title: title, Buckets: bucketDigest(buckets)}
}

// RenderCache memoizes rendered chart HTML.
type RenderCache interface {
	GetOrRender(key ChartKey, render func() (string, error)) (string, error)
}

// ChartCache keeps rendered summary charts for a TTL, evicting the entry
// closest to expiry once it holds DefaultChartCacheSize charts.
type ChartCache struct {
	ttl     time.Duration
	limit   int
	now     func() time.Time
	mu      sync.Mutex
	entries map[ChartKey]cachedChart
}

type cachedChart struct {
	html    string
	expires time.Time
}

// NewChartCache builds a cache with the provided TTL. A non-positive TTL
// disables caching.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{
		ttl:     ttl,
		limit:   DefaultChartCacheSize,
		now:     time.Now,
		entries: make(map[ChartKey]cachedChart),
	}
}

// GetOrRender returns the cached chart or renders and stores it. Render
// errors are not cached.
func (c *ChartCache) GetOrRender(key ChartKey, render func() (string, error)) (string, error) {
	if c == nil || c.ttl <= 0 {
		return render()
	}
	now := c.now()
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && now.Before(entry.expires) {
		c.mu.Unlock()
		return entry.html, nil
	}
	delete(c.entries, key)
	c.mu.Unlock()

	html, err := render()
	if err != nil {
		return "", err
	}
	c.store(key, html, now)
	return html, nil
}

// Len reports the number of live entries.
func (c *ChartCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for _, entry := range c.entries {
		if now.Before(entry.expires) {
			n++
		}
	}
	return n
}

func (c *ChartCache) store(key ChartKey, html string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok && c.limit > 0 && len(c.entries) >= c.limit {
		c.evictLocked(now)
	}
	c.entries[key] = cachedChart{html: html, expires: now.Add(c.ttl)}
}

// evictLocked drops expired charts, or the one expiring soonest when all are
// still live.
func (c *ChartCache) evictLocked(now time.Time) {
	var (
		oldest    ChartKey
		oldestAt  time.Time
		haveFirst bool
	)
	for key, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, key)
			continue
		}
		if !haveFirst || entry.expires.Before(oldestAt) {
			oldest, oldestAt, haveFirst = key, entry.expires, true
		}
	}
	if haveFirst && len(c.entries) >= c.limit {
		delete(c.entries, oldest)
	}
}

func bucketDigest(buckets []SummaryBucket) uint64 {
	h := fnv.New64a()
	for _, bucket := range buckets {
		h.Write([]byte(bucket.Label))
		h.Write([]byte{0})
		h.Write(strconv.AppendInt(nil, int64(bucket.Count), 10))
		h.Write([]byte{0})
	}
	return h.Sum64()
}
