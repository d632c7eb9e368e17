// Package netcache fetches remote model, translation and database files
// into a persistent cache that revalidates with ETag and Last-Modified.
package netcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

// Cache is a persistent HTTP cache. A Cache is safe for concurrent use for
// distinct URLs.
type Cache struct {
	Dir    string
	Client *http.Client
	Logger *slog.Logger
	// Retries is the number of extra attempts after a failed full fetch.
	Retries int
	// Backoff is the wait before the first retry; it doubles per attempt.
	Backoff time.Duration
}

// New returns a cache rooted at dir with a default client.
func New(dir string) *Cache {
	return &Cache{
		Dir:     dir,
		Client:  &http.Client{Timeout: 2 * time.Minute},
		Retries: 2,
		Backoff: time.Second,
	}
}

// DefaultDir returns the per-user cache directory for the tool.
func DefaultDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "directive")
	}
	return filepath.Join(os.TempDir(), "directive-cache")
}

// IsURL reports whether s is an http or https URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

type meta struct {
	URL          string `json:"url"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	DataFile     string `json:"data_file"`
}

func (c *Cache) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Get returns a local path holding the body of url. A cached copy is
// revalidated with a conditional request and reused when the server
// answers 304 or cannot be reached. The data file keeps the extension of
// the URL path so callers can detect its format.
func (c *Cache) Get(ctx context.Context, url string) (string, bool, error) {
	key := hash(url)
	mpath := filepath.Join(c.Dir, key+".json")
	dataFile := key + path.Ext(strings.SplitN(url, "?", 2)[0])

	if m, ok := c.readMeta(mpath, url); ok {
		p, fromCache, err := c.revalidate(ctx, url, m, mpath)
		if err == nil {
			return p, fromCache, nil
		}
		c.logger().Warn("revalidation failed, using cached copy", "url", url, "error", err)
		return filepath.Join(c.Dir, m.DataFile), true, nil
	}

	var lastErr error
	wait := c.Backoff
	for attempt := 0; attempt <= c.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", false, ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", false, err
		}
		p, err := c.store(req, url, dataFile, mpath)
		if err == nil {
			return p, false, nil
		}
		lastErr = err
		c.logger().Debug("fetch failed", "url", url, "attempt", attempt+1, "error", err)
	}
	return "", false, fmt.Errorf("fetching %s: %w", url, lastErr)
}

func (c *Cache) revalidate(ctx context.Context, url string, m meta, mpath string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, err
	}
	if m.ETag != "" {
		req.Header.Set("If-None-Match", m.ETag)
	}
	if m.LastModified != "" {
		req.Header.Set("If-Modified-Since", m.LastModified)
	}
	p, err := c.store(req, url, m.DataFile, mpath)
	if err == errNotModified {
		c.logger().Debug("cache hit", "url", url)
		return filepath.Join(c.Dir, m.DataFile), true, nil
	}
	return p, false, err
}

var errNotModified = errors.New("not modified")

// store performs req and saves a successful body with its validators.
func (c *Cache) store(req *http.Request, url, dataFile, mpath string) (string, error) {
	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return "", errNotModified
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(c.Dir, dataFile)
	if err := atomic.WriteFile(p, resp.Body); err != nil {
		return "", err
	}
	nm := meta{
		URL:          url,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		DataFile:     dataFile,
	}
	if err := writeMeta(mpath, nm); err != nil {
		return "", err
	}
	c.logger().Info("fetched", "url", url, "path", p)
	return p, nil
}

func (c *Cache) readMeta(mpath, url string) (meta, bool) {
	b, err := os.ReadFile(mpath)
	if err != nil {
		return meta{}, false
	}
	var m meta
	if err := json.Unmarshal(b, &m); err != nil || m.URL != url || m.DataFile == "" {
		return meta{}, false
	}
	if !fileExists(filepath.Join(c.Dir, m.DataFile)) {
		return meta{}, false
	}
	return m, true
}

func writeMeta(p string, m meta) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(p, strings.NewReader(string(b)))
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// Local returns a local path for name, fetching URLs through the cache and
// returning other names unchanged.
func (c *Cache) Local(ctx context.Context, name string) (string, error) {
	if !IsURL(name) {
		return name, nil
	}
	p, _, err := c.Get(ctx, name)
	return p, err
}
