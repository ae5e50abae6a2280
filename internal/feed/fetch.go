// Package feed loads schedule records from the CRUD list endpoint and from
// ICS subscriptions.
package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	appLog "schedview/internal/log"
)

// Target is a single HTTP resource to fetch.
type Target struct {
	// ID is an internal identifier used in logs and errors.
	ID string
	// URL is the full request URL, query included.
	URL string
	// Token, if set, is sent as a Bearer token.
	Token string
	// Accept is sent as the Accept header when non-empty.
	Accept string
}

// FetchResult contains the outcome of fetching a single target.
type FetchResult struct {
	Target    Target
	Body      []byte // payload, either freshly fetched or from cache
	FromCache bool   // true if we reused the cached body
}

// cacheEntry holds HTTP cache metadata for a single URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher fetches resources with HTTP caching (ETag / Last-Modified) backed
// by a disk cache, falling back to the cached body when the origin fails.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a new Fetcher.
//
// cacheDir is the base directory where per-URL cache subdirectories and
// metadata will be stored.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/cache"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cacheDir: cacheDir,
	}
}

// FetchOne fetches a single target, honoring ETag and Last-Modified. The
// cache is keyed by a hash of the full URL, so each filter combination gets
// its own entry.
//
// A cancelled ctx is returned as-is and never answered from cache.
func (f *Fetcher) FetchOne(ctx context.Context, t Target) (FetchResult, error) {
	if t.URL == "" {
		return FetchResult{}, errors.New("feed: target URL is empty")
	}

	cachePath := f.cachePathForURL(t.URL)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}

	meta, _ := loadCacheMeta(cachePath)
	cachedBody, _ := loadCacheBody(cachePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if t.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}
	if t.Accept != "" {
		req.Header.Set("Accept", t.Accept)
	}

	// Conditional headers from cache metadata; only valid for the same URL.
	if len(cachedBody) > 0 && meta.URL == t.URL {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("feed fetch start", "id", t.ID, "url", redactURL(t.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return FetchResult{}, ctx.Err()
		}
		// Network error; if we have a cached body, fall back to it.
		if len(cachedBody) > 0 {
			appLog.Error("feed fetch network error, using cached body", err, "id", t.ID, "url", redactURL(t.URL))
			return FetchResult{Target: t, Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return FetchResult{}, readErr
		}

		newMeta := cacheEntry{
			URL:          t.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := saveCache(cachePath, newMeta, body); err != nil {
			// Log but still return the freshly fetched body.
			appLog.Error("feed cache save failed", err, "id", t.ID, "url", redactURL(t.URL))
		}

		appLog.Info("feed fetch success", "id", t.ID, "url", redactURL(t.URL), "status", resp.StatusCode, "bytes", len(body))
		return FetchResult{Target: t, Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, errors.New("feed: 304 Not Modified but no cached body available")
		}
		appLog.Debug("feed fetch not modified; using cache", "id", t.ID, "url", redactURL(t.URL))
		return FetchResult{Target: t, Body: cachedBody, FromCache: true}, nil

	default:
		statusErr := &StatusError{Code: resp.StatusCode, Status: resp.Status}
		// Client errors mean the request itself is wrong; stale data would hide that.
		if len(cachedBody) > 0 && resp.StatusCode >= 500 {
			appLog.Error("feed fetch non-OK, using cached body", statusErr, "id", t.ID, "url", redactURL(t.URL))
			return FetchResult{Target: t, Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, statusErr
	}
}

// StatusError is returned for non-2xx/304 responses.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed: unexpected status %s", e.Status)
}

func (f *Fetcher) cachePathForURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	// Use first 16 hex chars as directory name.
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body"))
}

func saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Write body first so meta never points at missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL hides path and query of a URL for logging; feed URLs often carry
// secret tokens.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "feed://...(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host + redactedSuffix
}
