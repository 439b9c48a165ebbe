package icon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"webappinfo/internal/webapp"
)

var (
	// ErrTooLarge is returned when an icon body exceeds the fetcher's MaxBytes.
	ErrTooLarge = errors.New("icon exceeds size limit")
	// ErrHTTPStatus is returned for non-2xx icon responses.
	ErrHTTPStatus = errors.New("unexpected http status")
)

const (
	DefaultMaxBytes = 1 << 20
	DefaultCacheTTL = 10 * time.Minute
)

// Fetcher downloads icon bytes over HTTP and caches them by URL.
type Fetcher struct {
	client   *http.Client
	cache    *cache.Cache
	maxBytes int64
	logger   *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithCacheTTL sets how long fetched bytes are kept. Zero disables caching.
func WithCacheTTL(ttl time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if ttl <= 0 {
			f.cache = nil
			return
		}
		f.cache = cache.New(ttl, 2*ttl)
	}
}

// WithMaxBytes caps the size of a single icon body.
func WithMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) { f.maxBytes = n }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher returns a Fetcher with a 10 minute cache and a 1 MiB body cap.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		cache:    cache.New(DefaultCacheTTL, 2*DefaultCacheTTL),
		maxBytes: DefaultMaxBytes,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the body at url. Cached bodies are returned as copies.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.cache != nil {
		if v, ok := f.cache.Get(url); ok {
			return clone(v.([]byte)), nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: %w: %s", url, ErrHTTPStatus, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("fetch %s: %w (%d bytes)", url, ErrTooLarge, f.maxBytes)
	}

	if f.cache != nil {
		f.cache.SetDefault(url, clone(data))
	}
	return data, nil
}

// FetchAll downloads every icon of info that has no Data yet, then decodes
// each icon via Fill. ICO icons are expanded into one icon per frame. Icons
// that cannot be fetched or decoded are dropped and logged; order is kept.
func (f *Fetcher) FetchAll(ctx context.Context, info *webapp.WebApplicationInfo) error {
	results := make([][]webapp.IconInfo, len(info.Icons))

	var wg sync.WaitGroup
	for i, ic := range info.Icons {
		wg.Add(1)
		go func(i int, ic webapp.IconInfo) {
			defer wg.Done()

			if !ic.HasData() {
				data, err := f.Fetch(ctx, ic.URL)
				if err != nil {
					f.logger.Warn("Dropping icon", "url", ic.URL, "error", err)
					return
				}
				ic.Data = data
			}

			frames, err := Frames(ic)
			if err != nil {
				f.logger.Warn("Dropping icon", "url", ic.URL, "error", err)
				return
			}
			for j := range frames {
				if err := Fill(&frames[j]); err != nil {
					f.logger.Warn("Dropping icon", "url", ic.URL, "error", err)
					return
				}
			}
			results[i] = frames
		}(i, ic)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	icons := make([]webapp.IconInfo, 0, len(info.Icons))
	for _, r := range results {
		icons = append(icons, r...)
	}
	f.logger.Debug("Fetched icons", "app", info.AppURL, "requested", len(info.Icons), "kept", len(icons))
	info.Icons = icons
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
