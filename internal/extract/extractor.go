package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"webappinfo/internal/webapp"
)

var (
	// ErrNotHTML is returned when the page is not served as text/html.
	ErrNotHTML = errors.New("page is not html")
	// ErrHTTPStatus is returned for non-2xx responses.
	ErrHTTPStatus = errors.New("unexpected http status")
	// ErrInvalidURL is returned for URLs that are not http(s).
	ErrInvalidURL = errors.New("url must be http or https")
)

const (
	maxRedirects = 10
	maxPageBytes = 4 << 20
)

// Extractor fetches pages and turns them into WebApplicationInfo values.
type Extractor struct {
	client *http.Client
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithHTTPClient sets the client used for page and manifest requests. Its
// CheckRedirect is replaced to cap redirects.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) {
		cp := *c
		e.client = &cp
	}
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// New returns an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	return e
}

// ParseURL accepts bare hosts ("example.com") as https URLs.
func ParseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" {
		u, err = url.Parse("https://" + raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u, nil
}

// Extract fetches rawURL and returns the application metadata declared by
// the page and its manifest. A manifest that cannot be fetched or parsed is
// logged and skipped. When neither declares an icon, /favicon.ico at the
// page's origin is added as the only candidate.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*webapp.WebApplicationInfo, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := e.get(ctx, u.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if mediaType(resp) != "text/html" {
		return nil, fmt.Errorf("%s: %w (%s)", u, ErrNotHTML, resp.Header.Get("Content-Type"))
	}

	final := resp.Request.URL
	if final.String() != u.String() {
		e.logger.Debug("Followed redirects", "from", u.String(), "to", final.String())
	}

	info, manifestURL, err := FromDocument(final, io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", final, err)
	}

	if manifestURL != "" {
		if err := e.applyManifest(ctx, manifestURL, info); err != nil {
			e.logger.Warn("Ignoring manifest", "url", manifestURL, "error", err)
		}
	}

	if len(info.Icons) == 0 {
		info.AddIcon(webapp.IconInfo{URL: fmt.Sprintf("%s://%s/favicon.ico", final.Scheme, final.Host)})
	}

	e.logger.Info("Extracted web application", "title", info.Title, "url", info.AppURL, "icons", len(info.Icons))
	return info, nil
}

func (e *Extractor) applyManifest(ctx context.Context, manifestURL string, info *webapp.WebApplicationInfo) error {
	resp, err := e.get(ctx, manifestURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch mediaType(resp) {
	case "application/manifest+json", "application/json", "text/json":
	default:
		return fmt.Errorf("unexpected content-type %q", resp.Header.Get("Content-Type"))
	}

	m, err := ParseManifest(resp.Request.URL, io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return err
	}
	m.Apply(info)
	return nil
}

func (e *Extractor) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: %w: %s", u, ErrHTTPStatus, resp.Status)
	}
	return resp, nil
}

func mediaType(resp *http.Response) string {
	mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}
