// Package archive fetches radar composites from the timestamp-named
// MOSDAC-style archive. Images live under a per-day directory with
// filenames of the shape <PRODUCT>_<DATESEGMENT>_<HHMMSS>_<SUFFIX>.gif;
// the date, product and suffix segments are configuration, never computed
// here.
package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/radarwatch-dev/radarwatch/pkg/probe"
	"github.com/radarwatch-dev/radarwatch/pkg/timeofday"
)

// DefaultTimeout bounds a single probe request. Inside a tolerance scan
// every second matters, so this stays short.
const DefaultTimeout = 5 * time.Second

// maxImageBytes caps how much of a response body a probe will read.
const maxImageBytes = 16 << 20

// Config names the externally supplied segments of the archive URL
// template plus the per-request timeout.
type Config struct {
	BaseURL     string        // e.g. https://mosdac.gov.in/look/DWR/RCTLS/2025/28JUL/
	Product     string        // e.g. RCTLS
	DateSegment string        // e.g. 28JUL2025
	Suffix      string        // e.g. L2B_STD_MAXZ
	Timeout     time.Duration // zero means DefaultTimeout
}

// Client probes the archive for images at exact timestamps. It performs a
// single attempt per timestamp: retrying the same offset is pointless
// when the surrounding tolerance scan already covers nearby seconds.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	cfg        Config
}

// NewClient validates the configured base URL and returns a Client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("archive: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("archive: invalid base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// ImageURL renders the archive URL for one timestamp.
func (c *Client) ImageURL(ts timeofday.TimeOfDay) string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	return fmt.Sprintf("%s/%s_%s_%s_%s.gif", base, c.cfg.Product, c.cfg.DateSegment, ts.String(), c.cfg.Suffix)
}

// Fetch implements probe.Fetcher. A non-200 status or a markup payload
// means the archive has no image at this second; only transport failures
// surface as errors, and the prober degrades those to a miss.
func (c *Client) Fetch(ctx context.Context, ts timeofday.TimeOfDay) (probe.Payload, bool, error) {
	imageURL := c.ImageURL(ts)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, http.NoBody)
	if err != nil {
		return probe.Payload{}, false, fmt.Errorf("building request for %s: %w", imageURL, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return probe.Payload{}, false, fmt.Errorf("fetching %s: %w", imageURL, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("archive miss", "timestamp", ts.String(), "status", resp.StatusCode)
		return probe.Payload{}, false, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return probe.Payload{}, false, fmt.Errorf("reading %s: %w", imageURL, err)
	}

	payload := probe.Payload{Data: data, ContentType: resp.Header.Get("Content-Type")}
	if IsMarkup(payload.Data, payload.ContentType) {
		// Some mirrors answer 200 with an HTML placeholder for gaps.
		c.logger.Debug("archive returned markup", "timestamp", ts.String(), "content_type", payload.ContentType)
		return probe.Payload{}, false, nil
	}

	c.logger.Debug("archive hit", "timestamp", ts.String(), "bytes", len(data), "content_type", payload.ContentType)
	return payload, true, nil
}

// IsMarkup reports whether a response is an HTML document rather than
// image bytes, judged by content type and a magic-byte sniff.
func IsMarkup(data []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	trimmed := strings.TrimLeft(string(data[:min(len(data), 64)]), " \t\r\n")
	lower := strings.ToLower(trimmed)
	return strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html")
}
