// Package static downloads the latest radar composites from the fixed
// per-product URLs the radar site publishes alongside the timestamped
// archive. These endpoints always serve the newest frame, so every
// download is paired with duplicate suppression to avoid re-saving an
// unchanged image.
package static

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/radarwatch-dev/radarwatch/pkg/archive"
	"github.com/radarwatch-dev/radarwatch/pkg/store"
)

// DefaultTimeout bounds a single static-image request.
const DefaultTimeout = 15 * time.Second

// maxImageBytes caps how much of a response body a download will read.
const maxImageBytes = 32 << 20

// Product is one fixed-URL radar composite source.
type Product struct {
	Name string // short type name: caz, ppz, maxz, ...
	URL  string // full URL, including any WMS query string
	Dir  string // save directory for this product
}

// Outcome reports how one product's download went. A failed product never
// aborts the others.
type Outcome struct {
	Product   string
	Path      string
	Err       error
	Bytes     int
	Duplicate bool
}

// OK reports whether the product yielded a usable image (fresh or
// already on disk).
func (o Outcome) OK() bool { return o.Err == nil }

// Downloader fetches configured products sequentially.
type Downloader struct {
	httpClient *http.Client
	logger     *slog.Logger
	clock      func() time.Time
}

// NewDownloader returns a Downloader with the given request timeout; zero
// means DefaultTimeout.
func NewDownloader(timeout time.Duration, logger *slog.Logger) *Downloader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		clock:      time.Now,
	}
}

// DownloadAll fetches every product in order and returns one Outcome per
// product, in input order.
func (d *Downloader) DownloadAll(ctx context.Context, products []Product) []Outcome {
	outcomes := make([]Outcome, 0, len(products))
	for _, p := range products {
		outcomes = append(outcomes, d.Download(ctx, p))
	}
	return outcomes
}

// Download fetches one product, rejects markup placeholders, suppresses
// duplicates and writes the image under the product directory as
// <name>_radar_<YYYYMMDD_HHMM>.<ext>.
func (d *Downloader) Download(ctx context.Context, p Product) Outcome {
	data, contentType, err := d.fetch(ctx, p)
	if err != nil {
		d.logger.Warn("product download failed", "product", p.Name, "error", err)
		return Outcome{Product: p.Name, Err: err}
	}

	if archive.IsMarkup(data, contentType) {
		err := fmt.Errorf("%s: got HTML instead of image", p.Name)
		d.logger.Warn("product returned markup", "product", p.Name, "content_type", contentType)
		return Outcome{Product: p.Name, Err: err}
	}

	filename := fmt.Sprintf("%s_radar_%s.%s", p.Name, d.clock().UTC().Format("20060102_1504"), extensionFor(p.Name, contentType))
	saved, err := store.Save(p.Dir, filename, data, d.logger)
	if err != nil {
		return Outcome{Product: p.Name, Err: err}
	}
	return Outcome{
		Product:   p.Name,
		Path:      saved.Path,
		Duplicate: saved.Duplicate,
		Bytes:     len(data),
	}
}

// fetch performs the GET with bounded retries. Unlike archive probes,
// these endpoints are worth retrying: there is exactly one URL per
// product, so a transient failure here loses the whole frame.
func (d *Downloader) fetch(ctx context.Context, p Product) (data []byte, contentType string, err error) {
	start := time.Now()

	err = retry.Do(
		func() error {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, http.NoBody)
			if reqErr != nil {
				return retry.Unrecoverable(fmt.Errorf("building request: %w", reqErr))
			}

			resp, doErr := d.httpClient.Do(req)
			if doErr != nil {
				d.logger.Warn("static fetch failed", "product", p.Name, "error", doErr)
				return doErr
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					d.logger.Debug("failed to close response body", "error", closeErr)
				}
			}()

			if resp.StatusCode != http.StatusOK {
				statusErr := fmt.Errorf("HTTP %d from %s", resp.StatusCode, p.Name)
				if resp.StatusCode >= 500 {
					return statusErr
				}
				return retry.Unrecoverable(statusErr)
			}

			body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
			if readErr != nil {
				return fmt.Errorf("reading body: %w", readErr)
			}
			data = body
			contentType = resp.Header.Get("Content-Type")
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.OnRetry(func(n uint, err error) {
			d.logger.Info("retrying static fetch", "product", p.Name, "attempt", n+1, "error", err)
		}),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, "", err
	}

	d.logger.Debug("static fetch completed",
		"product", p.Name,
		"bytes", len(data),
		"duration", time.Since(start))
	return data, contentType, nil
}

// extensionFor picks the on-disk extension for a payload. The WMS maxz
// endpoint serves PNG; everything else on the radar site is GIF.
func extensionFor(product, contentType string) string {
	if product == "maxz" || strings.Contains(contentType, "image/png") {
		return "png"
	}
	return "gif"
}
