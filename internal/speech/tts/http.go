package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"parrot/internal/domain/fragment"
	"parrot/internal/speech/cache"
)

const userAgent = "iTunes/9.0.3 (Macintosh; U; Intel Mac OS X 10_6_2; en-ca)"

// downloader streams a GET response into a fragment file.
type downloader struct {
	config Config
	client *http.Client
	log    logrus.FieldLogger
}

func newDownloader(config Config, log logrus.FieldLogger) *downloader {
	return &downloader{
		config: config,
		client: &http.Client{Timeout: config.timeout()},
		log:    log,
	}
}

// download fetches rawURL with headers and writes the body verbatim to the
// fragment path of f. Redirects are followed by the client.
func (d *downloader) download(ctx context.Context, f fragment.Fragment, rawURL string, header http.Header) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: fragment %d: build request: %w", ErrFetch, f.Index, err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range header {
		req.Header[k] = v
	}

	final := d.config.FragmentPath(f.Text)
	d.log.WithFields(logrus.Fields{
		"fragment": f.Index,
		"url":      rawURL,
		"path":     final,
	}).Debug("Fetching fragment audio")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fragment %d: %w", ErrFetch, f.Index, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: fragment %d: unexpected status %s", ErrFetch, f.Index, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return "", fmt.Errorf("%w: create temp dir: %w", cache.ErrCacheIO, err)
	}

	partial := cache.PartialPath(final)
	out, err := os.Create(partial)
	if err != nil {
		return "", fmt.Errorf("%w: create fragment %d: %w", cache.ErrCacheIO, f.Index, err)
	}

	n, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	switch {
	case copyErr != nil:
		os.Remove(partial)
		return "", fmt.Errorf("%w: fragment %d: read body: %w", ErrFetch, f.Index, copyErr)
	case closeErr != nil:
		os.Remove(partial)
		return "", fmt.Errorf("%w: close fragment %d: %w", cache.ErrCacheIO, f.Index, closeErr)
	case n == 0:
		os.Remove(partial)
		return "", fmt.Errorf("%w: fragment %d: empty response", ErrFetch, f.Index)
	}

	if err := cache.Commit(partial, final); err != nil {
		return "", err
	}

	d.log.WithFields(logrus.Fields{
		"fragment": f.Index,
		"bytes":    n,
	}).Debug("Fragment audio written")

	return final, nil
}

// quote escapes s for a query value, spaces as %20.
func quote(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
