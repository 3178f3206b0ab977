package predictor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/synaptica-ai/diabetes-risk/pkg/common/logger"
)

const (
	fetchBackoff    = 500 * time.Millisecond
	fetchMaxBackoff = 2 * time.Second
)

// Fetcher downloads artifacts that are missing on disk. It runs once at
// startup; request handling never touches the network.
type Fetcher struct {
	baseURL  string
	client   *http.Client
	attempts int
	backoff  time.Duration
}

func NewFetcher(baseURL string, timeout time.Duration, attempts int) *Fetcher {
	if attempts < 1 {
		attempts = 1
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &Fetcher{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout, Transport: transport},
		attempts: attempts,
		backoff:  fetchBackoff,
	}
}

// fetchStatusError is a non-200 answer from the artifact host.
type fetchStatusError struct {
	URL    string
	Status int
}

func (e fetchStatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
}

// permanent reports whether another attempt cannot change the answer.
func permanent(err error) bool {
	var se fetchStatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Status < 500 && se.Status != http.StatusTooManyRequests && se.Status != http.StatusRequestTimeout
}

// fetchWithRetry downloads url into path, backing off exponentially between
// attempts. Missing artifacts and other 4xx answers are not retried.
func (f *Fetcher) fetchWithRetry(ctx context.Context, url, path string) error {
	var err error
	delay := f.backoff
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err = f.download(ctx, url, path); err == nil || permanent(err) {
			return err
		}
		if attempt == f.attempts {
			break
		}
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"url":     url,
			"attempt": attempt,
		}).Warn("Artifact download failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if delay > fetchMaxBackoff {
			delay = fetchMaxBackoff
		}
	}
	return err
}

// EnsureLocal makes sure both artifacts for version exist under the store's
// directory, downloading each missing one from <baseURL>/<version>/<file>.
func (f *Fetcher) EnsureLocal(ctx context.Context, store *Store, version string) error {
	for _, file := range []string{ScalerFile, ClassifierFile} {
		path := store.Path(version, file)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return ArtifactUnavailableError{Path: path, Err: err}
		}
		if f == nil || f.baseURL == "" {
			return ArtifactUnavailableError{Path: path, Err: os.ErrNotExist}
		}

		url := fmt.Sprintf("%s/%s/%s", f.baseURL, version, file)
		if err := f.fetchWithRetry(ctx, url, path); err != nil {
			return ArtifactUnavailableError{Path: path, Err: err}
		}
		logger.Log.WithFields(map[string]interface{}{
			"url":  url,
			"path": path,
		}).Info("Artifact downloaded")
	}
	return nil
}

func (f *Fetcher) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fetchStatusError{URL: url, Status: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.part")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
