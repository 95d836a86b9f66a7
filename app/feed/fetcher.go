package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

// FetchResult carries the raw document plus the caching metadata staged
// for persistence by the pipeline.
type FetchResult struct {
	StatusCode   int
	Body         []byte
	ETag         string
	LastModified string
	ContentType  string
	NotModified  bool
}

// Fetcher performs a conditional retrieval of a source document, either
// over HTTP or from a local file.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
}

func NewFetcher(httpClient *http.Client, userAgent string) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

// Run retrieves the source document. When useCache is set, stored ETag and
// Last-Modified values are sent as conditional headers; a 304 answer is
// reported through FetchResult.NotModified rather than as an error.
func (f *Fetcher) Run(ctx context.Context, source *Source, cache CacheState, useCache bool) (*FetchResult, error) {
	if isLocal(source.URL) {
		return f.readLocal(source)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, source.GetTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, &TransportError{Source: source.Name, URL: source.URL, Msg: err.Error()}
	}

	req.Header.Set("User-Agent", f.userAgent)
	if source.HasAuth() {
		req.SetBasicAuth(source.Username, source.Password)
	}

	if useCache {
		if cache.ETag != "" {
			slog.Debug("Sending ETag", "source", source.Name, "etag", cache.ETag)
			req.Header.Set("If-None-Match", cache.ETag)
		}
		if cache.LastModified != "" {
			slog.Debug("Sending Last-Modified", "source", source.Name, "last_modified", cache.LastModified)
			req.Header.Set("If-Modified-Since", cache.LastModified)
		}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &TransportError{Source: source.Name, URL: source.URL,
				Msg: fmt.Sprintf("timed out after %s", source.GetTimeout())}
		}
		return nil, &TransportError{Source: source.Name, URL: source.URL, Msg: err.Error()}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		slog.Debug("Source not modified since last run", "source", source.Name)
		return &FetchResult{StatusCode: resp.StatusCode, NotModified: true}, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &TransportError{Source: source.Name, URL: source.URL, Status: resp.StatusCode,
			Msg: fmt.Sprintf("authentication needed: %s", resp.Header.Get("Www-Authenticate"))}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &TransportError{Source: source.Name, URL: source.URL, Status: resp.StatusCode,
			Msg: "feed not found"}
	case resp.StatusCode == http.StatusInternalServerError:
		return nil, &TransportError{Source: source.Name, URL: source.URL, Status: resp.StatusCode,
			Msg: "internal server error from feed host"}
	case resp.StatusCode != http.StatusOK:
		return nil, &TransportError{Source: source.Name, URL: source.URL, Status: resp.StatusCode,
			Msg: fmt.Sprintf("HTTP error %d received", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Source: source.Name, URL: source.URL, Msg: err.Error()}
	}

	return &FetchResult{
		StatusCode:   resp.StatusCode,
		Body:         body,
		ETag:         resp.Header.Get("Etag"),
		LastModified: resp.Header.Get("Last-Modified"),
		ContentType:  resp.Header.Get("Content-Type"),
	}, nil
}

func (f *Fetcher) readLocal(source *Source) (*FetchResult, error) {
	path := strings.TrimPrefix(source.URL, "file://")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &TransportError{Source: source.Name, URL: source.URL, Msg: err.Error()}
	}

	// Local reads carry no caching metadata
	return &FetchResult{StatusCode: http.StatusOK, Body: data}, nil
}

func isLocal(url string) bool {
	return !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://")
}
