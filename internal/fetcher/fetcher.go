package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"article-sync/internal/config"
	"article-sync/internal/observability"
)

var (
	ErrEmptyURL        = errors.New("source URL is empty")
	ErrUnexpectedHTML  = errors.New("source returned an HTML page instead of delimited text")
	ErrResponseTooBig  = errors.New("response body exceeds size limit")
	ErrUnexpectedCode  = errors.New("unexpected HTTP status")
	acceptedMediaTypes = "text/csv,text/plain;q=0.9,*/*;q=0.8"
)

type Fetcher struct {
	client   *http.Client
	cfg      *config.Config
	logger   *observability.Logger
	maxBytes int64
}

type FetchResponse struct {
	StatusCode  int
	Body        string
	URL         string
	ContentType string
}

func NewFetcher(cfg *config.Config, logger *observability.Logger) *Fetcher {
	client := &http.Client{
		Timeout: cfg.GetTotalTimeout(),
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	return &Fetcher{
		client:   client,
		cfg:      cfg,
		logger:   logger,
		maxBytes: cfg.HTTP.MaxResponseBytes,
	}
}

// Fetch performs exactly one GET against urlStr and returns the body decoded
// to UTF-8. Every failure is a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (*FetchResponse, error) {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return nil, &FetchError{Err: ErrEmptyURL}
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, &FetchError{URL: urlStr, Err: fmt.Errorf("invalid URL: %w", err)}
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, &FetchError{URL: urlStr, Err: fmt.Errorf("invalid URL: unsupported scheme %q", parsedURL.Scheme)}
	}

	f.logger.Debug("Fetching source", "host", parsedURL.Host, "timeout", f.cfg.GetTotalTimeout())

	return f.fetchOnce(ctx, urlStr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, urlStr string) (*FetchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &FetchError{URL: urlStr, Err: err}
	}

	req.Header.Set("User-Agent", f.cfg.HTTP.UserAgent)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Accept", acceptedMediaTypes)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: urlStr, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.logger.Warn("Failed to close response body", "error", err.Error())
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{
			URL:        urlStr,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", ErrUnexpectedCode, http.StatusText(resp.StatusCode)),
		}
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &FetchError{URL: urlStr, StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid gzip body: %w", err)}
		}
		defer func() { _ = gzipReader.Close() }()
		reader = gzipReader
	}

	raw, err := f.readLimited(reader)
	if err != nil {
		return nil, &FetchError{URL: urlStr, StatusCode: resp.StatusCode, Err: err}
	}

	contentType := resp.Header.Get("Content-Type")
	if isHTML(contentType, raw) {
		return nil, &FetchError{
			URL:        urlStr,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w (page title %q)", ErrUnexpectedHTML, pageTitle(raw)),
		}
	}

	body, err := decodeBody(raw, contentType)
	if err != nil {
		return nil, &FetchError{URL: urlStr, StatusCode: resp.StatusCode, Err: err}
	}

	f.logger.Debug("Response received",
		"status", resp.StatusCode,
		"content_type", contentType,
		"content_encoding", resp.Header.Get("Content-Encoding"),
		"raw_bytes", len(raw),
		"decoded_bytes", len(body),
	)

	return &FetchResponse{
		StatusCode:  resp.StatusCode,
		Body:        body,
		URL:         resp.Request.URL.String(),
		ContentType: contentType,
	}, nil
}

func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	if f.maxBytes <= 0 {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
		return body, nil
	}

	body, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrResponseTooBig, f.maxBytes)
	}
	return body, nil
}

// decodeBody converts raw to UTF-8. A BOM or a declared charset wins;
// otherwise valid UTF-8 is kept as is and anything else goes through
// content sniffing.
func decodeBody(raw []byte, contentType string) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	_, name, certain := charset.DetermineEncoding(raw, contentType)
	if utf8.Valid(raw) && (!certain || name == "utf-8") {
		return string(raw), nil
	}

	r, err := charset.NewReaderLabel(name, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to determine body encoding: %w", err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to decode body as %s: %w", name, err)
	}
	return string(decoded), nil
}

func isHTML(contentType string, body []byte) bool {
	if contentType != "" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
			switch mediaType {
			case "text/html", "application/xhtml+xml":
				return true
			}
		}
	}

	head := bytes.TrimSpace(body)
	if len(head) > 64 {
		head = head[:64]
	}
	head = bytes.ToLower(head)
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

func pageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
