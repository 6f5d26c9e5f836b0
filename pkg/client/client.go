// Package client provides the authenticated platform API client with rate limit retries.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/BgWv3/procore-doc-downloader/internal/logging"
	"github.com/BgWv3/procore-doc-downloader/internal/metrics"
	"github.com/BgWv3/procore-doc-downloader/pkg/models"
	"github.com/BgWv3/procore-doc-downloader/pkg/retry"
)

const (
	// CompanyHeader scopes a request to one company.
	CompanyHeader    = "Procore-Company-Id"
	retryAfterHeader = "Retry-After"

	listPageSize = 100
)

// ErrUnauthorized is returned when the API rejects the credential or no token can be obtained.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-success response from the API or a download URL.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: server returned %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: server returned %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Client provides read access to the platform API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	downloadClient *http.Client
	retryConfig    retry.Config

	mu          sync.RWMutex
	tokenSource oauth2.TokenSource
}

// Config holds client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RetryConfig retry.Config
	TokenSource oauth2.TokenSource
	AuthToken   string // static token, used when TokenSource is nil
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryConfig.DefaultWait == 0 {
		cfg.RetryConfig.DefaultWait = retry.DefaultWait
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
	}

	c := &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		// Downloads can run far longer than an API call, so only the
		// transport level timeouts apply to them.
		downloadClient: &http.Client{Transport: transport},
		retryConfig:    cfg.RetryConfig,
		tokenSource:    cfg.TokenSource,
	}
	if c.tokenSource == nil && cfg.AuthToken != "" {
		c.SetAuthToken(cfg.AuthToken)
	}
	return c
}

// SetAuthToken sets a static bearer token for requests.
func (c *Client) SetAuthToken(token string) {
	c.SetTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
}

// SetTokenSource sets where bearer tokens come from.
func (c *Client) SetTokenSource(ts oauth2.TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenSource = ts
}

// applyAuth adds the bearer header to a request.
func (c *Client) applyAuth(req *http.Request) error {
	c.mu.RLock()
	ts := c.tokenSource
	c.mu.RUnlock()

	if ts == nil {
		return fmt.Errorf("%w: no access token", ErrUnauthorized)
	}
	tok, err := ts.Token()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	return nil
}

// Get issues an authenticated GET against endpoint and decodes the JSON body into out.
// Rate limited responses are waited out and the identical request is sent again.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values, header http.Header, out any) error {
	cfg := c.retryConfig
	userOnWait := cfg.OnWait
	cfg.OnWait = func(attempt int, wait time.Duration) {
		logging.Warn("rate limit reached, waiting",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait))
		metrics.RecordRateLimitWait(wait)
		if userOnWait != nil {
			userOnWait(attempt, wait)
		}
	}

	return retry.Do(ctx, cfg, func() error {
		return c.getOnce(ctx, endpoint, query, header, out)
	})
}

func (c *Client) getOnce(ctx context.Context, endpoint string, query url.Values, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if err := c.applyAuth(req); err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	metrics.RecordAPIRequest(metricsEndpoint(endpoint), resp.StatusCode, time.Since(start))
	logging.Debug("api request",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		apiErr := newAPIError(endpoint, resp)
		return retry.RateLimited(parseRetryAfter(resp.Header.Get(retryAfterHeader)), apiErr)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrUnauthorized, newAPIError(endpoint, resp))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return newAPIError(endpoint, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

// maxRetryAfterSeconds bounds numeric Retry-After values so the wait cannot
// overflow time.Duration.
const maxRetryAfterSeconds = 7 * 24 * 60 * 60

// parseRetryAfter reads a Retry-After value in seconds or as an HTTP date.
// 0 means the header was absent or unusable and the default wait applies.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 || secs > maxRetryAfterSeconds {
			logging.Warn("retry after header out of range", zap.String("value", value))
			return 0
		}
		return max(time.Duration(secs)*time.Second, time.Millisecond)
	}
	if at, err := http.ParseTime(value); err == nil {
		return max(time.Until(at), time.Millisecond)
	}
	logging.Warn("couldn't parse retry after header", zap.String("value", value))
	return 0
}

func newAPIError(endpoint string, resp *http.Response) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &APIError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(data)),
	}
}

// metricsEndpoint collapses ids out of a path so metric labels stay bounded.
func metricsEndpoint(endpoint string) string {
	segments := strings.Split(endpoint, "/")
	for i, s := range segments {
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

// listAll reads every page of a list endpoint.
func listAll[T any](ctx context.Context, c *Client, endpoint string, query url.Values, header http.Header) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(listPageSize))

		var batch []T
		if err := c.Get(ctx, endpoint, q, header, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < listPageSize {
			return all, nil
		}
	}
}

// ListCompanies returns the companies the user has access to.
func (c *Client) ListCompanies(ctx context.Context) ([]models.Company, error) {
	return listAll[models.Company](ctx, c, "/companies", nil, nil)
}

// ListProjects returns the projects of a company.
func (c *Client) ListProjects(ctx context.Context, companyID models.ID) ([]models.Project, error) {
	query := url.Values{"company_id": {companyID.String()}}
	header := http.Header{CompanyHeader: {companyID.String()}}
	return listAll[models.Project](ctx, c, "/projects", query, header)
}

// FetchFolder returns the listing of a project folder. A nil folderID reads the
// project's document root.
func (c *Client) FetchFolder(ctx context.Context, companyID, projectID models.ID, folderID *models.ID) (*models.FolderListing, error) {
	endpoint := "/folders"
	if folderID != nil {
		endpoint = "/folders/" + url.PathEscape(folderID.String())
	}
	query := url.Values{"project_id": {projectID.String()}}
	header := http.Header{CompanyHeader: {companyID.String()}}

	var listing models.FolderListing
	if err := c.Get(ctx, endpoint, query, header, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// ProjectFolders reads folders of a single project.
type ProjectFolders struct {
	client    *Client
	CompanyID models.ID
	ProjectID models.ID
}

// Project returns a folder reader scoped to one project.
func (c *Client) Project(companyID, projectID models.ID) *ProjectFolders {
	return &ProjectFolders{client: c, CompanyID: companyID, ProjectID: projectID}
}

// FetchFolder returns the listing of folderID (nil = root) in this project.
func (p *ProjectFolders) FetchFolder(ctx context.Context, folderID *models.ID) (*models.FolderListing, error) {
	return p.client.FetchFolder(ctx, p.CompanyID, p.ProjectID, folderID)
}

// Download fetches a signed file URL. No credential is sent.
// The returned size is -1 when the server does not announce it.
func (c *Client) Download(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("download: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		apiErr := newAPIError(redactURL(req.URL), resp)
		return nil, 0, apiErr
	}
	return resp.Body, resp.ContentLength, nil
}

// redactURL drops the query string, which carries the signature of signed URLs.
func redactURL(u *url.URL) string {
	clean := *u
	clean.RawQuery = ""
	return clean.String()
}
