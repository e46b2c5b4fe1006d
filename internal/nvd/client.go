// Package nvd fetches pages of CVE records from the NVD CVE 2.0 REST API.
package nvd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/ortelius/pdvd-cvesync/model"
)

// DefaultURL is the public NVD CVE 2.0 endpoint
const DefaultURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"

// MaxPageSize is the largest resultsPerPage the upstream feed accepts
const MaxPageSize = 200

// ErrFetchFailed is matched by every error FetchPage returns. It serves callers
// using Client directly; a sync run reports fetch failures as ingest.ErrFetchFailed.
var ErrFetchFailed = errors.New("fetch failed")

// supportedAPIVersion is the upstream response version this client was written against
var supportedAPIVersion = mustConstraint("2.x")

// FetchError reports a failed page fetch. StatusCode is zero for network and decode failures.
type FetchError struct {
	StartIndex int
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch page at startIndex %d: upstream returned status %d", e.StartIndex, e.StatusCode)
	}
	return fmt.Sprintf("fetch page at startIndex %d: %v", e.StartIndex, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetchFailed}
	}
	return []error{ErrFetchFailed, e.Err}
}

// Options configures a Client
type Options struct {
	BaseURL    string
	PageSize   int
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
}

// Client issues one GET per page against the upstream feed. It never retries.
type Client struct {
	baseURL     string
	pageSize    int
	userAgent   string
	httpClient  *http.Client
	logger      *zap.Logger
	versionOnce sync.Once
}

// NewClient creates a client, clamping the page size to 1..MaxPageSize
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultURL
	}
	if opts.PageSize <= 0 || opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "pdvd-cvesync"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL:    opts.BaseURL,
		pageSize:   opts.PageSize,
		userAgent:  opts.UserAgent,
		httpClient: httpClient,
		logger:     logger,
	}
}

// PageSize returns the resultsPerPage sent with every request
func (c *Client) PageSize() int {
	return c.pageSize
}

// FetchPage retrieves the page starting at startIndex. modifiedSince is omitted when empty.
func (c *Client) FetchPage(ctx context.Context, startIndex int, modifiedSince string) (*model.NVDPage, error) {
	reqURL, err := c.pageURL(startIndex, modifiedSince)
	if err != nil {
		return nil, &FetchError{StartIndex: startIndex, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &FetchError{StartIndex: startIndex, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{StartIndex: startIndex, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{StartIndex: startIndex, StatusCode: resp.StatusCode}
	}

	var body model.NVDResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &FetchError{StartIndex: startIndex, Err: fmt.Errorf("decode response: %w", err)}
	}
	if body.TotalResults < 0 {
		return nil, &FetchError{StartIndex: startIndex, Err: fmt.Errorf("negative totalResults %d", body.TotalResults)}
	}

	c.checkVersion(body.Version)

	page := &model.NVDPage{
		StartIndex:   startIndex,
		TotalResults: body.TotalResults,
		Items:        make([]map[string]interface{}, 0, len(body.Vulnerabilities)),
	}
	for _, vuln := range body.Vulnerabilities {
		page.Items = append(page.Items, vuln.CVE)
	}

	c.logger.Debug("Fetched NVD page",
		zap.Int("start_index", startIndex),
		zap.Int("items", len(page.Items)),
		zap.Int("total_results", body.TotalResults))

	return page, nil
}

func (c *Client) pageURL(startIndex int, modifiedSince string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	params := u.Query()
	params.Set("startIndex", strconv.Itoa(startIndex))
	params.Set("resultsPerPage", strconv.Itoa(c.pageSize))
	if modifiedSince != "" {
		params.Set("modifiedSince", modifiedSince)
	}
	u.RawQuery = params.Encode()

	return u.String(), nil
}

// checkVersion warns once per client when the feed reports an unexpected API version
func (c *Client) checkVersion(version string) {
	if version == "" {
		return
	}
	c.versionOnce.Do(func() {
		v, err := semver.NewVersion(version)
		if err != nil || !supportedAPIVersion.Check(v) {
			c.logger.Warn("Unexpected NVD API version",
				zap.String("version", version),
				zap.String("supported", supportedAPIVersion.String()))
		}
	})
}

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}
