// Package fetcher retrieves pages for the navigator and for native window
// loads, with optional headless Chrome rendering for the latter.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"pagenav/page"
)

// Options configures the client.
type Options struct {
	UserAgent      string
	TimeoutSeconds int    // 0 = no timeout
	ChromePath     string // path to Chrome binary (empty = auto-detect)
	RenderNative   bool   // render native loads through headless Chrome
	AdminPrefix    string
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		UserAgent:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 pagenav",
		AdminPrefix: "/admin",
	}
}

// NetworkError is a failed request or a non-2xx response.
type NetworkError struct {
	URL    string
	Status int // 0 when the request never got a response
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Submission is a serialized form.
type Submission struct {
	Action  string
	Method  string
	Enctype string
	Values  url.Values
}

// SubmitResult is the outcome of a dynamic form submission. Page is nil
// when the server redirected.
type SubmitResult struct {
	Redirected bool
	FinalURL   string
	Page       *page.FetchedPage
}

// Suggestion is one entry of the search suggestions endpoint.
type Suggestion struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	URL         string `json:"url"`
	Icon        string `json:"icon"`
}

// SuggestionsPath is the endpoint queried by Suggestions.
const SuggestionsPath = "/api/search/suggestions"

// Client performs HTTP requests. It is safe for concurrent use.
type Client struct {
	opts   Options
	http   *http.Client
	logger *slog.Logger
}

// New creates a client. A nil logger means slog.Default().
func New(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultOptions()
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	return &Client{
		opts:   opts,
		http:   &http.Client{Timeout: time.Duration(opts.TimeoutSeconds) * time.Second},
		logger: logger,
	}
}

// Fetch GETs pageURL as an in-page request and parses the response.
func (c *Client) Fetch(ctx context.Context, pageURL string) (*page.FetchedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.dynamicHeaders(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{URL: pageURL, Status: resp.StatusCode}
	}

	p, err := page.Extract(resp.Body, pageURL, c.opts.AdminPrefix)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched page", "url", pageURL, "title", p.Title, "elapsed", time.Since(start))
	return p, nil
}

// Submit sends a form as an in-page request. A response whose final URL
// differs from the action is reported as a redirect and not parsed.
func (c *Client) Submit(ctx context.Context, s Submission) (*SubmitResult, error) {
	enctype := s.Enctype
	if enctype == "" {
		enctype = "application/x-www-form-urlencoded"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Action, strings.NewReader(s.Values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", enctype)
	c.dynamicHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: s.Action, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{URL: s.Action, Status: resp.StatusCode}
	}

	finalURL := resp.Request.URL.String()
	if finalURL != s.Action {
		return &SubmitResult{Redirected: true, FinalURL: finalURL}, nil
	}

	p, err := page.Extract(resp.Body, finalURL, c.opts.AdminPrefix)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{FinalURL: finalURL, Page: p}, nil
}

// Suggestions queries the search suggestions endpoint on the origin of
// base. An empty category searches everything.
func (c *Client) Suggestions(ctx context.Context, base, query, category string) ([]Suggestion, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	u = u.ResolveReference(&url.URL{Path: SuggestionsPath})
	q := url.Values{}
	q.Set("q", query)
	q.Set("category", category)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.dynamicHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: u.String(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{URL: u.String(), Status: resp.StatusCode}
	}

	var out []Suggestion
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding suggestions: %w", err)
	}
	return out, nil
}

// Get loads a document for a native navigation. Error statuses are not
// errors here; the browser shows whatever the server sent.
func (c *Client) Get(ctx context.Context, target string) (string, string, error) {
	if c.opts.RenderNative {
		return c.Rendered(ctx, target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	return c.document(req)
}

// Post submits a form for a native navigation.
func (c *Client) Post(ctx context.Context, action, enctype string, values url.Values) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action, strings.NewReader(values.Encode()))
	if err != nil {
		return "", "", fmt.Errorf("creating request: %w", err)
	}
	// multipart bodies are sent urlencoded; file parts never survive a
	// headless submit anyway
	if enctype == "" || enctype == "multipart/form-data" {
		enctype = "application/x-www-form-urlencoded"
	}
	req.Header.Set("Content-Type", enctype)
	req.Header.Set("User-Agent", c.opts.UserAgent)
	return c.document(req)
}

func (c *Client) document(req *http.Request) (string, string, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetching %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("reading response: %w", err)
	}
	return string(body), resp.Request.URL.String(), nil
}

func (c *Client) dynamicHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
}

// userDataDir returns a persistent directory for Chrome user data.
func userDataDir() string {
	dir, _ := os.UserCacheDir()
	return filepath.Join(dir, "pagenav-chrome-profile")
}

// Rendered loads target in headless Chrome and returns the serialized DOM
// after scripts ran.
func (c *Client) Rendered(ctx context.Context, target string) (string, string, error) {
	start := time.Now()

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-component-update", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("password-store", "basic"),
		chromedp.Flag("use-mock-keychain", true),
		chromedp.Flag("headless", "new"),
		chromedp.UserAgent(c.opts.UserAgent),
		chromedp.WindowSize(1280, 900),
		chromedp.UserDataDir(userDataDir()),
	}
	if c.opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(c.opts.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	if c.opts.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		// browser loads get extra time
		allocCtx, cancel = context.WithTimeout(allocCtx, time.Duration(c.opts.TimeoutSeconds)*time.Second+15*time.Second)
		defer cancel()
	}

	bctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var doc, finalURL string
	err := chromedp.Run(bctx,
		network.SetExtraHTTPHeaders(network.Headers(map[string]interface{}{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "pt-BR,pt;q=0.9,en;q=0.8",
		})),
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &doc, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return "", "", fmt.Errorf("browser fetch: %w", err)
	}

	c.logger.Debug("rendered page", "url", finalURL, "elapsed", time.Since(start))
	return doc, finalURL, nil
}
