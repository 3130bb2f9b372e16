// Package validate checks whether bookmark URLs are well formed and
// reachable.
package validate

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nikbrunner/deskmark/internal/model"
)

// Status represents the reachability of a URL.
type Status int

const (
	Valid      Status = iota // 2xx or 3xx response
	Invalid                  // malformed URL, 404 or 410 Gone
	Unverified               // timeout, DNS failure, auth wall, server error
)

func (s Status) String() string {
	switch s {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case Unverified:
		return "unverified"
	}
	return "unknown"
}

// Result holds the check result for a single bookmark.
type Result struct {
	Status     Status
	StatusCode int    // HTTP status code (0 if no response)
	Error      string // reason for Invalid or Unverified
}

// Valid reports whether the bookmark should be shown as usable. Unverified
// URLs count as usable.
func (r Result) Valid() bool {
	return r.Status != Invalid
}

const (
	DefaultTimeout     = 5 * time.Second
	DefaultConcurrency = 10
)

var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)*$`)

// Checker runs reachability checks.
type Checker struct {
	client      *http.Client
	timeout     time.Duration
	concurrency int
	exclude     map[string]bool
	log         logrus.FieldLogger
}

// Params holds parameters for creating a new Checker.
type Params struct {
	Timeout        time.Duration // per URL; defaults to DefaultTimeout
	Concurrency    int           // defaults to DefaultConcurrency
	ExcludeDomains []string      // 404s here are reported as possibly private
	Client         *http.Client  // optional
	Logger         logrus.FieldLogger
}

// NewChecker creates a Checker.
func NewChecker(params Params) *Checker {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	client := params.Client
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Follow redirects but limit to 10
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}

	var log logrus.FieldLogger = params.Logger
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = l
	}

	exclude := make(map[string]bool)
	for _, domain := range params.ExcludeDomains {
		exclude[strings.ToLower(domain)] = true
	}

	return &Checker{
		client:      client,
		timeout:     timeout,
		concurrency: concurrency,
		exclude:     exclude,
		log:         log,
	}
}

// CheckEach checks every bookmark in items, at any depth, and calls fn with
// each result as it arrives. Calls to fn are serialised. It returns when all
// checks are done or ctx is cancelled.
func (c *Checker) CheckEach(ctx context.Context, items model.Items, fn func(id string, r Result)) error {
	bookmarks := model.Bookmarks(items)
	if len(bookmarks) == 0 {
		return nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, b := range bookmarks {
		b := b
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r := c.CheckURL(gctx, b.URL)
			c.log.WithFields(logrus.Fields{
				"id":     b.ID,
				"url":    b.URL,
				"status": r.Status,
				"code":   r.StatusCode,
			}).Debug("checked bookmark")

			mu.Lock()
			defer mu.Unlock()
			fn(b.ID, r)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Check checks every bookmark in items and returns the results by ID.
func (c *Checker) Check(ctx context.Context, items model.Items) (map[string]Result, error) {
	results := make(map[string]Result)
	err := c.CheckEach(ctx, items, func(id string, r Result) {
		results[id] = r
	})
	return results, err
}

// CheckURL checks a single URL. It never fails: problems are reported in
// the Result.
func (c *Checker) CheckURL(ctx context.Context, rawURL string) Result {
	target, err := model.NormalizeURL(rawURL)
	if err != nil {
		return Result{Status: Invalid, Error: "Invalid URL format"}
	}
	parsed, err := url.Parse(target)
	if err != nil || !domainPattern.MatchString(parsed.Hostname()) {
		return Result{Status: Invalid, Error: "Invalid domain name format"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Try HEAD first (faster, less bandwidth)
	resp, err := c.do(ctx, http.MethodHead, target)
	if err != nil {
		// HEAD failed, try GET as fallback (some servers don't support HEAD)
		resp, err = c.do(ctx, http.MethodGet, target)
		if err != nil {
			return Result{Status: Unverified, Error: describe(err)}
		}
	}
	defer resp.Body.Close()

	result := Result{StatusCode: resp.StatusCode}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Status = Valid
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		if c.isExcludedDomain(parsed.Hostname()) {
			result.Status = Unverified
			result.Error = "Possibly private (auth required)"
		} else {
			result.Status = Invalid
			result.Error = http.StatusText(resp.StatusCode)
		}
	default:
		// Could be temporary server issues or auth-required pages
		result.Status = Unverified
		result.Error = http.StatusText(resp.StatusCode)
	}

	return result
}

func (c *Checker) do(ctx context.Context, method, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

// isExcludedDomain matches host and its subdomains against the exclude list.
func (c *Checker) isExcludedDomain(host string) bool {
	host = strings.ToLower(host)
	if c.exclude[host] {
		return true
	}
	for domain := range c.exclude {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// describe simplifies verbose error messages into readable categories.
func describe(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "Timeout"
	}
	lower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lower, "no such host"):
		return "DNS failure"
	case strings.Contains(lower, "timeout"):
		return "Timeout"
	case strings.Contains(lower, "connection refused"):
		return "Connection refused"
	case strings.Contains(lower, "certificate"):
		return "TLS/certificate error"
	case strings.Contains(lower, "network is unreachable"):
		return "Network unreachable"
	case strings.Contains(lower, "tls:"):
		return "TLS error"
	default:
		return err.Error()
	}
}
