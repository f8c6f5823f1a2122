package hms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/singleflight"
)

// anchorID marks the heading whose following paragraph describes the alert.
const anchorID = "what-it-is"

// maxPageSize bounds how much of a wiki page is read.
const maxPageSize = 2 << 20

var (
	// ErrNoDescription is returned when a page has no description paragraph.
	ErrNoDescription = errors.New("hms: page has no description")

	// ErrAttemptsExhausted is returned once a code has used up its lookups.
	ErrAttemptsExhausted = errors.New("hms: lookup attempts exhausted")
)

// Config configures a Resolver.
type Config struct {
	// BaseURL is prefixed to the code, e.g. ".../hmscode/" + "0300_0100_0001_0007".
	BaseURL string

	// MaxAttempts caps failed lookups per code. Zero means 3.
	MaxAttempts int

	// CacheSize bounds remembered codes. Zero means 256.
	CacheSize int

	// Timeout bounds one request. Zero means 10s.
	Timeout time.Duration
}

// Resolver looks up and caches HMS descriptions. Safe for concurrent use.
type Resolver struct {
	cfg      Config
	client   *http.Client
	found    *lru.Cache[string, string]
	failures *lru.Cache[string, int]
	group    singleflight.Group
}

// New creates a Resolver. A nil client uses http.DefaultClient's transport
// with cfg.Timeout.
func New(cfg Config, client *http.Client) (*Resolver, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	found, err := lru.New[string, string](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating hms cache: %w", err)
	}
	failures, err := lru.New[string, int](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating hms failure cache: %w", err)
	}

	return &Resolver{cfg: cfg, client: client, found: found, failures: failures}, nil
}

// URL returns the wiki page for a code given with or without its "HMS_" prefix.
func (r *Resolver) URL(code string) string {
	return r.cfg.BaseURL + strings.TrimPrefix(code, "HMS_")
}

// Describe returns the description of code as an HTML fragment.
//
// Parameters:
//   - ctx: bounds how long the caller waits, not the shared request
//   - code: HMS code with or without its "HMS_" prefix
//
// Returns:
//   - string: the description paragraph's inner HTML
//   - error: ErrNoDescription, ErrAttemptsExhausted, ctx.Err() or a fetch error
func (r *Resolver) Describe(ctx context.Context, code string) (string, error) {
	code = strings.TrimPrefix(code, "HMS_")

	if desc, ok := r.found.Get(code); ok {
		return desc, nil
	}
	if n, _ := r.failures.Get(code); n >= r.cfg.MaxAttempts {
		return "", fmt.Errorf("%w: %s", ErrAttemptsExhausted, code)
	}

	// The shared fetch outlives callers that give up, so a cancelled caller
	// neither aborts it for the others nor counts as a failed attempt.
	ch := r.group.DoChan(code, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.Timeout)
		defer cancel()

		desc, err := r.fetch(fetchCtx, r.URL(code))
		if err != nil {
			n, _ := r.failures.Get(code)
			r.failures.Add(code, n+1)
			return "", err
		}
		r.found.Add(code, desc)
		r.failures.Remove(code)
		return desc, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (r *Resolver) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building hms request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", url, err)
	}

	return ExtractDescription(doc)
}

// ExtractDescription returns the inner HTML of the paragraph directly after
// the element with id "what-it-is".
func ExtractDescription(doc *html.Node) (string, error) {
	anchor := findByID(doc, anchorID)
	if anchor == nil {
		return "", ErrNoDescription
	}

	next := anchor.NextSibling
	for next != nil && next.Type != html.ElementNode {
		next = next.NextSibling
	}
	if next == nil || next.DataAtom != atom.P {
		return "", ErrNoDescription
	}

	var buf bytes.Buffer
	for c := next.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("rendering description: %w", err)
		}
	}
	desc := strings.TrimSpace(buf.String())
	if desc == "" {
		return "", ErrNoDescription
	}
	return desc, nil
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}
