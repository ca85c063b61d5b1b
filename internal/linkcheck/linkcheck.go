// Package linkcheck verifies that recipe links resolve to a real page.
package linkcheck

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout bounds a single page fetch.
const DefaultTimeout = 10 * time.Second

// Checker fetches recipe pages and confirms they carry a title.
type Checker struct {
	client *http.Client
}

// NewChecker creates a Checker. A zero timeout uses DefaultTimeout.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{client: &http.Client{Timeout: timeout}}
}

// Check returns nil when the page answers 200 and has a non-empty <title>
// or og:title.
func (c *Checker) Check(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "performance-meal-planner/1.0 (+link check)")
	req.Header.Set("Accept", "text/html")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse page: %w", err)
	}
	if Title(doc) == "" {
		return fmt.Errorf("page has no title")
	}
	return nil
}

// Title returns the og:title of the document, falling back to <title>.
func Title(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if t := strings.TrimSpace(og); t != "" {
			return t
		}
	}
	return strings.TrimSpace(doc.Find("head title").First().Text())
}
